package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const starterConfig = `source: content
output: dist
`

const starterPost = "# Hello, world\n\nThis page was baked by kiln. Edit `content/index.md` to change it.\n"

const starterStyle = `body {
	max-width: 40rem;
	margin: 0 auto;
	font-family: sans-serif;
}
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new kiln project",
	Long:  `Initialize a new kiln project in the current directory: a kiln.yml configuration file and a content directory with a starter page and stylesheet.`,
	Run: func(cmd *cobra.Command, args []string) {
		files := map[string]string{
			"kiln.yml":                            starterConfig,
			filepath.Join("content", "index.md"):  starterPost,
			filepath.Join("content", "style.css"): starterStyle,
		}

		for name := range files {
			if _, err := os.Stat(name); err == nil {
				fatal("Refusing to overwrite", fmt.Errorf("%s already exists", name))
			}
		}

		if err := os.MkdirAll("content", 0755); err != nil {
			fatal("Failed to create content directory", err)
		}
		for name, content := range files {
			if err := os.WriteFile(name, []byte(content), 0644); err != nil {
				fatal("Failed to write "+name, err)
			}
		}

		cwd, _ := os.Getwd()
		fmt.Println("Initialized kiln project in", cwd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/kiln"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of kiln",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kiln version %s\n", strings.TrimSpace(kiln.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

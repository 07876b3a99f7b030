package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/kiln"
	"github.com/aretw0/kiln/internal/platform"
	"github.com/spf13/cobra"
)

var (
	buildSource   string
	buildOutput   string
	buildTemplate string
	buildFeedExt  string
	buildExclude  []string
	buildJobs     int
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bake the content tree into an HTML site",
	Long: `Build scans the source directory, renders every Markdown page,
copies assets, and assembles Atom feeds into the output directory.
Flags override the kiln.yml configuration file when both are present.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := platform.LoadConfig(platform.ConfigFileName)
		if err != nil {
			fatal("Failed to load configuration", err)
		}

		source := cfg.Source
		if source == "" {
			source = "content"
		}
		if cmd.Flags().Changed("source") {
			source = buildSource
		}

		opts := cfg.Options()
		if cmd.Flags().Changed("output") {
			opts = append(opts, kiln.WithOutputDir(buildOutput))
		}
		if cmd.Flags().Changed("template") {
			opts = append(opts, kiln.WithDefaultTemplate(buildTemplate))
		}
		if cmd.Flags().Changed("feed-ext") {
			opts = append(opts, kiln.WithFeedExtension(buildFeedExt))
		}
		if cmd.Flags().Changed("exclude") {
			opts = append(opts, kiln.WithExclude(buildExclude...))
		}
		if cmd.Flags().Changed("jobs") {
			opts = append(opts, kiln.WithConcurrency(buildJobs))
		}
		opts = append(opts, kiln.WithLogger(slog.Default()))

		service, err := kiln.New(source, opts...)
		if err != nil {
			fatal("Failed to initialize kiln", err)
		}

		report, err := service.Build(context.Background())
		if err != nil {
			fatal("Build failed", err)
		}

		for _, failure := range report.Failures {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", failure.Path, failure.Err)
		}
		fmt.Printf("Baked %d pages, %d copies, %d feeds.\n", report.Pages, report.Copies, report.Feeds)

		if report.Pages == 0 {
			fmt.Fprintln(os.Stderr, "No pages were generated.")
			os.Exit(1)
		}
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildSource, "source", "s", "content", "Source content directory")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "dist", "Output directory")
	buildCmd.Flags().StringVarP(&buildTemplate, "template", "t", "", "Default template, relative to the source directory")
	buildCmd.Flags().StringVar(&buildFeedExt, "feed-ext", "atom", "File extension of Atom feed skeletons")
	buildCmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "Glob patterns of source paths to ignore")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Number of pages processed in parallel (0 = default)")

	rootCmd.AddCommand(buildCmd)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prlab/prcrawl/internal/analysis"
	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/storage"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Runs the correlation studies over previously fetched data",
	Long: `Loads the pull request CSV produced by fetch and computes the eight
research questions: PR size, duration, description length and
interaction counts, each against the merge outcome and the number of
reviews. Results are written as JSON plus a markdown summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}

		prPath := filepath.Join(cfg.DataDir, "pull_requests.csv")
		prs, err := storage.LoadPullRequests(prPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "No data found at %s. Run fetch first. (%v)\n", prPath, err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d pull requests for analysis.\n", len(prs))

		results, err := analysis.Run(prs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
			os.Exit(1)
		}

		resultsPath := filepath.Join(cfg.DataDir, "results.json")
		if err := analysis.WriteResults(resultsPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results: %v\n", err)
			os.Exit(1)
		}

		summary := analysis.Summary(results)
		summaryPath := filepath.Join(cfg.DataDir, "summary.md")
		if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write summary: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(summary)
		fmt.Printf("Results written to %s and %s\n", resultsPath, summaryPath)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("data-dir", "data", "Directory containing the fetched CSV files")
}

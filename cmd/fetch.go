package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/gateway"
	"github.com/prlab/prcrawl/internal/storage"
	"github.com/prlab/prcrawl/internal/usecase"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Crawls repositories and pull requests from GitHub into CSV files",
	Long: `Walks the star-ordered repository search, selects repositories with
enough merged/closed pull requests, crawls each one's pull requests with
their review, comment and participant counters, and saves everything
under the data directory. Progress is checkpointed so a crashed run
keeps its completed work.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		applyFetchFlags(cmd, cfg)

		if err := cfg.RequireToken(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := storage.NewCheckpointStore(cfg.DataDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to prepare data directory: %v\n", err)
			os.Exit(1)
		}

		gw := gateway.NewGitHubGateway(cfg, logger)

		fmt.Printf("Fetching up to %d repositories with at least %d PRs...\n", cfg.RepoLimit, cfg.MinPRCount)
		repoGatherer := usecase.NewRepoGatherer(gw, cfg, logger)
		repos, err := repoGatherer.Gather(ctx, cfg.RepoLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to gather repositories: %v\n", err)
			os.Exit(1)
		}
		if len(repos) == 0 {
			fmt.Fprintln(os.Stderr, "No repositories matched the criteria. Check the query or lower --min-pr-count.")
			os.Exit(1)
		}

		repoPath := filepath.Join(cfg.DataDir, "repositories.csv")
		if err := storage.SaveRepositories(repoPath, repos); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save repositories: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %d repositories to %s\n", len(repos), repoPath)

		fmt.Println("Fetching pull requests that match the criteria...")
		pullGatherer := usecase.NewPullGatherer(gw, cfg, store, logger)
		prs, err := pullGatherer.Gather(ctx, repos)
		if err != nil || len(prs) == 0 {
			// The crawl died or produced nothing; fall back to the most
			// recent checkpoint from this or an earlier run.
			if err != nil {
				fmt.Fprintf(os.Stderr, "Pull request crawl failed: %v\n", err)
			}
			recovered, ok, loadErr := store.LoadLatest()
			if loadErr != nil || !ok {
				fmt.Fprintln(os.Stderr, "No checkpoint available to recover from.")
				os.Exit(1)
			}
			fmt.Printf("Recovered %d pull requests from the latest checkpoint\n", len(recovered))
			prs = recovered
		}

		prPath := filepath.Join(cfg.DataDir, "pull_requests.csv")
		if err := storage.SavePullRequests(prPath, prs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save pull requests: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %d pull requests across %d repositories to %s\n", len(prs), len(repos), prPath)
	},
}

func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("repo-limit") {
		cfg.RepoLimit, _ = cmd.Flags().GetInt("repo-limit")
	}
	if cmd.Flags().Changed("max-prs") {
		cfg.MaxPRsPerRepo, _ = cmd.Flags().GetInt("max-prs")
	}
	if cmd.Flags().Changed("min-pr-count") {
		cfg.MinPRCount, _ = cmd.Flags().GetInt("min-pr-count")
	}
	if cmd.Flags().Changed("timeout") {
		seconds, _ := cmd.Flags().GetInt("timeout")
		cfg.RequestTimeout = time.Duration(seconds) * time.Second
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Int("repo-limit", 50, "Number of repositories to crawl")
	fetchCmd.Flags().Int("max-prs", 50, "Maximum pull requests per repository")
	fetchCmd.Flags().Int("min-pr-count", 100, "Minimum merged/closed PR count for a repository to qualify")
	fetchCmd.Flags().Int("timeout", 30, "Timeout for GitHub API requests in seconds")
	fetchCmd.Flags().String("data-dir", "data", "Directory for CSV output and checkpoints")
}

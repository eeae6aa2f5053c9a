package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/storage"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspects and manages intermediate checkpoint files",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists checkpoint files in ascending order of record count",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := checkpointStore(cmd)
		cps, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list checkpoints: %v\n", err)
			os.Exit(1)
		}
		if len(cps) == 0 {
			fmt.Println("No checkpoints found.")
			return
		}
		for _, cp := range cps {
			fmt.Printf("%6d  %s\n", cp.Count, cp.Path)
		}
	},
}

var checkpointsRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Promotes the latest checkpoint to the final pull request CSV",
	Run: func(cmd *cobra.Command, args []string) {
		store, dataDir := checkpointStore(cmd)
		prs, ok, err := store.LoadLatest()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load latest checkpoint: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "No checkpoints to recover from.")
			os.Exit(1)
		}
		out := filepath.Join(dataDir, "pull_requests.csv")
		if err := storage.SavePullRequests(out, prs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Recovered %d pull requests into %s\n", len(prs), out)
	},
}

var checkpointsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Removes all checkpoint files except the latest one",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := checkpointStore(cmd)
		removed, err := store.Prune()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to prune checkpoints: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %d checkpoint file(s).\n", removed)
	},
}

func checkpointStore(cmd *cobra.Command) (*storage.CheckpointStore, string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	store, err := storage.NewCheckpointStore(cfg.DataDir, newLogger(cmd))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open checkpoint store: %v\n", err)
		os.Exit(1)
	}
	return store, cfg.DataDir
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsRecoverCmd)
	checkpointsCmd.AddCommand(checkpointsPruneCmd)
	checkpointsCmd.PersistentFlags().String("data-dir", "data", "Directory containing checkpoint files")
}

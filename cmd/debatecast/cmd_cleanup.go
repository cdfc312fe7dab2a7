package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsroom-labs/debatecast/internal/store"
)

func newCleanupCmd() *cobra.Command {
	var pruneCatalog bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove intermediate files and apply catalog retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd, pruneCatalog)
		},
	}
	cmd.Flags().BoolVar(&pruneCatalog, "prune-catalog", true, "Apply retention to the episode catalog")
	return cmd
}

func runCleanup(cmd *cobra.Command, pruneCatalog bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.RemoveAll(cfg.Workspace.WorkDir); err != nil {
		return fmt.Errorf("remove work dir: %w", err)
	}
	fmt.Println("removed", cfg.Workspace.WorkDir)

	if !pruneCatalog {
		return nil
	}

	catalog, err := store.Open(cmd.Context(), cfg.Store, log)
	if err != nil {
		return err
	}
	defer catalog.Close()
	return catalog.Prune(cmd.Context())
}

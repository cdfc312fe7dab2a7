package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsroom-labs/debatecast/internal/publish"
	"github.com/newsroom-labs/debatecast/internal/store"
)

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Rebuild and upload the podcast feed from the episode catalog",
		RunE:  runFeed,
	}
}

func runFeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := store.Open(cmd.Context(), cfg.Store, log)
	if err != nil {
		return err
	}
	defer catalog.Close()

	objects, err := publish.NewStore(cfg.Storage)
	if err != nil {
		return err
	}

	p := publish.NewPublisher(objects, catalog, cfg.Feed, log)
	if err := p.RefreshFeed(cmd.Context()); err != nil {
		return err
	}

	fmt.Println(objects.URL(publish.FeedName))
	return nil
}

package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/newsroom-labs/debatecast/internal/avatar"
	"github.com/newsroom-labs/debatecast/internal/character"
)

func newAvatarsCmd() *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "avatars",
		Short: "Generate avatar images for all configured characters",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runAvatars(regenerate)
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Redraw avatars even if cached")
	return cmd
}

func runAvatars(regenerate bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	characters, err := character.Load(cfg.Characters.Path)
	if err != nil {
		return err
	}

	mode, err := avatar.CacheModeFromString(cfg.Video.AvatarCache)
	if err != nil {
		return err
	}
	if regenerate {
		mode = avatar.CacheRegenerate
	}

	fonts := avatar.LoadFonts(cfg.Video.FontPaths, log)
	gen, err := avatar.NewGenerator(
		filepath.Join(cfg.Workspace.DataDir, "avatars"),
		cfg.Video.Width, cfg.Video.Height, mode, fonts, log)
	if err != nil {
		return err
	}

	paths, err := gen.GenerateAll(characters)
	if err != nil {
		return err
	}

	speakers := make([]string, 0, len(paths))
	for speaker := range paths {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)
	for _, speaker := range speakers {
		fmt.Printf("%s\t%s\n", speaker, paths[speaker])
	}
	return nil
}

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsroom-labs/debatecast/internal/avatar"
	"github.com/newsroom-labs/debatecast/internal/character"
	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
	"github.com/newsroom-labs/debatecast/internal/script"
	"github.com/newsroom-labs/debatecast/internal/video"
)

func newVideoCmd() *cobra.Command {
	var scriptPath, audioPath, outputPath string
	var keepWork bool
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Render the avatar video for an existing script and audio track",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVideo(cmd, scriptPath, audioPath, outputPath, keepWork)
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Debate script JSON")
	cmd.MarkFlagRequired("script")
	cmd.Flags().StringVarP(&audioPath, "audio", "a", "", "Mixed episode audio")
	cmd.MarkFlagRequired("audio")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "episode.mp4", "Output video path")
	cmd.Flags().BoolVar(&keepWork, "keep-work", false, "Keep segment files")
	return cmd
}

func runVideo(cmd *cobra.Command, scriptPath, audioPath, outputPath string, keepWork bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := script.Load(scriptPath)
	if err != nil {
		return err
	}
	characters, err := character.Load(cfg.Characters.Path)
	if err != nil {
		return err
	}

	fonts := avatar.LoadFonts(cfg.Video.FontPaths, log)
	mode, err := avatar.CacheModeFromString(cfg.Video.AvatarCache)
	if err != nil {
		return err
	}
	avatarDir := filepath.Join(cfg.Workspace.DataDir, "avatars")
	avatars, err := avatar.NewGenerator(avatarDir, cfg.Video.Width, cfg.Video.Height, mode, fonts, log)
	if err != nil {
		return err
	}

	set := video.NewAvatarSet()
	for _, line := range s.Lines {
		if _, ok := set.Lookup(line.Speaker); ok {
			continue
		}
		c := character.ApplyDefaults(line.Speaker, characters[line.Speaker])
		path, err := avatars.Generate(line.Speaker, c)
		if err != nil {
			return fmt.Errorf("avatar for %s: %w", line.Speaker, err)
		}
		set.Add(line.Speaker, path)
	}

	fontFile, err := fonts.DrawtextPath(filepath.Join(cfg.Workspace.DataDir, "fonts"))
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Video.FFmpegTimeout) * time.Millisecond
	runner, err := ffmpeg.NewExecRunner(cfg.Video.FFmpegCommand, timeout, log)
	if err != nil {
		return err
	}

	segments := video.NewSegmentRenderer(runner, fontFile, cfg.Video.SegmentPreset, cfg.Video.CRF, log)
	concat := video.NewConcatenator(runner, cfg.Video.FinalPreset, cfg.Video.AudioBitrate, cfg.Video.CRF, log)
	workDir := filepath.Join(cfg.Workspace.WorkDir, "video")
	gen, err := video.NewGenerator(workDir, cfg.Characters.DefaultSpeaker, segments, concat, log)
	if err != nil {
		return err
	}

	out, err := gen.Generate(cmd.Context(), s, set, audioPath, outputPath)
	if err != nil {
		return err
	}
	if !keepWork {
		if err := video.Cleanup(workDir); err != nil {
			return err
		}
	}

	fmt.Println(out)
	return nil
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/medley/internal/playlist"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a playlist file",
	Long:  "Load a playlist YAML file and report its tracks and any cue problems without starting playback",
	RunE:  runValidate,
}

var validatePlaylistPath string

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validatePlaylistPath, "playlist", "", "Path to playlist YAML file (required)")
	validateCmd.MarkFlagRequired("playlist")
}

func runValidate(cmd *cobra.Command, args []string) error {
	store := playlist.NewStore("validate", zerolog.Nop())
	if err := store.LoadFile(validatePlaylistPath); err != nil {
		return err
	}

	snapshot := store.Snapshot()
	fmt.Printf("Playlist: %s (%d tracks)\n\n", snapshot.Name, len(snapshot.Tracks))

	warnings := 0
	for i, track := range snapshot.Tracks {
		line := fmt.Sprintf("%3d. %s", i+1, track.Title)
		if track.Artist != "" {
			line += " - " + track.Artist
		}
		switch {
		case track.CueIn == nil && track.CueOut == nil:
			line += " (full track)"
		case track.HasValidCue():
			line += fmt.Sprintf(" (cue %.1fs-%.1fs)", *track.CueIn, *track.CueOut)
		default:
			line += " (WARNING: malformed cue window, will play full track)"
			warnings++
		}
		if track.Locked {
			line += " [locked]"
		}
		fmt.Println(line)
	}

	fmt.Println()
	if warnings > 0 {
		fmt.Printf("%d track(s) with malformed cue windows\n", warnings)
	} else {
		fmt.Println("All cue windows valid")
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/cardsage/cardsage/internal/cli"
	"github.com/cardsage/cardsage/internal/profile"
	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [files...]",
		Short: "Derive spending focus from OFX statements",
		Long: `Parse OFX or QFX statements exported from your bank and show the
spending focus the recommend command would derive from them.

Examples:
  # Single statement
  cardsage profile ~/Downloads/jan_2026.ofx

  # Everything exported this quarter
  cardsage profile ~/Downloads/statements/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProfile,
	}
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Expand glob patterns the shell did not expand
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// Try as a direct file path
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no statement files found")
	}

	parser := profile.NewParser()
	var allSpends []profile.Spend

	for _, filePath := range allFiles {
		f, err := os.Open(filePath) // #nosec G304 -- user-supplied statement path
		if err != nil {
			slog.Error("Failed to open statement", "file", filePath, "error", err)
			continue
		}

		spends, err := parser.Parse(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse statement", "file", filePath, "error", err)
			continue
		}

		slog.Info("Parsed statement", "file", filepath.Base(filePath), "entries", len(spends))
		allSpends = append(allSpends, spends...)
	}

	if len(allSpends) == 0 {
		return fmt.Errorf("no spend entries found in %d file(s)", len(allFiles))
	}

	focus := profile.DeriveFocus(allSpends)
	fmt.Println(cli.RenderFocus(allSpends, focus))
	return nil
}

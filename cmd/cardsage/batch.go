package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"log/slog"

	"github.com/cardsage/cardsage/internal/cli"
	"github.com/cardsage/cardsage/internal/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <queries.txt>",
		Short: "Run the pipeline for every query in a file",
		Long: `Run one recommendation per line of the given file and print a summary
table. Blank lines and lines starting with # are skipped.

Useful for checking how a catalog or prompt change shifts a whole set of
recommendations at once.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	addRunFlags(cmd)
	cmd.Flags().Bool("trace", false, "export OpenTelemetry traces for the batch")

	return cmd
}

type batchResult struct {
	err        error
	query      string
	topCard    string
	confidence float64
	warnings   int
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	locale, _ := cmd.Flags().GetString("locale")
	trace, _ := cmd.Flags().GetBool("trace")
	consent := consentFromFlags(cmd)

	queries, err := readQueries(config.ExpandPath(args[0]))
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries found in %s", args[0])
	}

	eng, cleanup, err := buildEngine(ctx, cmd, trace)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(queries),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Running recommendations...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	started := time.Now()
	results := make([]batchResult, 0, len(queries))
	for _, query := range queries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		session, runErr := eng.Run(ctx, query, locale, consent)
		result := batchResult{query: query, err: runErr}
		if runErr == nil && session.Answer != nil {
			result.confidence = session.Answer.Confidence
			result.warnings = len(session.Warnings())
			if top := session.Answer.Top(); top != nil {
				result.topCard = top.Card.Name
			}
		}
		results = append(results, result)

		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	printBatchSummary(results, time.Since(started))
	return nil
}

// readQueries loads one query per line, skipping blanks and # comments.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied query file
	if err != nil {
		return nil, fmt.Errorf("failed to open query file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}

	return queries, nil
}

func printBatchSummary(results []batchResult, elapsed time.Duration) {
	fmt.Println(cli.FormatTitle("Batch summary"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Query"),
		cli.TableHeaderStyle.Render("Top Card"),
		cli.TableHeaderStyle.Render("Confidence"),
		cli.TableHeaderStyle.Render("Warnings"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 30),
		strings.Repeat("-", 20),
		strings.Repeat("-", 10),
		strings.Repeat("-", 8))

	failures := 0
	for _, result := range results {
		if result.err != nil {
			failures++
			fmt.Fprintf(w, "%s\t%s\t-\t-\n",
				truncate(result.query, 40),
				cli.ErrorStyle.Render("failed: "+result.err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			truncate(result.query, 40),
			result.topCard,
			cli.ScoreStyle(result.confidence).Render(fmt.Sprintf("%.2f", result.confidence)),
			result.warnings)
	}

	_ = w.Flush()

	fmt.Println()
	summary := fmt.Sprintf("%d queries in %s", len(results), elapsed.Round(time.Millisecond))
	if failures > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%s (%d failed)", summary, failures)))
		return
	}
	fmt.Println(cli.SubtleStyle.Render(summary))
}

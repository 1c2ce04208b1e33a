package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pricesync/internal/config"
	"pricesync/internal/pricestore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent reconciliation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if ctx.jsonMode() {
					type jsonRun struct {
						ID              string               `json:"id"`
						Status          pricestore.RunStatus `json:"status"`
						SetFilter       string               `json:"set_filter,omitempty"`
						CardFilter      string               `json:"card_filter,omitempty"`
						Processed       int                  `json:"processed"`
						Found           int                  `json:"found"`
						NotFound        int                  `json:"not_found"`
						ManualPreserved int                  `json:"manual_preserved"`
						ManualOrphaned  int                  `json:"manual_orphaned"`
						SetsProcessed   int                  `json:"sets_processed"`
						SetsSkipped     int                  `json:"sets_skipped"`
						AliasFailures   int                  `json:"alias_failures"`
						WriteFailures   int                  `json:"write_failures"`
						ErrorMessage    string               `json:"error,omitempty"`
						StartedAt       time.Time            `json:"started_at"`
						FinishedAt      *time.Time           `json:"finished_at,omitempty"`
					}
					out := make([]jsonRun, 0, len(runs))
					for _, run := range runs {
						out = append(out, jsonRun(*run))
					}
					return writeJSON(cmd, map[string]any{"runs": out})
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						string(run.Status),
						formatTimestamp(run.StartedAt),
						runDuration(run),
						strconv.Itoa(run.Processed),
						strconv.Itoa(run.Found),
						strconv.Itoa(run.NotFound),
						strconv.Itoa(run.ManualOrphaned),
						run.ErrorMessage,
					})
				}
				columns := []column{
					{title: "Run"},
					{title: "Status"},
					{title: "Started"},
					{title: "Duration", numeric: true},
					{title: "Processed", numeric: true},
					{title: "Found", numeric: true},
					{title: "Not found", numeric: true},
					{title: "Orphaned", numeric: true},
					{title: "Error"},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func runDuration(run *pricestore.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

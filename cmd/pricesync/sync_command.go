package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pricesync/internal/config"
	"pricesync/internal/logging"
	"pricesync/internal/pricestore"
	"pricesync/internal/reconcile"
	"pricesync/internal/runlock"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var setID string
	var cardSubstring string
	var debug bool
	var listSets bool
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog against the marketplace and store prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if listSets {
				return printSets(cmd, cfg, ctx.jsonMode())
			}
			if path := strings.TrimSpace(catalogPath); path != "" {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return fmt.Errorf("resolve catalog path: %w", err)
				}
				cfg.Paths.CatalogFile = expanded
			}

			level := ""
			if debug {
				level = "debug"
			}
			runID := uuid.NewString()
			logger, err := ctx.logger(level, runID)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			// Opening the store applies migrations, so the run lock comes first.
			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("failed to release run lock", logging.Error(err))
				}
			}()
			logger.Debug("run lock acquired", logging.String("lock", lock.Path()))

			return ctx.withStore(func(cfg *config.Config, store *pricestore.Store) error {
				logger.Debug("price store opened",
					logging.String("driver", store.Driver()),
					logging.String("path", store.Path()),
				)
				driver, err := reconcile.NewFromConfig(cfg, store, logger, reconcile.WithHeldLock(lock))
				if err != nil {
					return err
				}
				runCtx := logging.WithRunID(cmd.Context(), runID)
				summary, runErr := driver.Run(runCtx, reconcile.Filter{SetID: setID, CardSubstring: cardSubstring})
				if summary != nil {
					if err := printSummary(cmd, summary, ctx.jsonMode()); err != nil {
						return err
					}
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&setID, "set", "", "Only reconcile this set id (e.g. OP13)")
	cmd.Flags().StringVar(&cardSubstring, "card", "", "Only reconcile cards whose id contains this substring")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log match traces at debug level")
	cmd.Flags().BoolVar(&listSets, "list-sets", false, "Print the configured set aliases and exit")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog file to read instead of paths.catalog_file")
	return cmd
}

func printSets(cmd *cobra.Command, cfg *config.Config, asJSON bool) error {
	if asJSON {
		type jsonSet struct {
			ID      string   `json:"id"`
			Name    string   `json:"name,omitempty"`
			Aliases []string `json:"aliases"`
			Reprint bool     `json:"reprint"`
		}
		sets := make([]jsonSet, 0, len(cfg.Sets))
		for _, set := range cfg.Sets {
			sets = append(sets, jsonSet{ID: set.ID, Name: set.Name, Aliases: set.Aliases, Reprint: set.Reprint})
		}
		return writeJSON(cmd, map[string]any{"sets": sets})
	}

	rows := make([][]string, 0, len(cfg.Sets))
	for _, set := range cfg.Sets {
		rows = append(rows, []string{set.ID, set.Name, strings.Join(set.Aliases, ", "), yesNo(set.Reprint)})
	}
	columns := []column{{title: "Set"}, {title: "Name"}, {title: "Aliases"}, {title: "Reprint"}}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
	return nil
}

type jsonSetSummary struct {
	SetID      string `json:"set_id"`
	Cards      int    `json:"cards"`
	Candidates int    `json:"candidates"`
	Found      int    `json:"found"`
	NotFound   int    `json:"not_found"`
	Skipped    bool   `json:"skipped,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type jsonSummary struct {
	RunID            string           `json:"run_id"`
	Phase            string           `json:"phase"`
	Processed        int              `json:"processed"`
	Found            int              `json:"found"`
	NotFound         int              `json:"not_found"`
	ManualPreserved  int              `json:"manual_preserved"`
	ManualOrphaned   int              `json:"manual_orphaned"`
	ManualUnverified int              `json:"manual_unverified"`
	SetsProcessed    int              `json:"sets_processed"`
	SetsSkipped      int              `json:"sets_skipped"`
	AliasFailures    int              `json:"alias_failures"`
	WriteFailures    int              `json:"write_failures"`
	LastSalesApplied int              `json:"last_sales_applied"`
	ElapsedSeconds   float64          `json:"elapsed_seconds"`
	Sets             []jsonSetSummary `json:"sets"`
}

func printSummary(cmd *cobra.Command, summary *reconcile.Summary, asJSON bool) error {
	if asJSON {
		out := jsonSummary{
			RunID:            summary.RunID,
			Phase:            string(summary.Phase),
			Processed:        summary.Processed,
			Found:            summary.Found,
			NotFound:         summary.NotFound,
			ManualPreserved:  summary.ManualPreserved,
			ManualOrphaned:   summary.ManualOrphaned,
			ManualUnverified: summary.ManualUnverified,
			SetsProcessed:    summary.SetsProcessed,
			SetsSkipped:      summary.SetsSkipped,
			AliasFailures:    summary.AliasFailures,
			WriteFailures:    summary.WriteFailures,
			LastSalesApplied: summary.LastSalesApplied,
			ElapsedSeconds:   summary.Elapsed.Seconds(),
			Sets:             make([]jsonSetSummary, 0, len(summary.Sets)),
		}
		for _, set := range summary.Sets {
			out.Sets = append(out.Sets, jsonSetSummary(set))
		}
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	if isTerminal(w) {
		printSummaryTable(w, summary)
		return nil
	}
	printSummaryLines(w, summary)
	return nil
}

func summaryTotals(summary *reconcile.Summary) [][2]string {
	return [][2]string{
		{"Run", summary.RunID},
		{"Phase", string(summary.Phase)},
		{"Processed", strconv.Itoa(summary.Processed)},
		{"Found", strconv.Itoa(summary.Found)},
		{"Not found", strconv.Itoa(summary.NotFound)},
		{"Manual preserved", strconv.Itoa(summary.ManualPreserved)},
		{"Manual orphaned", strconv.Itoa(summary.ManualOrphaned)},
		{"Manual unverified", strconv.Itoa(summary.ManualUnverified)},
		{"Sets processed", strconv.Itoa(summary.SetsProcessed)},
		{"Sets skipped", strconv.Itoa(summary.SetsSkipped)},
		{"Alias failures", strconv.Itoa(summary.AliasFailures)},
		{"Write failures", strconv.Itoa(summary.WriteFailures)},
		{"Last sales", strconv.Itoa(summary.LastSalesApplied)},
		{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
	}
}

func printSummaryLines(w io.Writer, summary *reconcile.Summary) {
	for _, total := range summaryTotals(summary) {
		fmt.Fprintf(w, "%s: %s\n", total[0], total[1])
	}
	for _, set := range summary.Sets {
		if set.Skipped {
			fmt.Fprintf(w, "set %s: skipped (%s)\n", set.SetID, set.Reason)
			continue
		}
		fmt.Fprintf(w, "set %s: %d cards, %d candidates, %d found, %d not found\n",
			set.SetID, set.Cards, set.Candidates, set.Found, set.NotFound)
	}
}

func printSummaryTable(w io.Writer, summary *reconcile.Summary) {
	if len(summary.Sets) > 0 {
		rows := make([][]string, 0, len(summary.Sets))
		for _, set := range summary.Sets {
			if set.Skipped {
				rows = append(rows, []string{set.SetID, strconv.Itoa(set.Cards), "-", "-", "-", set.Reason})
				continue
			}
			rows = append(rows, []string{
				set.SetID,
				strconv.Itoa(set.Cards),
				strconv.Itoa(set.Candidates),
				strconv.Itoa(set.Found),
				strconv.Itoa(set.NotFound),
				"",
			})
		}
		columns := []column{
			{title: "Set"},
			{title: "Cards", numeric: true},
			{title: "Candidates", numeric: true},
			{title: "Found", numeric: true},
			{title: "Not found", numeric: true},
			{title: "Note"},
		}
		fmt.Fprintln(w, renderTable(columns, rows))
	}

	totals := summaryTotals(summary)
	rows := make([][]string, 0, len(totals))
	for _, total := range totals {
		rows = append(rows, []string{total[0], total[1]})
	}
	fmt.Fprintln(w, renderTable([]column{{title: "Total"}, {title: "Value", numeric: true}}, rows))
}

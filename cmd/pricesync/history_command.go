package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricesync/internal/config"
	"pricesync/internal/pricestore"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <productId>",
		Short: "Show daily price snapshots for a product, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				snapshots, err := store.History(cmd.Context(), productID, limit)
				if err != nil {
					return fmt.Errorf("load history: %w", err)
				}
				if ctx.jsonMode() {
					type jsonSnapshot struct {
						Date string `json:"recorded_date"`
						jsonPrices
					}
					out := make([]jsonSnapshot, 0, len(snapshots))
					for _, snap := range snapshots {
						out = append(out, jsonSnapshot{Date: formatDate(&snap.RecordedDate), jsonPrices: pricesJSON(snap.Prices)})
					}
					return writeJSON(cmd, map[string]any{"product_id": productID, "history": out})
				}
				if len(snapshots) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No history for product %d\n", productID)
					return nil
				}
				rows := make([][]string, 0, len(snapshots))
				for _, snap := range snapshots {
					rows = append(rows, []string{
						formatDate(&snap.RecordedDate),
						formatMoney(snap.Prices.Market),
						formatMoney(snap.Prices.Lowest),
						formatMoney(snap.Prices.Median),
						formatListings(snap.Prices.Listings),
					})
				}
				columns := []column{
					{title: "Date"},
					{title: "Market", numeric: true},
					{title: "Lowest", numeric: true},
					{title: "Median", numeric: true},
					{title: "Listings", numeric: true},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 30, "Maximum number of days to show")
	return cmd
}

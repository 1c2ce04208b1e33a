package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pricesync/internal/config"
	"pricesync/internal/pricestore"
)

func newPricesCommand(ctx *commandContext) *cobra.Command {
	var cardFilter string

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "List stored card prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				rows, err := store.ListMappings(cmd.Context())
				if err != nil {
					return fmt.Errorf("list prices: %w", err)
				}
				if needle := strings.ToUpper(strings.TrimSpace(cardFilter)); needle != "" {
					kept := rows[:0]
					for _, row := range rows {
						if strings.Contains(strings.ToUpper(row.CardID), needle) {
							kept = append(kept, row)
						}
					}
					rows = kept
				}
				if ctx.jsonMode() {
					out := make([]jsonMapping, 0, len(rows))
					for _, row := range rows {
						out = append(out, mappingJSON(row))
					}
					return writeJSON(cmd, map[string]any{"prices": out})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stored prices")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					table = append(table, []string{
						row.CardID,
						formatProductID(row.ProductID),
						row.ProductName,
						formatMoney(row.Prices.Market),
						formatMoney(row.Prices.Lowest),
						formatMoney(row.Prices.Median),
						formatListings(row.Prices.Listings),
						formatMoney(row.LastSoldPrice),
						yesNo(row.ManuallyMapped),
					})
				}
				columns := []column{
					{title: "Card"},
					{title: "Product", numeric: true},
					{title: "Name"},
					{title: "Market", numeric: true},
					{title: "Lowest", numeric: true},
					{title: "Median", numeric: true},
					{title: "Listings", numeric: true},
					{title: "Last Sold", numeric: true},
					{title: "Manual"},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, table))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&cardFilter, "card", "", "Only show cards whose id contains this text")
	return cmd
}

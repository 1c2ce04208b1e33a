package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pricesync/internal/config"
	"pricesync/internal/pricestore"
)

func newOverrideCommand(ctx *commandContext) *cobra.Command {
	overrideCmd := &cobra.Command{
		Use:   "override",
		Short: "Manage manual card-to-product overrides",
	}

	overrideCmd.AddCommand(newOverrideListCommand(ctx))
	overrideCmd.AddCommand(newOverrideSetCommand(ctx))
	overrideCmd.AddCommand(newOverrideRevertCommand(ctx))

	return overrideCmd
}

func newOverrideListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manually mapped cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				rows, err := store.ListOverrides(cmd.Context())
				if err != nil {
					return fmt.Errorf("list overrides: %w", err)
				}
				if ctx.jsonMode() {
					out := make([]jsonMapping, 0, len(rows))
					for _, row := range rows {
						out = append(out, mappingJSON(row))
					}
					return writeJSON(cmd, map[string]any{"overrides": out})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No overrides")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					table = append(table, []string{
						row.CardID,
						formatProductID(row.ProductID),
						row.ProductName,
						formatMoney(row.Prices.Market),
						formatTimestamp(row.UpdatedAt),
					})
				}
				columns := []column{
					{title: "Card"},
					{title: "Product", numeric: true},
					{title: "Name"},
					{title: "Market", numeric: true},
					{title: "Updated"},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, table))
				return nil
			})
		},
	}
}

func newOverrideSetCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "set <cardId> <productId>",
		Short: "Pin a card to a marketplace product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID := strings.TrimSpace(args[0])
			if cardID == "" {
				return errors.New("card id is required")
			}
			productID, err := parseProductID(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				if err := store.ConfirmOverride(cmd.Context(), cardID, productID, strings.TrimSpace(name)); err != nil {
					return fmt.Errorf("set override: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Card %s pinned to product %d\n", cardID, productID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name to record until the next sync")
	return cmd
}

func newOverrideRevertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <cardId>",
		Short: "Remove a manual override so the card is matched automatically again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID := strings.TrimSpace(args[0])
			return ctx.withStore(func(_ *config.Config, store *pricestore.Store) error {
				removed, err := store.RevertOverride(cmd.Context(), cardID)
				if err != nil {
					return fmt.Errorf("revert override: %w", err)
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Card %s has no manual override\n", cardID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Override for card %s removed\n", cardID)
				return nil
			})
		},
	}
}

func parseProductID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return id, nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

var errNotConfirmed = errors.New("refusing to clear the ledger without --yes")

func (a *app) initialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initial",
		Short: "Manage the starting balance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set AMOUNT",
		Short: "Set the starting balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return core.Invalid("initialAmount", err)
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				v, err := s.SetInitialAmount(ctx, amount)
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initial amount set to %s\n", money(v))
				return report(cmd, err)
			})
		},
	})
	return cmd
}

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the display name",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set NAME",
		Short: "Set the display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				name, err := s.SetUserName(ctx, strings.Join(args, " "))
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User name set to %q\n", name)
				return report(cmd, err)
			})
		},
	})
	return cmd
}

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budget",
		Aliases: []string{"budgets"},
		Short:   "Manage monthly category budgets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set CATEGORY LIMIT",
		Short: "Create or replace the budget of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := core.ParseAmount(args[1])
			if err != nil {
				return core.Invalid("limit", err)
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				b, err := s.SetBudget(ctx, core.NewCategory(args[0]), limit)
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Budget %s set to %s\n", b.Category, money(b.Limit))
				return report(cmd, err)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm CATEGORY",
		Aliases: []string{"delete"},
		Short:   "Remove the budget of a category",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				deleted, err := s.DeleteBudget(ctx, core.NewCategory(args[0]))
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "%s budget %s\n", successStyle.Render("Deleted"), args[0])
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No budget for "+args[0]))
				}
				return report(cmd, err)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List budgets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				budgets := s.Budgets()
				if len(budgets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No budgets defined."))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, b := range budgets {
					fmt.Fprintf(w, "%s\t%s\n", b.Category, money(b.Limit))
				}
				return w.Flush()
			})
		},
	})
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense and income entry and reset the starting balance",
		Long: `Delete every expense and income entry and reset the starting balance.
Budgets and the display name are kept, and record ids are never reused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				err := s.ClearAll(ctx)
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("Ledger cleared"))
				return report(cmd, err)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

// recordFlags holds the flag values shared by add and edit.
type recordFlags struct {
	amount   string
	category string
	name     string
	date     string
	note     string
}

func (f *recordFlags) register(cmd *cobra.Command, withNote bool) {
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, dot or comma decimal separator")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "description")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date as YYYY-MM-DD or DD/MM/YYYY (default today)")
	if withNote {
		cmd.Flags().StringVar(&f.note, "note", "", "free-form note")
	}
}

func (f *recordFlags) parseAmount() (decimal.Decimal, error) {
	d, err := core.ParseAmount(f.amount)
	if err != nil {
		return decimal.Zero, core.Invalid("amount", err)
	}
	return d, nil
}

func (f *recordFlags) parseDate() (core.Date, error) {
	if f.date == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(f.date)
	if err != nil {
		return core.Date{}, core.Invalid("date", err)
	}
	return d, nil
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func (a *app) expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"gasto"},
		Short:   "Manage expenses",
	}
	cmd.AddCommand(a.expenseAddCmd(), a.expenseEditCmd(), a.expenseRmCmd(), a.expenseLsCmd())
	return cmd
}

func (a *app) expenseAddCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := f.parseAmount()
			if err != nil {
				return err
			}
			date, err := f.parseDate()
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				e, err := s.AddExpense(ctx, ledger.ExpenseInput{
					Amount:   amount,
					Category: core.NewCategory(f.category),
					Name:     f.name,
					Date:     date,
					Note:     f.note,
				})
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s expense #%d %s %s (%s)\n",
					successStyle.Render("Added"), e.ID, money(e.Amount), e.Name, categoryLabel(e.Category, core.KindExpense))
				return report(cmd, err)
			})
		},
	}
	f.register(cmd, true)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) expenseEditCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an expense; omitted flags are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			var p ledger.ExpensePatch
			flags := cmd.Flags()
			if flags.Changed("amount") {
				amount, err := f.parseAmount()
				if err != nil {
					return err
				}
				p.Amount = &amount
			}
			if flags.Changed("category") {
				c := core.NewCategory(f.category)
				p.Category = &c
			}
			if flags.Changed("name") {
				p.Name = &f.name
			}
			if flags.Changed("date") {
				date, err := f.parseDate()
				if err != nil {
					return err
				}
				p.Date = &date
			}
			if flags.Changed("note") {
				p.Note = &f.note
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				e, err := s.UpdateExpense(ctx, id, p)
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s expense #%d %s %s (%s)\n",
					successStyle.Render("Updated"), e.ID, money(e.Amount), e.Name, e.Category)
				return report(cmd, err)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func (a *app) expenseRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				deleted, err := s.DeleteExpense(ctx, id)
				printDeleted(cmd, "expense", id, deleted)
				return report(cmd, err)
			})
		},
	}
}

func (a *app) expenseLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List expenses, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				expenses := s.ListExpenses()
				if len(expenses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No expenses recorded."))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("ID"), headerStyle.Render("Date"), headerStyle.Render("Amount"),
					headerStyle.Render("Category"), headerStyle.Render("Name"), headerStyle.Render("Note"))
				for _, e := range expenses {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, money(e.Amount), e.Category, e.Name, e.Note)
				}
				return w.Flush()
			})
		},
	}
}

func (a *app) incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "income",
		Aliases: []string{"ingreso", "receivable"},
		Short:   "Manage income",
	}
	cmd.AddCommand(a.incomeAddCmd(), a.incomeEditCmd(), a.incomeRmCmd(), a.incomeLsCmd())
	return cmd
}

func (a *app) incomeAddCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := f.parseAmount()
			if err != nil {
				return err
			}
			date, err := f.parseDate()
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				r, err := s.AddReceivable(ctx, ledger.ReceivableInput{
					Amount:   amount,
					Category: core.NewCategory(f.category),
					Name:     f.name,
					Date:     date,
				})
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s income #%d %s %s (%s)\n",
					successStyle.Render("Added"), r.ID, money(r.Amount), r.Name, categoryLabel(r.Category, core.KindReceivable))
				return report(cmd, err)
			})
		},
	}
	f.register(cmd, false)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) incomeEditCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an income entry; omitted flags are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			var p ledger.ReceivablePatch
			flags := cmd.Flags()
			if flags.Changed("amount") {
				amount, err := f.parseAmount()
				if err != nil {
					return err
				}
				p.Amount = &amount
			}
			if flags.Changed("category") {
				c := core.NewCategory(f.category)
				p.Category = &c
			}
			if flags.Changed("name") {
				p.Name = &f.name
			}
			if flags.Changed("date") {
				date, err := f.parseDate()
				if err != nil {
					return err
				}
				p.Date = &date
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				r, err := s.UpdateReceivable(ctx, id, p)
				if err != nil && !core.IsPersistence(err) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s income #%d %s %s (%s)\n",
					successStyle.Render("Updated"), r.ID, money(r.Amount), r.Name, r.Category)
				return report(cmd, err)
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) incomeRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an income entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, s *ledger.Store) error {
				deleted, err := s.DeleteReceivable(ctx, id)
				printDeleted(cmd, "income", id, deleted)
				return report(cmd, err)
			})
		},
	}
}

func (a *app) incomeLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List income, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				receivables := s.ListReceivables()
				if len(receivables) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No income recorded."))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("ID"), headerStyle.Render("Date"), headerStyle.Render("Amount"),
					headerStyle.Render("Category"), headerStyle.Render("Name"))
				for _, r := range receivables {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Date, money(r.Amount), r.Category, r.Name)
				}
				return w.Flush()
			})
		},
	}
}

func printDeleted(cmd *cobra.Command, kind string, id int64, deleted bool) {
	if deleted {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d\n", successStyle.Render("Deleted"), kind, id)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", subtleStyle.Render(fmt.Sprintf("No %s #%d, nothing to delete", kind, id)))
}

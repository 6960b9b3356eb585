package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"gastos/internal/aggregate"
	"gastos/internal/core"
	"gastos/internal/ledger"
)

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				printBalance(cmd.OutOrStdout(), aggregate.CurrentBalance(s.Snapshot()))
				return nil
			})
		},
	}
}

func printBalance(w io.Writer, balance decimal.Decimal) {
	style := successStyle
	if balance.IsNegative() {
		style = errorStyle
	}
	fmt.Fprintf(w, "Balance: %s\n", style.Render(money(balance)))
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show headline figures and spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				snap := s.Snapshot()
				sum := aggregate.Summarize(snap)
				out := cmd.OutOrStdout()

				title := "Summary"
				if sum.UserName != "" {
					title = "Summary for " + sum.UserName
				}
				fmt.Fprintln(out, titleStyle.Render(title))
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Initial amount\t%s\n", money(sum.InitialAmount))
				fmt.Fprintf(w, "Received\t%s\t(%d entries)\n", money(sum.TotalReceived), sum.IncomeCount)
				fmt.Fprintf(w, "Spent\t%s\t(%d entries, %s%% of initial)\n",
					money(sum.TotalSpent), sum.ExpenseCount, sum.SpentPercent.StringFixed(1))
				fmt.Fprintf(w, "Average expense\t%s\n", money(sum.AverageExpense))
				fmt.Fprintf(w, "Balance\t%s\n", money(sum.Balance))
				if err := w.Flush(); err != nil {
					return err
				}

				return printBreakdown(out, "Expenses by category", aggregate.CategoryBreakdown(snap.Expenses))
			})
		},
	}
}

func printBreakdown(out io.Writer, title string, rows []core.CategoryAmount) error {
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(title))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.Category, money(r.Amount))
	}
	return w.Flush()
}

func (a *app) trendCmd() *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show monthly expense totals, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("months") {
				months = a.cfg.TrendMonths
			}
			if months < 1 {
				return fmt.Errorf("--months must be positive")
			}
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				trend := aggregate.MonthlyTrend(s.Snapshot().Expenses, a.now(), months)
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, m := range trend {
					fmt.Fprintf(w, "%s\t%s\n", m.Label, money(m.Total))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", aggregate.DefaultTrendMonths, "number of months ending with the current one")
	return cmd
}

func (a *app) riskCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show budget consumption and the budgets close to their limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				snap := s.Snapshot()
				statuses := aggregate.BudgetRisk(snap.Budgets, aggregate.TotalsByCategory(snap.Expenses))
				out := cmd.OutOrStdout()
				if len(statuses) == 0 {
					fmt.Fprintln(out, subtleStyle.Render("No budgets defined."))
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					headerStyle.Render("Category"), headerStyle.Render("Spent"), headerStyle.Render("Limit"),
					headerStyle.Render("Used"), headerStyle.Render("Status"))
				for _, st := range statuses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%s\n",
						st.Category, money(st.Spent), money(st.Limit),
						st.Percentage.StringFixed(1), tierStyle(st.Tier).Render(string(st.Tier)))
				}
				if err := w.Flush(); err != nil {
					return err
				}

				atRisk := aggregate.AtRisk(statuses, limit, nil)
				if len(atRisk) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, titleStyle.Render("At risk"))
				for _, st := range atRisk {
					fmt.Fprintf(out, "  %s %s%%\n", st.Category, st.Percentage.StringFixed(1))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", aggregate.DefaultAtRiskLimit, "maximum budgets in the at-risk list")
	return cmd
}

func (a *app) recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest expenses and income together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.RecentLimit
			}
			return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
				items := aggregate.RecentActivity(s.Snapshot(), limit)
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, subtleStyle.Render("No activity yet."))
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, it := range items {
					sign, style := "-", errorStyle
					if it.Kind == core.KindReceivable {
						sign, style = "+", successStyle
					}
					fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n",
						it.ID, it.Date, style.Render(sign+money(it.Amount)), it.Category, it.Name)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", aggregate.DefaultRecentLimit, "maximum entries")
	return cmd
}

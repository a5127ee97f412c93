package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spent/internal/cli"
	"spent/internal/core"
	"spent/internal/services"
)

type rootState struct {
	open   opener
	app    *cli.App
	user   string
	asJSON bool
}

func (st *rootState) service() *services.InsightsService {
	return st.app.Service.As(st.user)
}

func newRootCmd(st *rootState) *cobra.Command {
	root := &cobra.Command{
		Use:   "spent",
		Short: "Categorize spending and report on it month by month",
		Long: `spent records expenses and income into a local ledger, categorizes them
with a keyword table and a learned model, and reports monthly totals.

Negative amounts (refunds) must follow -- so they are not read as flags:
  spent add 2024-01 "Store refund" -- -20`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			st.app = app
			return nil
		},
	}
	root.PersistentFlags().StringVar(&st.user, "user", "", "Username that also receives the entry and scopes reports")
	root.PersistentFlags().BoolVar(&st.asJSON, "json", false, "Output results as JSON")

	root.AddCommand(
		addCmd(st),
		incomeCmd(st),
		correctCmd(st),
		reportCmd(st),
		splitCmd(st),
		compareCmd(st),
		exportCmd(st),
	)
	return root
}

func addCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "add <month> <description> <amount>",
		Short: "Record an expense",
		Long: `Record an expense. The category is picked by the classifier.

Examples:
  spent add 2024-01 "Grocery run" 54.20
  spent --user alice add 2024-01-15 "Uber to airport" 31,50`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := st.service().AddTransaction(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return st.printTransaction(cmd.OutOrStdout(), tx)
		},
	}
}

func incomeCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "income <month> <source> <amount>",
		Short: "Record income",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := st.service().AddIncome(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return st.printTransaction(cmd.OutOrStdout(), tx)
		},
	}
}

func correctCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "correct <description> <category>",
		Short: "Move matching transactions to another category and learn from it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := st.service().CorrectCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if st.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %d transaction(s) matching %q to %s\n", res.Updated, res.Description, res.Category)
			return nil
		},
	}
}

func reportCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "report <month>",
		Short: "Show category totals for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := st.service().MonthlyReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if st.asJSON {
				return writeJSON(cmd.OutOrStdout(), totals)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tAMOUNT")
			for _, cat := range totals.Categories() {
				fmt.Fprintf(w, "%s\t%s\n", cat, core.FormatAmount(totals[cat]))
			}
			fmt.Fprintf(w, "TOTAL\t%s\n", core.FormatAmount(totals.Sum()))
			return w.Flush()
		},
	}
}

func splitCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "split <month>",
		Short: "Show spending per category next to total income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			split, err := st.service().SpendIncomeSplit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if st.asJSON {
				return writeJSON(cmd.OutOrStdout(), split)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSPENT")
			for _, cat := range split.Spend.Categories() {
				fmt.Fprintf(w, "%s\t%s\n", cat, core.FormatAmount(split.Spend[cat]))
			}
			fmt.Fprintf(w, "Total spent\t%s\n", core.FormatAmount(split.TotalSpent))
			fmt.Fprintf(w, "Total income\t%s\n", core.FormatAmount(split.TotalIncome))
			return w.Flush()
		},
	}
}

func compareCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <from-month> <to-month>",
		Short: "Compare category totals between two months",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, err := st.service().Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if st.asJSON {
				return writeJSON(cmd.OutOrStdout(), cmp)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "CATEGORY\t%s\t%s\tCHANGE\n", cmp.From, cmp.To)
			for _, c := range cmp.Changes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Category,
					core.FormatAmount(c.From), core.FormatAmount(c.To), core.FormatAmount(c.Change))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if cmp.Summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cmp.Summary)
			}
			return nil
		},
	}
}

func exportCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "export <month>",
		Short: "Append the month's report to the configured Google Sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := st.service().ExportMonth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if st.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"rows": rows})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d row(s) for %s\n", rows, args[0])
			return nil
		},
	}
}

func (st *rootState) printTransaction(out io.Writer, tx core.Transaction) error {
	if st.asJSON {
		return writeJSON(out, tx)
	}
	fmt.Fprintf(out, "Recorded %s under %s for %s\n", core.FormatAmount(tx.Amount), tx.Category, tx.Month)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spent/internal/core"
	ports "spent/internal/sheets"
)

// reportRows renders [month, user, category, amount] rows, categories sorted.
func reportRows(r ports.MonthReport) [][]interface{} {
	rows := make([][]interface{}, 0, len(r.Totals))
	for _, cat := range r.Totals.Categories() {
		rows = append(rows, []interface{}{
			r.Month.String(),
			r.User,
			cat,
			r.Totals[cat].InexactFloat64(),
		})
	}
	return rows
}

// parseReportRows sums the rows matching month and user. Rows with a
// non-numeric amount (such as a header row) are skipped.
func parseReportRows(values [][]interface{}, month core.Month, user string) core.CategoryTotals {
	out := core.CategoryTotals{}
	for _, raw := range values {
		row := toStrings(raw)
		if len(row) < 4 {
			continue
		}
		if row[0] != month.String() || row[1] != user {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(row[3], ",", ""))
		if err != nil {
			continue
		}
		out[row[2]] = out[row[2]].Add(amount)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// auditRow renders [timestamp, id, type, user, month, description, category, amount].
func auditRow(e ports.AuditEntry) []interface{} {
	return []interface{}{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.ID,
		e.Type,
		e.User,
		e.Month,
		e.Description,
		e.Category,
		e.Amount.String(),
	}
}

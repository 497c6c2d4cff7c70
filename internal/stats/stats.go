package stats

import (
	"sort"

	"receiptvault/internal/models"
	"receiptvault/internal/report"
)

// MonthlyTotals groups receipt amounts by calendar month. The month bucket
// uses the same derivation as the report engine so monthly totals and report
// contents always agree on which receipts belong to a month.
func MonthlyTotals(receipts []models.Receipt) map[string]float64 {
	totals := make(map[string]float64)
	for _, r := range receipts {
		month := report.DeriveMonthKey(r.BillDate)
		totals[month.String()] += r.Amount
	}
	return totals
}

// SortedMonths returns the months of a totals map in ascending order.
func SortedMonths(totals map[string]float64) []string {
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

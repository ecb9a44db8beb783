package metrics

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

const TotalLabel = "TOTAL"

// Summarize builds the dashboard: one line per category plus a TOTAL line.
// Category averages are plain means; the TOTAL line uses ratios of sums
// (spend/sales and orders/clicks).
func Summarize(results models.CategoryResults) []models.CategorySummary {
	out := make([]models.CategorySummary, 0, len(models.Categories)+1)
	var (
		terms, clicks, orders int
		spend, sales          = decimal.Zero, decimal.Zero
	)
	for _, c := range models.Categories {
		s := summarizeRows(string(c), results.Rows(c))
		out = append(out, s)

		terms += s.SearchTerms
		clicks += s.TotalClicks
		orders += s.TotalOrders
		spend = spend.Add(decimal.NewFromFloat(s.TotalSpend))
		sales = sales.Add(decimal.NewFromFloat(s.TotalSales))
	}
	total := models.CategorySummary{
		Category:    TotalLabel,
		SearchTerms: terms,
		TotalClicks: clicks,
		TotalOrders: orders,
		TotalSpend:  spend.Round(2).InexactFloat64(),
		TotalSales:  sales.Round(2).InexactFloat64(),
	}
	if sales.IsPositive() {
		total.AvgACOS = round4(spend.Div(sales).InexactFloat64())
	}
	if clicks > 0 {
		total.AvgCVR = round4(float64(orders) / float64(clicks))
	}
	return append(out, total)
}

func summarizeRows(name string, rows []models.Row) models.CategorySummary {
	s := models.CategorySummary{Category: name, SearchTerms: len(rows)}
	spend, sales := decimal.Zero, decimal.Zero
	var acos, cvr float64
	for _, r := range rows {
		s.TotalClicks += r.Clicks
		s.TotalOrders += r.Orders
		spend = spend.Add(decimal.NewFromFloat(r.Spend))
		sales = sales.Add(decimal.NewFromFloat(r.Sales))
		acos += r.ACOS
		cvr += r.ConversionRate
	}
	s.TotalSpend = spend.Round(2).InexactFloat64()
	s.TotalSales = sales.Round(2).InexactFloat64()
	if n := len(rows); n > 0 {
		s.AvgACOS = round4(acos / float64(n))
		s.AvgCVR = round4(cvr / float64(n))
	}
	return s
}

// Page returns one window of rows plus the total row count.
func Page(rows []models.Row, limitParam, offsetParam string) ([]models.Row, int) {
	limit := atoiDef(limitParam, 100)
	offset := atoiDef(offsetParam, 0)
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), len(rows)
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
func round4(f float64) float64 { return decimal.NewFromFloat(f).Round(4).InexactFloat64() }

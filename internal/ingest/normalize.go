package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// Canonical field names of a Search Term Report.
const (
	FieldSearchTerm     = "Customer Search Term"
	FieldKeywordText    = "Keyword Text"
	FieldCampaign       = "Campaign Name"
	FieldAdGroup        = "Ad Group Name"
	FieldPortfolio      = "Portfolio Name"
	FieldMatchType      = "Match Type"
	FieldImpressions    = "Impressions"
	FieldClicks         = "Clicks"
	FieldOrders         = "Orders"
	FieldUnits          = "Units"
	FieldSpend          = "Spend"
	FieldSales          = "Sales"
	FieldACOS           = "ACOS"
	FieldConversionRate = "Conversion Rate"
	FieldCTR            = "Click-through Rate"
	FieldCPC            = "CPC"
	FieldROAS           = "ROAS"
)

// RequiredFields must be present for normalization and classification.
var RequiredFields = []string{
	FieldSearchTerm, FieldMatchType, FieldImpressions, FieldClicks,
	FieldOrders, FieldSpend, FieldSales, FieldACOS, FieldConversionRate,
}

// aliases maps lower-cased header spellings to canonical field names.
// Bulk-sheet exports suffix names with "(Informational only)" and the
// console download uses the long "7 Day ..." names.
var aliases = map[string]string{
	"customer search term":                     FieldSearchTerm,
	"search term":                              FieldSearchTerm,
	"keyword text":                             FieldKeywordText,
	"targeting":                                FieldKeywordText,
	"campaign name":                            FieldCampaign,
	"campaign name (informational only)":       FieldCampaign,
	"ad group name":                            FieldAdGroup,
	"ad group name (informational only)":       FieldAdGroup,
	"portfolio name":                           FieldPortfolio,
	"portfolio name (informational only)":      FieldPortfolio,
	"match type":                               FieldMatchType,
	"impressions":                              FieldImpressions,
	"clicks":                                   FieldClicks,
	"orders":                                   FieldOrders,
	"7 day total orders (#)":                   FieldOrders,
	"units":                                    FieldUnits,
	"7 day total units (#)":                    FieldUnits,
	"spend":                                    FieldSpend,
	"sales":                                    FieldSales,
	"7 day total sales":                        FieldSales,
	"acos":                                     FieldACOS,
	"total advertising cost of sales (acos)":   FieldACOS,
	"conversion rate":                          FieldConversionRate,
	"7 day conversion rate":                    FieldConversionRate,
	"click-through rate":                       FieldCTR,
	"click-thru rate (ctr)":                    FieldCTR,
	"ctr":                                      FieldCTR,
	"cpc":                                      FieldCPC,
	"cost per click (cpc)":                     FieldCPC,
	"roas":                                     FieldROAS,
	"total return on advertising spend (roas)": FieldROAS,
}

// Policy decides what happens to a row whose percentage fields do not parse.
type Policy int

const (
	// FailFast aborts normalization at the first bad row.
	FailFast Policy = iota
	// Collect excludes bad rows and reports them in Table.Rejected.
	Collect
)

// Table is a normalized report.
type Table struct {
	Rows []models.Row
	// Columns lists the canonical fields that were present in the source.
	Columns []string
	// Dropped lists source headers removed during normalization.
	Dropped  []string
	Rejected []*NormalizationError
}

// Has reports whether every named canonical field was present.
func (t *Table) Has(fields ...string) bool {
	for _, f := range fields {
		found := false
		for _, c := range t.Columns {
			if c == f {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Missing returns the required fields absent from the table.
func (t *Table) Missing() []string {
	var out []string
	for _, f := range RequiredFields {
		if !t.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Normalize converts raw cells into typed rows. The input is left untouched.
func Normalize(raw RawTable, policy Policy) (*Table, error) {
	idx := map[string]int{}
	t := &Table{}
	for i, h := range raw.Header {
		name := cleanHeader(h)
		if strings.Contains(strings.ToLower(name), "impression share") {
			t.Dropped = append(t.Dropped, name)
			continue
		}
		canon, ok := aliases[strings.ToLower(name)]
		if !ok {
			continue
		}
		if _, dup := idx[canon]; dup {
			continue
		}
		idx[canon] = i
		t.Columns = append(t.Columns, canon)
	}
	if missing := t.Missing(); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	t.Rows = make([]models.Row, 0, len(raw.Records))
	for n, rec := range raw.Records {
		cell := func(field string) (string, bool) {
			i, ok := idx[field]
			if !ok {
				return "", false
			}
			if i >= len(rec) {
				return "", true
			}
			return strings.TrimSpace(rec[i]), true
		}
		row, err := normalizeRow(n+1, cell)
		if err != nil {
			var ne *NormalizationError
			if policy == Collect && errors.As(err, &ne) {
				t.Rejected = append(t.Rejected, ne)
				continue
			}
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func normalizeRow(n int, cell func(string) (string, bool)) (models.Row, error) {
	text := func(f string) string { v, _ := cell(f); return v }
	count := func(f string) int { v, _ := cell(f); return max0(int(math.Round(number(v)))) }
	money := func(f string) float64 { v, _ := cell(f); return maxf(number(v)) }

	r := models.Row{
		CustomerSearchTerm: text(FieldSearchTerm),
		KeywordText:        text(FieldKeywordText),
		CampaignName:       text(FieldCampaign),
		AdGroupName:        text(FieldAdGroup),
		PortfolioName:      text(FieldPortfolio),
		MatchType:          text(FieldMatchType),
		Impressions:        count(FieldImpressions),
		Clicks:             count(FieldClicks),
		Orders:             count(FieldOrders),
		Units:              count(FieldUnits),
		Spend:              money(FieldSpend),
		Sales:              money(FieldSales),
	}

	var err error
	if r.ACOS, err = percentField(n, FieldACOS, cell); err != nil {
		return r, err
	}
	if r.ConversionRate, err = percentField(n, FieldConversionRate, cell); err != nil {
		return r, err
	}
	if _, present := cell(FieldCTR); present {
		if r.ClickThroughRate, err = percentField(n, FieldCTR, cell); err != nil {
			return r, err
		}
	}

	if v, ok := cell(FieldCPC); ok && v != "" {
		r.CPC = maxf(number(v))
	} else {
		r.CPC = safeDivF(r.Spend, float64(r.Clicks))
	}
	if v, ok := cell(FieldROAS); ok && v != "" {
		r.ROAS = maxf(number(v))
	} else {
		r.ROAS = safeDivF(r.Sales, r.Spend)
	}
	return r, nil
}

func percentField(n int, field string, cell func(string) (string, bool)) (float64, error) {
	v, _ := cell(field)
	f, err := ParsePercent(v)
	if err != nil {
		return 0, &NormalizationError{Row: n, Column: field, Value: v, Err: err}
	}
	return f, nil
}

var errEmptyPercent = errors.New("empty value")

// ParsePercent turns "1.84%" into 0.0184. A value without a % suffix is
// taken to be a fraction already. Empty input is an error, not zero.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyPercent
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		scale = 100
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f / scale, nil
}

// number parses count and currency cells; absence means no activity.
func number(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

package nlp

import (
	"fmt"
	"math"
	"strings"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

const floatTolerance = 1e-9

// Result is the outcome of applying a filter: the full match count and a
// preview bounded by the filter's limit.
type Result struct {
	Filter       StructuredFilter `json:"filter"`
	MatchedCount int              `json:"matched_count"`
	Preview      []models.Row     `json:"preview"`
}

type matcher func(models.Row) bool

// Apply evaluates f over rows. An empty condition list matches every row.
func Apply(f StructuredFilter, rows []models.Row) (Result, error) {
	matchers := make([]matcher, 0, len(f.Conditions))
	for i, c := range f.Conditions {
		m, err := compile(i, c)
		if err != nil {
			return Result{}, err
		}
		matchers = append(matchers, m)
	}
	if f.Mode != ModeAll && f.Mode != ModeAny {
		return Result{}, &EvaluationError{Condition: -1, Detail: fmt.Sprintf("unknown mode %q", f.Mode)}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	res := Result{Filter: f, Preview: []models.Row{}}
	for _, r := range rows {
		if !matches(f.Mode, matchers, r) {
			continue
		}
		res.MatchedCount++
		if len(res.Preview) < limit {
			res.Preview = append(res.Preview, r)
		}
	}
	return res, nil
}

func matches(mode Mode, ms []matcher, r models.Row) bool {
	if len(ms) == 0 {
		return true
	}
	if mode == ModeAny {
		for _, m := range ms {
			if m(r) {
				return true
			}
		}
		return false
	}
	for _, m := range ms {
		if !m(r) {
			return false
		}
	}
	return true
}

func compile(i int, c Condition) (matcher, error) {
	kind, ok := Columns[c.Column]
	if !ok {
		return nil, &EvaluationError{Condition: i, Column: c.Column, Detail: "column is not filterable"}
	}
	if !allowed(kind, c.Operator) {
		return nil, &EvaluationError{Condition: i, Column: c.Column, Detail: fmt.Sprintf("operator %q does not apply to %s columns", c.Operator, kind)}
	}
	mismatch := func() error {
		return &EvaluationError{Condition: i, Column: c.Column, Detail: fmt.Sprintf("%s needs a different literal type, got %T", c.Operator, c.Value)}
	}

	if kind == KindNumber {
		get := func(r models.Row) float64 { v, _ := numberOf(r, c.Column); return v }
		if c.Operator == OpBetween {
			b, ok := c.Value.([2]float64)
			if !ok {
				return nil, mismatch()
			}
			return func(r models.Row) bool { v := get(r); return v >= b[0] && v <= b[1] }, nil
		}
		x, ok := c.Value.(float64)
		if !ok {
			return nil, mismatch()
		}
		switch c.Operator {
		case OpEq:
			return func(r models.Row) bool { return math.Abs(get(r)-x) <= floatTolerance }, nil
		case OpNe:
			return func(r models.Row) bool { return math.Abs(get(r)-x) > floatTolerance }, nil
		case OpGt:
			return func(r models.Row) bool { return get(r) > x }, nil
		case OpGte:
			return func(r models.Row) bool { return get(r) >= x }, nil
		case OpLt:
			return func(r models.Row) bool { return get(r) < x }, nil
		case OpLte:
			return func(r models.Row) bool { return get(r) <= x }, nil
		}
		return nil, mismatch()
	}

	get := func(r models.Row) string { v, _ := textOf(r, c.Column); return strings.ToLower(strings.TrimSpace(v)) }
	switch c.Operator {
	case OpIn, OpNotIn:
		list, ok := c.Value.([]string)
		if !ok {
			return nil, mismatch()
		}
		set := make(map[string]struct{}, len(list))
		for _, s := range list {
			set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		}
		want := c.Operator == OpIn
		return func(r models.Row) bool { _, in := set[get(r)]; return in == want }, nil
	}
	s, ok := c.Value.(string)
	if !ok {
		return nil, mismatch()
	}
	s = strings.ToLower(strings.TrimSpace(s))
	switch c.Operator {
	case OpEq:
		return func(r models.Row) bool { return get(r) == s }, nil
	case OpNe:
		return func(r models.Row) bool { return get(r) != s }, nil
	case OpContains:
		return func(r models.Row) bool { return strings.Contains(get(r), s) }, nil
	}
	return nil, mismatch()
}

func numberOf(r models.Row, col string) (float64, bool) {
	switch col {
	case "impressions":
		return float64(r.Impressions), true
	case "clicks":
		return float64(r.Clicks), true
	case "orders":
		return float64(r.Orders), true
	case "units":
		return float64(r.Units), true
	case "spend":
		return r.Spend, true
	case "sales":
		return r.Sales, true
	case "acos":
		return r.ACOS, true
	case "conversion_rate":
		return r.ConversionRate, true
	case "click_through_rate":
		return r.ClickThroughRate, true
	case "cpc":
		return r.CPC, true
	case "roas":
		return r.ROAS, true
	}
	return 0, false
}

func textOf(r models.Row, col string) (string, bool) {
	switch col {
	case "customer_search_term":
		return r.CustomerSearchTerm, true
	case "campaign_name":
		return r.CampaignName, true
	case "ad_group_name":
		return r.AdGroupName, true
	case "portfolio_name":
		return r.PortfolioName, true
	case "match_type":
		return r.MatchType, true
	}
	return "", false
}

// Package nlp turns a free-text request into a StructuredFilter over
// whitelisted columns and operators, and evaluates that filter against
// normalized rows. Nothing produced by the language model is executed:
// only the structured conditions are interpreted.
package nlp

import (
	"sort"
	"strings"
)

type Mode string

const (
	ModeAll Mode = "all" // every condition must hold
	ModeAny Mode = "any" // at least one condition must hold
)

type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpBetween  Operator = "between"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
)

// operatorAliases are spellings models commonly emit for whitelisted operators.
var operatorAliases = map[string]Operator{
	"=": OpEq, "==": OpEq, "equals": OpEq,
	"!=": OpNe, "<>": OpNe,
	">": OpGt, ">=": OpGte, "<": OpLt, "<=": OpLte,
	"not in": OpNotIn,
}

type ColumnKind string

const (
	KindNumber ColumnKind = "number"
	KindText   ColumnKind = "text"
)

// Columns is the whitelist of filterable columns.
var Columns = map[string]ColumnKind{
	"impressions":          KindNumber,
	"clicks":               KindNumber,
	"orders":               KindNumber,
	"units":                KindNumber,
	"spend":                KindNumber,
	"sales":                KindNumber,
	"acos":                 KindNumber,
	"conversion_rate":      KindNumber,
	"click_through_rate":   KindNumber,
	"cpc":                  KindNumber,
	"roas":                 KindNumber,
	"customer_search_term": KindText,
	"campaign_name":        KindText,
	"ad_group_name":        KindText,
	"portfolio_name":       KindText,
	"match_type":           KindText,
}

// Operators lists the operators allowed per column kind.
var Operators = map[ColumnKind][]Operator{
	KindNumber: {OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpBetween},
	KindText:   {OpEq, OpNe, OpContains, OpIn, OpNotIn},
}

const (
	MaxConditions = 8
	MaxListValues = 25
	MaxTextLen    = 200
	DefaultLimit  = 50
	MaxLimit      = 200
)

// Condition compares one whitelisted column with a literal. Value holds a
// float64, a [2]float64 (between), a string, or a []string (in, not_in).
type Condition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// StructuredFilter is the only representation of a user's intent that is
// ever evaluated against data.
type StructuredFilter struct {
	Mode       Mode        `json:"mode"`
	Conditions []Condition `json:"conditions"`
	Limit      int         `json:"limit"`
}

// ColumnNames returns the whitelist sorted by kind, then name.
func ColumnNames(kind ColumnKind) []string {
	var out []string
	for c, k := range Columns {
		if k == kind {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func allowed(kind ColumnKind, op Operator) bool {
	for _, o := range Operators[kind] {
		if o == op {
			return true
		}
	}
	return false
}

// canonicalColumn maps "Conversion Rate" or "click-through rate" onto the
// whitelist spelling. Names outside the whitelist stay unknown.
func canonicalColumn(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	_, ok := Columns[s]
	return s, ok
}

func canonicalOperator(s string) (Operator, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if op, ok := operatorAliases[s]; ok {
		return op, true
	}
	op := Operator(s)
	for _, ops := range Operators {
		for _, o := range ops {
			if o == op {
				return op, true
			}
		}
	}
	return "", false
}

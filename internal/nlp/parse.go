package nlp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

type rawFilter struct {
	Mode       *string            `json:"mode"`
	Conditions *[]json.RawMessage `json:"conditions"`
	Limit      json.RawMessage    `json:"limit"`
}

type rawCondition struct {
	Column   string          `json:"column"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

// Parse decodes a candidate filter produced by the language collaborator
// and validates it against the whitelist. Any violation fails the whole
// filter with a *TranslationError.
func Parse(text string) (StructuredFilter, error) {
	var raw rawFilter
	if err := decodeStrict([]byte(stripFence(text)), &raw); err != nil {
		return StructuredFilter{}, &TranslationError{Kind: ErrKindParse, Detail: "response is not a filter object", Err: err}
	}
	if raw.Conditions == nil {
		return StructuredFilter{}, translationErr(ErrKindParse, "response has no conditions list")
	}

	f := StructuredFilter{Mode: ModeAll, Limit: parseLimit(raw.Limit)}
	if raw.Mode != nil {
		switch m := Mode(strings.ToLower(strings.TrimSpace(*raw.Mode))); m {
		case ModeAll, ModeAny:
			f.Mode = m
		default:
			return StructuredFilter{}, translationErr(ErrKindParse, "mode %q is neither all nor any", *raw.Mode)
		}
	}

	if len(*raw.Conditions) > MaxConditions {
		return StructuredFilter{}, translationErr(ErrKindParse, "%d conditions, at most %d allowed", len(*raw.Conditions), MaxConditions)
	}
	for i, rc := range *raw.Conditions {
		var c rawCondition
		if err := decodeStrict(rc, &c); err != nil {
			return StructuredFilter{}, &TranslationError{Kind: ErrKindParse, Detail: "condition " + strconv.Itoa(i) + " is malformed", Err: err}
		}
		cond, err := validateCondition(c)
		if err != nil {
			return StructuredFilter{}, err
		}
		f.Conditions = append(f.Conditions, cond)
	}
	return f, nil
}

func validateCondition(c rawCondition) (Condition, error) {
	col, ok := canonicalColumn(c.Column)
	if !ok {
		return Condition{}, translationErr(ErrKindColumn, "column %q is not filterable", c.Column)
	}
	kind := Columns[col]
	op, ok := canonicalOperator(c.Operator)
	if !ok || !allowed(kind, op) {
		return Condition{}, translationErr(ErrKindOperator, "operator %q is not allowed on %s column %q", c.Operator, kind, col)
	}
	if len(bytes.TrimSpace(c.Value)) == 0 {
		return Condition{}, translationErr(ErrKindLiteral, "condition on %q has no value", col)
	}

	var v any
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return Condition{}, &TranslationError{Kind: ErrKindLiteral, Detail: "value for " + col + " is not valid JSON", Err: err}
	}

	cond := Condition{Column: col, Operator: op}
	switch {
	case op == OpBetween:
		list, ok := v.([]any)
		if !ok || len(list) != 2 {
			return Condition{}, translationErr(ErrKindLiteral, "between on %q needs [min, max]", col)
		}
		lo, err1 := toNumber(list[0])
		hi, err2 := toNumber(list[1])
		if err1 != nil || err2 != nil {
			return Condition{}, translationErr(ErrKindLiteral, "between bounds on %q must be numbers", col)
		}
		if lo > hi {
			return Condition{}, translationErr(ErrKindLiteral, "between on %q has min %v above max %v", col, lo, hi)
		}
		cond.Value = [2]float64{lo, hi}
	case kind == KindNumber:
		n, err := toNumber(v)
		if err != nil {
			return Condition{}, translationErr(ErrKindLiteral, "value %s for %q is not a number", string(c.Value), col)
		}
		cond.Value = n
	case op == OpIn || op == OpNotIn:
		list, ok := v.([]any)
		if !ok || len(list) == 0 {
			return Condition{}, translationErr(ErrKindLiteral, "%s on %q needs a non-empty list", op, col)
		}
		if len(list) > MaxListValues {
			return Condition{}, translationErr(ErrKindLiteral, "%s on %q has %d values, at most %d allowed", op, col, len(list), MaxListValues)
		}
		vals := make([]string, 0, len(list))
		for _, item := range list {
			s, err := toText(item)
			if err != nil {
				return Condition{}, translationErr(ErrKindLiteral, "%s on %q: %v", op, col, err)
			}
			vals = append(vals, s)
		}
		cond.Value = vals
	default:
		s, err := toText(v)
		if err != nil {
			return Condition{}, translationErr(ErrKindLiteral, "%s on %q: %v", op, col, err)
		}
		cond.Value = s
	}
	return cond, nil
}

func toNumber(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		f = p
	default:
		return 0, errors.New("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

func toText(v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return "", errors.New("value must be text")
	}
	if len(s) > MaxTextLen {
		return "", errors.New("text value too long")
	}
	return s, nil
}

// parseLimit falls back to the default on anything that is not a number.
func parseLimit(raw json.RawMessage) int {
	limit := DefaultLimit
	var v any
	if len(raw) > 0 && json.Unmarshal(raw, &v) == nil {
		if n, err := toNumber(v); err == nil {
			limit = int(n)
		}
	}
	return min(max(limit, 1), MaxLimit)
}

func decodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

// stripFence removes one surrounding ``` or ```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s), "{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

package models

import "testing"

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"wasted_adspend":         WastedAdspend,
		"Wasted Adspend":         WastedAdspend,
		" inefficient-adspend ":  InefficientAdspend,
		"SCALING_OPPORTUNITY":    ScalingOpportunity,
		"harvesting opportunity": HarvestingOpportunity,
	}
	for in, want := range cases {
		got, ok := ParseCategory(in)
		if !ok || got != want {
			t.Errorf("ParseCategory(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseCategory("all"); ok {
		t.Error("all is not a category")
	}
}

func TestMatchTypes(t *testing.T) {
	for _, m := range []string{"exact", "Phrase", " BROAD "} {
		if !(Row{MatchType: m}).IsTargeted() {
			t.Errorf("%q should be targeted", m)
		}
	}
	for _, m := range []string{"", "-", "auto", "close-match", "loose-match", "substitutes", "complements", "negative exact"} {
		if (Row{MatchType: m}).IsTargeted() {
			t.Errorf("%q should not be targeted", m)
		}
	}
	if (Row{MatchType: "Phrase"}).IsExact() {
		t.Error("phrase is not exact")
	}
}

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

func table(rows ...models.Row) *ingest.Table {
	return &ingest.Table{Rows: rows, Columns: ingest.RequiredFields}
}

func counts(res models.CategoryResults) map[models.Category]int {
	out := map[models.Category]int{}
	for _, cr := range res {
		out[cr.Category] = len(cr.Rows)
	}
	return out
}

// synthetic builds a 100-row report: 12 wasted, 8 inefficient, 5 scaling,
// 3 harvesting and 72 rows that match nothing at default thresholds.
func synthetic() *ingest.Table {
	var rows []models.Row
	add := func(n int, prefix string, r models.Row) {
		for i := 0; i < n; i++ {
			r.CustomerSearchTerm = fmt.Sprintf("%s %d", prefix, i)
			r.CampaignName = "Camp " + prefix
			rows = append(rows, r)
		}
	}
	add(12, "wasted", models.Row{MatchType: "Broad", Clicks: 15, Spend: 18})
	add(8, "inefficient", models.Row{MatchType: "Phrase", Clicks: 20, Orders: 2, ACOS: 0.5, ConversionRate: 0.1})
	add(5, "scaling", models.Row{MatchType: "Exact", Clicks: 8, Orders: 2, ConversionRate: 0.25, ACOS: 0.15})
	add(3, "harvesting", models.Row{MatchType: "-", Clicks: 30, Orders: 5, ACOS: 0.2, ConversionRate: 0.17})
	add(72, "neutral", models.Row{MatchType: "Exact", Clicks: 30, Orders: 3, ACOS: 0.2, ConversionRate: 0.1})
	return table(rows...)
}

func TestClassifySyntheticReport(t *testing.T) {
	res, err := Classify(synthetic(), models.DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, res, 4)

	want := map[models.Category]int{
		models.WastedAdspend:         12,
		models.InefficientAdspend:    8,
		models.ScalingOpportunity:    5,
		models.HarvestingOpportunity: 3,
	}
	assert.Equal(t, want, counts(res))
	for i, c := range models.Categories {
		assert.Equal(t, c, res[i].Category, "results must follow category order")
	}
}

func TestClassifyRaisingClickThresholdShrinksWasted(t *testing.T) {
	tbl := synthetic()
	th := models.DefaultThresholds()
	before, err := Classify(tbl, th)
	require.NoError(t, err)

	th.ClickThreshold = 20
	after, err := Classify(tbl, th)
	require.NoError(t, err)

	prev := map[string]bool{}
	for _, r := range before.Rows(models.WastedAdspend) {
		prev[r.CustomerSearchTerm] = true
	}
	for _, r := range after.Rows(models.WastedAdspend) {
		assert.True(t, prev[r.CustomerSearchTerm], "%q appeared only after raising the threshold", r.CustomerSearchTerm)
	}
	assert.Empty(t, after.Rows(models.WastedAdspend))
}

func TestPredicateBoundaries(t *testing.T) {
	th := models.DefaultThresholds()
	cases := []struct {
		name string
		pred Predicate
		row  models.Row
		want bool
	}{
		{"wasted at threshold", IsWastedAdspend, models.Row{Clicks: 10}, true},
		{"wasted below threshold", IsWastedAdspend, models.Row{Clicks: 9}, false},
		{"wasted with an order", IsWastedAdspend, models.Row{Clicks: 50, Orders: 1}, false},
		{"inefficient at threshold", IsInefficientAdspend, models.Row{ACOS: 0.30, Orders: 1}, true},
		{"inefficient below threshold", IsInefficientAdspend, models.Row{ACOS: 0.2999, Orders: 1}, false},
		{"inefficient without orders", IsInefficientAdspend, models.Row{ACOS: 0.9}, false},
		{"scaling at both limits", IsScalingOpportunity, models.Row{MatchType: "Exact", ConversionRate: 0.10, Clicks: 10}, true},
		{"scaling too many clicks", IsScalingOpportunity, models.Row{MatchType: "Exact", ConversionRate: 0.5, Clicks: 11}, false},
		{"scaling low cvr", IsScalingOpportunity, models.Row{MatchType: "Exact", ConversionRate: 0.09, Clicks: 3}, false},
		{"scaling phrase", IsScalingOpportunity, models.Row{MatchType: "Phrase", ConversionRate: 0.5, Clicks: 3}, false},
		{"scaling case and spaces", IsScalingOpportunity, models.Row{MatchType: "  EXACT ", ConversionRate: 0.5, Clicks: 3}, true},
		{"harvesting at threshold", IsHarvestingOpportunity, models.Row{MatchType: "-", Orders: 2}, false},
		{"harvesting above threshold", IsHarvestingOpportunity, models.Row{MatchType: "-", Orders: 3}, true},
		{"harvesting close-match", IsHarvestingOpportunity, models.Row{MatchType: "close-match", Orders: 3}, true},
		{"harvesting empty match type", IsHarvestingOpportunity, models.Row{Orders: 3}, true},
		{"harvesting unknown match type", IsHarvestingOpportunity, models.Row{MatchType: "???", Orders: 3}, true},
		{"harvesting broad", IsHarvestingOpportunity, models.Row{MatchType: "BROAD", Orders: 9}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.pred(c.row, th))
		})
	}
}

func TestClassifyRowInSeveralCategories(t *testing.T) {
	both := models.Row{CustomerSearchTerm: "x", MatchType: "Exact", Clicks: 5, Orders: 1, ACOS: 0.6, ConversionRate: 0.2}
	auto := models.Row{CustomerSearchTerm: "y", MatchType: "-", Clicks: 40, Orders: 4, ACOS: 0.45}
	res, err := Classify(table(both, auto), models.DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, []models.Row{both, auto}, res.Rows(models.InefficientAdspend))
	assert.Equal(t, []models.Row{both}, res.Rows(models.ScalingOpportunity))
	assert.Equal(t, []models.Row{auto}, res.Rows(models.HarvestingOpportunity))
	assert.Empty(t, res.Rows(models.WastedAdspend))
}

func TestClassifyEmptyTable(t *testing.T) {
	res, err := Classify(table(), models.DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, res, 4)
	for _, cr := range res {
		assert.NotNil(t, cr.Rows, cr.Category)
		assert.Empty(t, cr.Rows, cr.Category)
	}
}

func TestClassifyMissingColumns(t *testing.T) {
	tbl := &ingest.Table{Columns: []string{ingest.FieldSearchTerm, ingest.FieldClicks}}
	_, err := Classify(tbl, models.DefaultThresholds())
	var se *ingest.SchemaError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Contains(t, se.Missing, ingest.FieldOrders)

	_, err = Classify(nil, models.DefaultThresholds())
	assert.True(t, errors.As(err, &se))
}

func TestClassifyIsDeterministic(t *testing.T) {
	tbl := synthetic()
	snapshot := append([]models.Row(nil), tbl.Rows...)
	a, err := Classify(tbl, models.DefaultThresholds())
	require.NoError(t, err)
	b, err := Classify(tbl, models.DefaultThresholds())
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot, tbl.Rows); diff != "" {
		t.Fatalf("input rows were modified:\n%s", diff)
	}
}

func TestClassifyPartitionedMatchesSequential(t *testing.T) {
	var rows []models.Row
	for i := 0; i < 1003; i++ {
		rows = append(rows, models.Row{
			CustomerSearchTerm: fmt.Sprintf("term %d", i),
			MatchType:          []string{"Exact", "Phrase", "Broad", "-", ""}[i%5],
			Clicks:             i % 25,
			Orders:             i % 4,
			ACOS:               float64(i%7) / 10,
			ConversionRate:     float64(i%5) / 10,
		})
	}
	tbl := table(rows...)
	th := models.DefaultThresholds()

	want, err := Classify(tbl, th)
	require.NoError(t, err)
	for _, parts := range []int{2, 7, 16} {
		got, err := ClassifyPartitioned(context.Background(), tbl, th, parts)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("partitions=%d differ (-sequential +partitioned):\n%s", parts, diff)
		}
	}
}

func TestClassifyPartitionedCanceled(t *testing.T) {
	rows := make([]models.Row, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ClassifyPartitioned(ctx, table(rows...), models.DefaultThresholds(), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyAutoRowWithoutOrders(t *testing.T) {
	r := models.Row{CustomerSearchTerm: "auto term", MatchType: "Auto", Clicks: 10}
	res, err := Classify(table(r), models.DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, []models.Row{r}, res.Rows(models.WastedAdspend))
	assert.Empty(t, res.Rows(models.HarvestingOpportunity))
}

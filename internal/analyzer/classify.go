package analyzer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// Predicate decides membership of a single row in one category.
type Predicate func(models.Row, models.Thresholds) bool

// IsWastedAdspend: clicks >= click_threshold and no orders.
func IsWastedAdspend(r models.Row, t models.Thresholds) bool {
	return r.Clicks >= t.ClickThreshold && r.Orders == 0
}

// IsInefficientAdspend: acos >= acos_threshold on a converting term.
func IsInefficientAdspend(r models.Row, t models.Thresholds) bool {
	return r.ACOS >= t.ACOSThreshold && r.Orders > 0
}

// IsScalingOpportunity: an exact-match converter that is still under-exposed.
func IsScalingOpportunity(r models.Row, t models.Thresholds) bool {
	return r.IsExact() && r.ConversionRate >= t.CVRThreshold && r.Clicks <= t.LowClickThreshold
}

// IsHarvestingOpportunity: an untargeted term (auto, close-match or an
// unrecognized match type) with more than order_threshold orders.
func IsHarvestingOpportunity(r models.Row, t models.Thresholds) bool {
	return !r.IsTargeted() && r.Orders > t.OrderThreshold
}

// Predicates maps each category to its filter.
var Predicates = map[models.Category]Predicate{
	models.WastedAdspend:         IsWastedAdspend,
	models.InefficientAdspend:    IsInefficientAdspend,
	models.ScalingOpportunity:    IsScalingOpportunity,
	models.HarvestingOpportunity: IsHarvestingOpportunity,
}

// Classify runs every category filter over the same rows. Categories are
// computed independently so a row may land in several of them, or none.
// Thresholds are used as given.
func Classify(tbl *ingest.Table, t models.Thresholds) (models.CategoryResults, error) {
	if tbl == nil {
		return nil, &ingest.SchemaError{Missing: ingest.RequiredFields}
	}
	if missing := tbl.Missing(); len(missing) > 0 {
		return nil, &ingest.SchemaError{Missing: missing}
	}
	return classifyRows(tbl.Rows, t), nil
}

func classifyRows(rows []models.Row, t models.Thresholds) models.CategoryResults {
	out := make(models.CategoryResults, 0, len(models.Categories))
	for _, c := range models.Categories {
		pred := Predicates[c]
		matched := []models.Row{}
		for _, r := range rows {
			if pred(r, t) {
				matched = append(matched, r)
			}
		}
		out = append(out, models.CategoryResult{Category: c, Rows: matched})
	}
	return out
}

// ClassifyPartitioned classifies contiguous slices of the table
// concurrently and merges them back in input order. The result is the same
// as Classify.
func ClassifyPartitioned(ctx context.Context, tbl *ingest.Table, t models.Thresholds, partitions int) (models.CategoryResults, error) {
	if tbl == nil || partitions <= 1 || len(tbl.Rows) < partitions {
		return Classify(tbl, t)
	}
	if missing := tbl.Missing(); len(missing) > 0 {
		return nil, &ingest.SchemaError{Missing: missing}
	}

	size := (len(tbl.Rows) + partitions - 1) / partitions
	parts := make([]models.CategoryResults, partitions)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < partitions; i++ {
		lo := i * size
		hi := min(lo+size, len(tbl.Rows))
		if lo >= hi {
			parts[i] = classifyRows(nil, t)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[i] = classifyRows(tbl.Rows[lo:hi], t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := classifyRows(nil, t)
	for _, p := range parts {
		for ci := range merged {
			merged[ci].Rows = append(merged[ci].Rows, p[ci].Rows...)
		}
	}
	return merged, nil
}

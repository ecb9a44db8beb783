package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/metrics"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// partitionRows is the table size above which classification is split
// across goroutines.
const partitionRows = 50_000

// Analysis is everything derived from one uploaded report.
type Analysis struct {
	Table      *ingest.Table
	Thresholds models.Thresholds
	Results    models.CategoryResults
	Summary    []models.CategorySummary
}

type Pipeline struct {
	log        *slog.Logger
	rec        *metrics.Recorder
	policy     ingest.Policy
	partitions int
}

func NewPipeline(log *slog.Logger, rec *metrics.Recorder, policy ingest.Policy, partitions int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{log: log, rec: rec, policy: policy, partitions: partitions}
}

// Run reads, normalizes and classifies a report. Any failure fails the
// whole analysis; no partial results are returned.
func (p *Pipeline) Run(ctx context.Context, name string, r io.Reader, t models.Thresholds) (*Analysis, error) {
	raw, err := ingest.Read(name, r)
	if err != nil {
		p.fail("read", err)
		return nil, err
	}
	return p.RunTable(ctx, raw, t)
}

func (p *Pipeline) RunTable(ctx context.Context, raw ingest.RawTable, t models.Thresholds) (*Analysis, error) {
	tbl, err := ingest.Normalize(raw, p.policy)
	if err != nil {
		p.fail(errorKind(err), err)
		return nil, err
	}

	var results models.CategoryResults
	if p.partitions > 1 && len(tbl.Rows) >= partitionRows {
		results, err = ClassifyPartitioned(ctx, tbl, t, p.partitions)
	} else {
		results, err = Classify(tbl, t)
	}
	if err != nil {
		p.fail(errorKind(err), err)
		return nil, err
	}

	a := &Analysis{Table: tbl, Thresholds: t, Results: results, Summary: metrics.Summarize(results)}
	p.rec.AnalysisDone(len(tbl.Rows), results)

	attrs := []any{slog.Int("rows", len(tbl.Rows)), slog.Int("rejected", len(tbl.Rejected))}
	for _, cr := range results {
		attrs = append(attrs, slog.Int(cr.Category.Slug(), len(cr.Rows)))
	}
	p.log.Info("analysis complete", attrs...)
	return a, nil
}

func (p *Pipeline) fail(kind string, err error) {
	p.rec.AnalysisFailed(kind)
	p.log.Warn("analysis failed", slog.String("kind", kind), slog.String("err", err.Error()))
}

func errorKind(err error) string {
	var se *ingest.SchemaError
	var ne *ingest.NormalizationError
	switch {
	case errors.As(err, &se):
		return "schema"
	case errors.As(err, &ne):
		return "normalization"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/metrics"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

const report = `Customer Search Term,Campaign Name,Ad Group Name,Match Type,Impressions,Clicks,Spend,Sales,Orders,ACOS,Conversion Rate
blue mug,Mugs,AG,Broad,500,14,21.00,0,0,0%,0%
mug gift,Mugs,AG,Phrase,300,12,30.00,40.00,1,75%,8.33%
ceramic mug exact,Mugs,AG,Exact,100,4,3.00,60.00,2,5%,50%
mug set,Auto,AG,-,900,25,20.00,150.00,6,13.33%,24%
`

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// counter reads one outcome of a labelled counter from reg.
func counter(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestPipelineRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	p := NewPipeline(quietLogger(), rec, ingest.FailFast, 4)

	a, err := p.Run(context.Background(), "str.csv", strings.NewReader(report), models.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Table.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(a.Table.Rows))
	}
	for c, want := range map[models.Category]int{
		models.WastedAdspend:         1,
		models.InefficientAdspend:    1,
		models.ScalingOpportunity:    1,
		models.HarvestingOpportunity: 1,
	} {
		if got := len(a.Results.Rows(c)); got != want {
			t.Errorf("%s: got %d rows, want %d", c, got, want)
		}
	}
	if len(a.Summary) != 5 || a.Summary[4].Category != metrics.TotalLabel {
		t.Fatalf("summary = %+v", a.Summary)
	}
	if got := counter(t, reg, "stra_analyses_total", "ok"); got != 1 {
		t.Fatalf("ok analyses = %v", got)
	}
}

func TestPipelineSchemaFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	p := NewPipeline(quietLogger(), rec, ingest.FailFast, 1)

	_, err := p.Run(context.Background(), "str.csv", strings.NewReader("Customer Search Term,Clicks\nx,1\n"), models.DefaultThresholds())
	var se *ingest.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if got := counter(t, reg, "stra_analyses_total", "schema"); got != 1 {
		t.Fatalf("schema failures = %v", got)
	}
}

func TestPipelineCollectPolicy(t *testing.T) {
	bad := report + "broken,Mugs,AG,Exact,1,1,1,1,1,n/a,10%\n"
	p := NewPipeline(quietLogger(), nil, ingest.Collect, 1)
	a, err := p.Run(context.Background(), "str.csv", strings.NewReader(bad), models.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Table.Rows) != 4 || len(a.Table.Rejected) != 1 {
		t.Fatalf("rows=%d rejected=%d", len(a.Table.Rows), len(a.Table.Rejected))
	}

	// con FailFast la misma entrada falla completa
	_, err = NewPipeline(quietLogger(), nil, ingest.FailFast, 1).Run(context.Background(), "str.csv", strings.NewReader(bad), models.DefaultThresholds())
	var ne *ingest.NormalizationError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

func TestPipelineUnsupportedFormat(t *testing.T) {
	p := NewPipeline(nil, nil, ingest.FailFast, 1)
	_, err := p.Run(context.Background(), "str.xls", strings.NewReader(report), models.DefaultThresholds())
	if !errors.Is(err, ingest.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

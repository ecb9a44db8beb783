package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/config"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/nlp"
)

const report = `Customer Search Term,Campaign Name,Ad Group Name,Match Type,Impressions,Clicks,Spend,Sales,Orders,ACOS,Conversion Rate
blue mug,Mugs,AG,Broad,500,14,21.00,0,0,0%,0%
mug gift,Mugs,AG,Phrase,300,12,30.00,40.00,1,75%,8.33%
ceramic mug exact,Mugs,AG,Exact,100,4,3.00,60.00,2,5%,50%
mug set,Auto,AG,-,900,60,120.00,150.00,6,13.33%,10%
`

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "str.csv")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return path
}

func TestNewAnalyzeCmd(t *testing.T) {
	cmd := NewAnalyzeCmd()
	if !strings.HasPrefix(cmd.Use, "analyze") {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, f := range []string{"thresholds-file", "click-threshold", "acos-threshold", "cvr-threshold", "low-click-threshold", "order-threshold", "report", "bulk", "json", "skip-bad-rows"} {
		if cmd.Flags().Lookup(f) == nil {
			t.Errorf("flag %q not registered", f)
		}
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.xlsx")
	bulkPath := filepath.Join(dir, "bulk.csv")

	cmd := NewAnalyzeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{writeReport(t), "--report", reportPath, "--bulk", bulkPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	text := out.String()
	for _, want := range []string{"4 rows analyzed", "Wasted Adspend", "Harvesting Opportunity", "TOTAL"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	for _, p := range []string{reportPath, bulkPath} {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	bulk, _ := os.ReadFile(bulkPath)
	if !strings.Contains(string(bulk), "blue mug") {
		t.Errorf("bulk file should negate blue mug:\n%s", bulk)
	}
}

func TestAnalyzeCommandJSONWithThresholdFlag(t *testing.T) {
	cmd := NewAnalyzeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{writeReport(t), "--json", "--click-threshold", "20"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var got struct {
		Rows       int `json:"rows"`
		Thresholds struct {
			ClickThreshold int     `json:"click_threshold"`
			ACOSThreshold  float64 `json:"acos_threshold"`
		} `json:"thresholds"`
		Summary []struct {
			Category    string `json:"category"`
			SearchTerms int    `json:"search_terms"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Rows != 4 || got.Thresholds.ClickThreshold != 20 || got.Thresholds.ACOSThreshold != 0.30 {
		t.Fatalf("unexpected output: %+v", got)
	}
	if got.Summary[0].Category != "Wasted Adspend" || got.Summary[0].SearchTerms != 0 {
		t.Fatalf("wasted should be empty at 20 clicks: %+v", got.Summary[0])
	}
}

func TestThresholdsForLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.yaml")
	if err := os.WriteFile(path, []byte("click_threshold: 15\nacos_threshold: 0.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := analyzeOptions{thresholdsFile: path, changed: map[string]bool{"acos-threshold": true}}
	opts.overrides.ClickThreshold = 99
	opts.overrides.ACOSThreshold = 0.5

	th, err := thresholdsFor(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// el archivo gana sobre el default; la bandera explícita gana sobre el archivo
	if th.ClickThreshold != 15 || th.ACOSThreshold != 0.5 || th.OrderThreshold != 2 {
		t.Fatalf("thresholds = %+v", th)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	err := runAnalyze(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), analyzeOptions{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunFilterRetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	collab := nlp.CollaboratorFunc(func(ctx context.Context, req nlp.IntentRequest) (string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return `{"conditions":[{"column":"orders","operator":">","value":2}]}`, nil
	})

	var out bytes.Buffer
	opts := filterOptions{prompt: "more than two orders", scope: nlp.ScopeAll, retries: 1, timeout: 20 * time.Millisecond, jsonOutput: true}
	if err := runFilter(context.Background(), writeReport(t), opts, collab, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	var res nlp.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.MatchedCount != 1 || res.Preview[0].CustomerSearchTerm != "mug set" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunFilterDoesNotRetryInvalidFilter(t *testing.T) {
	var calls atomic.Int32
	collab := nlp.CollaboratorFunc(func(ctx context.Context, req nlp.IntentRequest) (string, error) {
		calls.Add(1)
		return `{"conditions":[{"column":"campaign_id","operator":"eq","value":"1"}]}`, nil
	})
	opts := filterOptions{prompt: "campaign 1", retries: 3, timeout: time.Second}
	err := runFilter(context.Background(), writeReport(t), opts, collab, &bytes.Buffer{})
	var te *nlp.TranslationError
	if !errors.As(err, &te) || te.Kind != nlp.ErrKindColumn {
		t.Fatalf("expected column error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("validation failures must not be retried, got %d calls", calls.Load())
	}
}

func TestRunFilterTextOutput(t *testing.T) {
	collab := nlp.CollaboratorFunc(func(ctx context.Context, req nlp.IntentRequest) (string, error) {
		return `{"conditions":[{"column":"match_type","operator":"eq","value":"broad"}]}`, nil
	})
	var out bytes.Buffer
	opts := filterOptions{prompt: "broad terms", scope: "wasted_adspend", timeout: time.Second}
	if err := runFilter(context.Background(), writeReport(t), opts, collab, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "1 of 1 rows matched") || !strings.Contains(out.String(), "blue mug") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestCollaboratorForUnknownProvider(t *testing.T) {
	if _, err := collaboratorFor(context.Background(), config.Config{LLMProvider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	c, err := collaboratorFor(context.Background(), config.Config{LLMProvider: "openai"})
	if err != nil || c == nil {
		t.Fatalf("openai collaborator: %v", err)
	}
}

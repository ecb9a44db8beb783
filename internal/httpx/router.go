package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/analyzer"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/config"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/export"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/metrics"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/nlp"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/store"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/utils"
)

const maxFilterBody = 64 << 10

type Deps struct {
	Log            *slog.Logger
	Pipeline       *analyzer.Pipeline
	Store          *store.MemoryStore
	Translator     *nlp.Translator
	Recorder       *metrics.Recorder
	Metrics        http.Handler // served on /metrics when set
	Defaults       models.Thresholds
	MaxUploadBytes int64
}

type api struct{ Deps }

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	a := &api{d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log, d.Recorder.ObserveHTTP))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	if d.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	mux.Route("/api", func(r chi.Router) {
		r.Post("/analyze", a.analyze)
		r.Get("/download/report/{id}", a.downloadReport)
		r.Get("/download/bulk/{id}", a.downloadBulk)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Delete("/", a.deleteSession)
			r.Get("/summary", a.summary)
			r.Get("/categories/{category}", a.category)
			r.Post("/filter", a.filter)
		})
	})
	return mux
}

type categoryInfo struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	TotalClicks int     `json:"totalClicks"`
	TotalSpend  float64 `json:"totalSpend"`
	TotalOrders int     `json:"totalOrders"`
	AvgACOS     float64 `json:"avgAcos"`
}

func (a *api) analyze(w http.ResponseWriter, r *http.Request) {
	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "request", "missing uploaded file")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request", "upload too large or unreadable")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "request", "uploaded file is empty")
		return
	}
	th, err := config.MergeThresholds(a.Defaults, r.FormValue("thresholds"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "thresholds", err.Error())
		return
	}

	res, err := a.Pipeline.Run(r.Context(), hdr.Filename, bytes.NewReader(content), th)
	if err != nil {
		a.writeAnalysisError(w, r, err)
		return
	}

	var report, bulk bytes.Buffer
	if err := export.WriteWorkbook(&report, res.Summary, res.Results); err != nil {
		a.Log.Error("render workbook", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "export", "could not render report")
		return
	}
	if _, err := export.WriteBulkCSV(&bulk, res.Results.Rows(models.WastedAdspend)); err != nil {
		writeError(w, http.StatusInternalServerError, "export", "could not render bulk file")
		return
	}

	id := a.Store.Create(&store.Session{
		Filename:   hdr.Filename,
		Table:      res.Table,
		Thresholds: th,
		Results:    res.Results,
		Summary:    res.Summary,
		Report:     report.Bytes(),
		Bulk:       bulk.Bytes(),
	})

	cats := make([]categoryInfo, 0, len(res.Summary))
	for _, s := range res.Summary {
		if s.Category == metrics.TotalLabel {
			continue
		}
		cats = append(cats, categoryInfo{
			Name:        s.Category,
			Count:       s.SearchTerms,
			TotalClicks: s.TotalClicks,
			TotalSpend:  s.TotalSpend,
			TotalOrders: s.TotalOrders,
			AvgACOS:     s.AvgACOS,
		})
	}
	writeJSON(w, map[string]any{
		"session_id":      id,
		"rows":            len(res.Table.Rows),
		"rejected_rows":   rejected(res.Table),
		"dropped_columns": res.Table.Dropped,
		"thresholds":      th,
		"categories":      cats,
	})
}

func rejected(t *ingest.Table) []string {
	out := make([]string, 0, len(t.Rejected))
	for _, e := range t.Rejected {
		out = append(out, e.Error())
	}
	return out
}

func (a *api) session(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, ok := a.Store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session", "session not found")
	}
	return sess, ok
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, sess.Summary)
}

func (a *api) category(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	c, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		writeError(w, http.StatusNotFound, "category", "unknown category")
		return
	}
	q := r.URL.Query()
	rows, total := metrics.Page(sess.Results.Rows(c), q.Get("limit"), q.Get("offset"))
	writeJSON(w, map[string]any{"category": c, "total": total, "rows": rows})
}

func (a *api) filter(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req nlp.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFilterBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request", "invalid JSON body")
		return
	}
	rows, err := nlp.ScopeRows(req.Scope, sess.Table.Rows, sess.Results)
	if err == nil {
		var res nlp.Result
		if res, err = a.Translator.Run(r.Context(), req, rows); err == nil {
			a.Recorder.Translation("ok")
			writeJSON(w, res)
			return
		}
	}

	var te *nlp.TranslationError
	var ee *nlp.EvaluationError
	switch {
	case errors.As(err, &te):
		a.Recorder.Translation(string(te.Kind))
		status := http.StatusUnprocessableEntity
		switch te.Kind {
		case nlp.ErrKindTimeout:
			status = http.StatusGatewayTimeout
		case nlp.ErrKindCollaborator:
			status = http.StatusBadGateway
		}
		writeError(w, status, "translation:"+string(te.Kind), te.Error())
	case errors.As(err, &ee):
		a.Recorder.Translation("evaluation")
		writeError(w, http.StatusInternalServerError, "evaluation", ee.Error())
	default:
		a.Recorder.Translation("error")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (a *api) downloadReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("Analyzer_Report_%s.xlsx", short(sess.ID)), sess.Report)
}

func (a *api) downloadBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	attach(w, "text/csv", fmt.Sprintf("Bulk_Negation_%s.csv", short(sess.ID)), sess.Bulk)
}

func (a *api) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.Store.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	var se *ingest.SchemaError
	var ne *ingest.NormalizationError
	switch {
	case errors.As(err, &se):
		writeError(w, http.StatusUnprocessableEntity, "schema", se.Error())
	case errors.As(err, &ne):
		writeError(w, http.StatusUnprocessableEntity, "normalization", ne.Error())
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "format", err.Error())
	default:
		a.Log.Error("analysis", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, "read", "could not read report: "+err.Error())
	}
}

func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(body)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "kind": kind, "error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

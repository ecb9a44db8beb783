package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

const (
	ScopeAll       = "all"
	MaxPromptRunes = 2000
)

// IntentRequest is everything the language collaborator gets to see.
type IntentRequest struct {
	Prompt    string
	Scope     string
	Model     string
	Columns   map[string]ColumnKind
	Operators map[ColumnKind][]Operator
}

// Collaborator proposes a candidate filter as JSON text. Its output is
// untrusted and always goes through Parse.
type Collaborator interface {
	Propose(ctx context.Context, req IntentRequest) (string, error)
}

// CollaboratorFunc adapts a function to Collaborator.
type CollaboratorFunc func(ctx context.Context, req IntentRequest) (string, error)

func (f CollaboratorFunc) Propose(ctx context.Context, req IntentRequest) (string, error) {
	return f(ctx, req)
}

// Request is one natural-language filter call.
type Request struct {
	Prompt string `json:"prompt"`
	Scope  string `json:"scope"`
	Model  string `json:"model"`
}

type Translator struct {
	collab  Collaborator
	timeout time.Duration
	log     *slog.Logger
}

func NewTranslator(c Collaborator, timeout time.Duration, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{collab: c, timeout: timeout, log: log}
}

// Translate asks the collaborator for a filter and validates it. It makes
// exactly one collaborator call; retrying is up to the caller.
func (t *Translator) Translate(ctx context.Context, req Request) (StructuredFilter, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return StructuredFilter{}, translationErr(ErrKindPrompt, "prompt is empty")
	}
	if len([]rune(prompt)) > MaxPromptRunes {
		return StructuredFilter{}, translationErr(ErrKindPrompt, "prompt longer than %d characters", MaxPromptRunes)
	}
	if t == nil || t.collab == nil {
		return StructuredFilter{}, translationErr(ErrKindCollaborator, "no language model is configured")
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := t.collab.Propose(ctx, IntentRequest{
		Prompt:    prompt,
		Scope:     scopeLabel(req.Scope),
		Model:     req.Model,
		Columns:   Columns,
		Operators: Operators,
	})
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if err == nil {
			err = ctxErr
		}
		t.log.Warn("filter translation timed out", slog.Duration("elapsed", time.Since(start)), slog.String("err", err.Error()))
		return StructuredFilter{}, &TranslationError{Kind: ErrKindTimeout, Detail: "language model did not answer in time", Err: err}
	}
	if err != nil {
		t.log.Error("filter translation failed", slog.String("err", err.Error()))
		return StructuredFilter{}, &TranslationError{Kind: ErrKindCollaborator, Detail: "language model request failed", Err: err}
	}

	f, err := Parse(text)
	if err != nil {
		t.log.Info("rejected candidate filter", slog.String("err", err.Error()))
		return StructuredFilter{}, err
	}
	t.log.Debug("filter translated", slog.Int("conditions", len(f.Conditions)), slog.String("mode", string(f.Mode)), slog.Duration("elapsed", time.Since(start)))
	return f, nil
}

// Run translates req and applies the result to rows.
func (t *Translator) Run(ctx context.Context, req Request, rows []models.Row) (Result, error) {
	f, err := t.Translate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return Apply(f, rows)
}

// ScopeRows picks the rows a filter runs over: every normalized row for
// "all" (or empty), otherwise one category's output.
func ScopeRows(scope string, all []models.Row, results models.CategoryResults) ([]models.Row, error) {
	s := strings.TrimSpace(scope)
	if s == "" || strings.EqualFold(s, ScopeAll) {
		return all, nil
	}
	c, ok := models.ParseCategory(s)
	if !ok {
		return nil, translationErr(ErrKindScope, "unknown category %q", scope)
	}
	return results.Rows(c), nil
}

func scopeLabel(scope string) string {
	if c, ok := models.ParseCategory(scope); ok {
		return string(c)
	}
	return ScopeAll
}

// SystemPrompt describes the filter grammar to the language model.
func SystemPrompt(req IntentRequest) string {
	var b strings.Builder
	b.WriteString("You convert requests about an Amazon Sponsored Products search term report into a JSON filter. ")
	b.WriteString(`Answer with one JSON object and nothing else: {"mode":"all|any","conditions":[{"column":string,"operator":string,"value":any}],"limit":int}. `)
	for _, kind := range []ColumnKind{KindNumber, KindText} {
		var cols []string
		for _, c := range ColumnNames(kind) {
			if _, ok := req.Columns[c]; ok {
				cols = append(cols, c)
			}
		}
		ops := make([]string, 0, len(req.Operators[kind]))
		for _, o := range req.Operators[kind] {
			ops = append(ops, string(o))
		}
		fmt.Fprintf(&b, "%s columns: %s; operators: %s. ", kind, strings.Join(cols, ", "), strings.Join(ops, ", "))
	}
	b.WriteString("between takes [min,max]; in and not_in take a list of strings. ")
	b.WriteString("acos, conversion_rate and click_through_rate are fractions (0.1 means 10%). ")
	fmt.Fprintf(&b, "Use at most %d conditions and a limit between 1 and %d. ", MaxConditions, MaxLimit)
	b.WriteString("Never output code, SQL, markdown, explanations or extra keys.")
	return b.String()
}

// UserPrompt is the request text sent alongside SystemPrompt.
func UserPrompt(req IntentRequest) string {
	return "Rows in scope: " + req.Scope + "\nRequest: " + req.Prompt
}

package nlp

import "fmt"

// ErrorKind names the step at which a translation failed.
type ErrorKind string

const (
	ErrKindParse        ErrorKind = "parse"
	ErrKindColumn       ErrorKind = "column"
	ErrKindOperator     ErrorKind = "operator"
	ErrKindLiteral      ErrorKind = "literal"
	ErrKindTimeout      ErrorKind = "timeout"
	ErrKindCollaborator ErrorKind = "collaborator"
	ErrKindPrompt       ErrorKind = "prompt"
	ErrKindScope        ErrorKind = "scope"
)

// TranslationError is returned whenever a request cannot be turned into a
// valid StructuredFilter. No filter is applied when it is returned.
type TranslationError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("filter translation (%s): %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("filter translation (%s): %s", e.Kind, e.Detail)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Is matches another *TranslationError of the same kind, so callers can
// write errors.Is(err, &nlp.TranslationError{Kind: nlp.ErrKindColumn}).
func (e *TranslationError) Is(target error) bool {
	t, ok := target.(*TranslationError)
	return ok && t.Kind == e.Kind
}

func translationErr(kind ErrorKind, format string, args ...any) *TranslationError {
	return &TranslationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// EvaluationError reports a filter that passed validation but could not be
// applied, e.g. a literal of the wrong Go type built by hand.
type EvaluationError struct {
	Condition int
	Column    string
	Detail    string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("filter evaluation: condition %d (%s): %s", e.Condition, e.Column, e.Detail)
}

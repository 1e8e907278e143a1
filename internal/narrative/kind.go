// Package narrative turns analysis output into LLM prompts and wraps the
// replies in an explicit result type.
package narrative

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects which narrative is requested.
type Kind int

const (
	KindSummary Kind = iota
	KindQuestion
	KindCorrelation
	KindColumnAdvice
	KindAnomaly
)

var kindNames = map[Kind]string{
	KindSummary:      "summary",
	KindQuestion:     "question",
	KindCorrelation:  "correlation",
	KindColumnAdvice: "advice",
	KindAnomaly:      "anomalies",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a route or flag name ("summary", "advice", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown narrative kind %q", s)
}

// Label is the operator-facing Dutch name used in error lines.
func (k Kind) Label(column string) string {
	switch k {
	case KindSummary:
		return "samenvatting"
	case KindQuestion:
		return "vraag"
	case KindCorrelation:
		return "correlatie-uitleg"
	case KindColumnAdvice:
		if column != "" {
			return "advies voor " + column
		}
		return "advies"
	case KindAnomaly:
		return "anomalie-analyse"
	}
	return k.String()
}

// TransportError is the failure branch of a Response: the request did not
// produce narrative text. Cause keeps the underlying transport error so
// callers can inspect it with errors.As.
type TransportError struct {
	Kind  Kind
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Kind, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Response is the result of one narrative request: either Text or Err.
type Response struct {
	Kind   Kind
	Column string
	Text   string
	Err    error
}

// Ok reports whether the request produced text.
func (r Response) Ok() bool { return r.Err == nil }

// Display returns the text, or the error line shown in its place.
func (r Response) Display() string {
	if r.Err == nil {
		return r.Text
	}
	cause := r.Err
	var te *TransportError
	if errors.As(r.Err, &te) && te.Cause != nil {
		cause = te.Cause
	}
	return fmt.Sprintf("[Fout bij %s: %v]", r.Kind.Label(r.Column), cause)
}

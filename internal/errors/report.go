package errors

import (
	"encoding/json"
	"errors"

	"github.com/kirraObj-s-archives/rowscript/internal/ast"
)

// Report is the canonical structured error type for the front-end.
// All error builders return *Report, which can be wrapped as ReportError
// so the structure survives errors.As unwrapping.
type Report struct {
	Schema  string         `json:"schema"`         // Always "rowscript.error/v1"
	Code    string         `json:"code"`           // Error code (RES001, TC001, ...)
	Phase   string         `json:"phase"`          // Phase: "resolve", "typecheck", "dispatch", ...
	Message string         `json:"message"`        // Human-readable message
	Span    *ast.Span      `json:"span,omitempty"` // Source location (optional)
	Data    map[string]any `json:"data,omitempty"` // Structured data (sorted keys)
	Def     string         `json:"def,omitempty"`  // Enclosing definition, when known
}

// SchemaVersion is the schema tag carried by every report.
const SchemaVersion = "rowscript.error/v1"

// New creates a report for a code from the registry. Unknown codes get
// the "internal" phase rather than panicking; the registry test keeps
// the two in sync.
func New(code, message string, span *ast.Span) *Report {
	phase := "internal"
	if info, ok := GetInfo(code); ok {
		phase = info.Phase
	}
	return &Report{
		Schema:  SchemaVersion,
		Code:    code,
		Phase:   phase,
		Message: message,
		Span:    span,
	}
}

// WithData attaches a structured data key to the report.
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
	return r
}

// WithDef records the enclosing definition name.
func (r *Report) WithDef(name string) *Report {
	r.Def = name
	return r
}

// ReportError wraps a Report as an error.
type ReportError struct {
	Rep *Report
}

// Error implements the error interface
func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport attempts to extract a Report from an error chain.
// Returns the Report and true if found, nil and false otherwise.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap wraps a Report as a ReportError. A nil report wraps to nil.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON converts a Report to JSON (deterministic, sorted keys).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error

	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}

	if err != nil {
		return "", err
	}
	return string(data), nil
}

package errors

import (
	"encoding/json"
	"strings"
)

// Bag accumulates reports across definitions. Elaboration attempts to
// complete every definition; a failure is recorded here and the walk
// continues, so the caller gets the whole batch at once.
type Bag struct {
	reports []*Report
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add records a report. Nil reports are ignored.
func (b *Bag) Add(r *Report) {
	if r != nil {
		b.reports = append(b.reports, r)
	}
}

// AddError records an error, extracting the structured report when the
// error carries one and synthesising a generic report otherwise.
func (b *Bag) AddError(err error) {
	if err == nil {
		return
	}
	if rep, ok := AsReport(err); ok {
		b.Add(rep)
		return
	}
	b.Add(&Report{
		Schema:  SchemaVersion,
		Code:    "INTERNAL",
		Phase:   "internal",
		Message: err.Error(),
	})
}

// Empty reports whether the bag holds no reports.
func (b *Bag) Empty() bool {
	return len(b.reports) == 0
}

// Len returns the number of recorded reports.
func (b *Bag) Len() int {
	return len(b.reports)
}

// Reports returns the recorded reports in insertion order.
func (b *Bag) Reports() []*Report {
	return b.reports
}

// FailedDefs returns the set of definition names with at least one
// report, in first-failure order. Downstream phases treat these
// definitions as opaque.
func (b *Bag) FailedDefs() []string {
	seen := make(map[string]bool)
	var defs []string
	for _, r := range b.reports {
		if r.Def == "" || seen[r.Def] {
			continue
		}
		seen[r.Def] = true
		defs = append(defs, r.Def)
	}
	return defs
}

// String renders one line per report, for terminal output.
func (b *Bag) String() string {
	var sb strings.Builder
	for i, r := range b.reports {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if r.Span != nil {
			sb.WriteString(r.Span.String())
			sb.WriteString(": ")
		}
		sb.WriteString(r.Code)
		sb.WriteString(": ")
		sb.WriteString(r.Message)
	}
	return sb.String()
}

// ToJSON encodes the whole batch as a JSON array (deterministic order).
func (b *Bag) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(b.reports)
	} else {
		data, err = json.MarshalIndent(b.reports, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

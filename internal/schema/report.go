package schema

import (
	"fmt"
	"strings"
)

// Severity of a validation issue.
type Severity string

const (
	// SeverityError blocks the registry from building.
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not block the build.
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in one entry.
type Issue struct {
	EntryID  string   `json:"entry_id"`
	Field    string   `json:"field,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	id := i.EntryID
	if id == "" {
		id = "<no id>"
	}
	if i.Field != "" {
		return fmt.Sprintf("%s: %s: %s", id, i.Field, i.Message)
	}
	return fmt.Sprintf("%s: %s", id, i.Message)
}

// Report collects every issue found while validating a bundle.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) add(id, field string, sev Severity, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{
		EntryID:  id,
		Field:    field,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) errorf(id, field, format string, args ...interface{}) {
	r.add(id, field, SeverityError, format, args...)
}

func (r *Report) warnf(id, field, format string, args ...interface{}) {
	r.add(id, field, SeverityWarning, format, args...)
}

func (r *Report) merge(other *Report) {
	if other != nil {
		r.Issues = append(r.Issues, other.Issues...)
	}
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(sev Severity) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err returns a *ValidationError holding every error-severity issue, or nil.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Issues: errs}
}

// ValidationError is the aggregated load-time failure.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "content validation failed with %d error(s)", len(e.Issues))
	for _, i := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(i.String())
	}
	return b.String()
}

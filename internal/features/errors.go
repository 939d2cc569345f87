package features

import (
	"fmt"
	"sort"
	"strings"
)

// FieldIssue describes a single rejected form field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every form field that failed validation so the
// caller can correct all of them in one pass.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Reason)
	}
	return "invalid form input: " + strings.Join(parts, "; ")
}

// Fields returns the names of the offending fields.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		fields[i] = issue.Field
	}
	return fields
}

// SchemaMismatchError reports columns the input was expected to carry but
// does not. No inference is attempted when this is returned.
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return "input schema mismatch, missing columns: " + strings.Join(missing, ", ")
}

package site

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a validation defect.
type ErrorKind string

const (
	// StructuralError: a required field is missing, empty or malformed.
	StructuralError ErrorKind = "structural"
	// ConsistencyError: fields are individually well formed but disagree
	// with each other (ragged table rows, duplicate ids, dangling anchors).
	ConsistencyError ErrorKind = "consistency"
	// UnknownVariant: a section's kind is outside the modelled set.
	UnknownVariant ErrorKind = "unknown_variant"
)

// ValidationError is one defect found by Validate. Path uses the serialized
// field names, e.g. "sections[2].rows[0]".
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Path    string    `json:"path"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
}

// ValidationErrors is the complete defect list from one Validate call, in
// the order the checks found them.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(es))
	for _, e := range es {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes each defect to errors.As and errors.Is.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// OfKind returns the defects of kind k, keeping order.
func (es ValidationErrors) OfKind(k ErrorKind) ValidationErrors {
	var out ValidationErrors
	for _, e := range es {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// CountByKind tallies defects per kind.
func (es ValidationErrors) CountByKind() map[ErrorKind]int {
	out := make(map[ErrorKind]int, 3)
	for _, e := range es {
		out[e.Kind]++
	}
	return out
}

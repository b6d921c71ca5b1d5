// =============================================================================
// TTD Writer - Validation Engine
// =============================================================================
//
// This module validates nested documents against declarative schemas and
// coerces their values to the types the API expects. Input tables carry
// every value as text, so "1000" has to become 1000.0 before it is sent as
// a money amount.
//
// A Schema lists its fields. Each field is required or optional and has a
// Rule that checks and converts its value. A Schema is itself a Rule, so
// sub-documents nest naturally. Fields the schema does not declare are kept
// or rejected depending on the schema's ExtraPolicy.
//
// ERROR HANDLING:
//   - Every problem in a document is collected, not just the first
//   - Each error names the dotted field path and the offending value
//   - The collected errors are returned as Errors, which unwraps to the
//     individual *types.ValidationError values
//
// Coercion is idempotent: validating an already validated document returns
// an equal document.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// Errors is every validation problem found in one document.
type Errors []*types.ValidationError

// Error implements the error interface.
func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return FormatErrors(e)
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, ve := range e {
		out[i] = ve
	}
	return out
}

// add appends err, flattening nested Errors.
func (e Errors) add(path string, err error) Errors {
	var many Errors
	if errors.As(err, &many) {
		return append(e, many...)
	}
	var one *types.ValidationError
	if errors.As(err, &one) {
		return append(e, one)
	}
	return append(e, &types.ValidationError{Path: path, Message: err.Error()})
}

// FormatErrors renders a list of validation errors, one per line.
func FormatErrors(errs []*types.ValidationError) string {
	if len(errs) == 0 {
		return "no validation errors"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d error(s):", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("\n%d. %s", i+1, err.Error()))
	}
	return builder.String()
}

func invalid(path string, value any, format string, args ...any) error {
	return &types.ValidationError{Path: path, Value: value, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// SCHEMA
// =============================================================================

// ExtraPolicy decides what happens to fields a schema does not declare.
type ExtraPolicy int

const (
	// RejectExtra fails validation on undeclared fields.
	RejectExtra ExtraPolicy = iota

	// AllowExtra copies undeclared fields to the output unchanged.
	AllowExtra
)

// Field is one declared schema field.
type Field struct {
	Name     string
	Required bool
	Rule     Rule
}

// Required declares a field that must be present.
func Required(name string, rule Rule) Field {
	return Field{Name: name, Required: true, Rule: rule}
}

// Optional declares a field that may be absent.
func Optional(name string, rule Rule) Field {
	return Field{Name: name, Rule: rule}
}

// Schema describes one JSON object.
type Schema struct {
	Fields []Field
	Extra  ExtraPolicy
}

// NewSchema builds a schema from its fields.
func NewSchema(extra ExtraPolicy, fields ...Field) *Schema {
	return &Schema{Fields: fields, Extra: extra}
}

// Validate checks doc and returns a coerced copy. doc is not modified.
func (s *Schema) Validate(doc types.Document) (types.Document, error) {
	out, err := s.Apply(doc, "")
	if err != nil {
		return nil, err
	}
	return out.(types.Document), nil
}

// Apply implements Rule, so schemas can be nested.
func (s *Schema) Apply(value any, path string) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, Errors{invalid(path, value, "expected an object").(*types.ValidationError)}
	}

	out := make(types.Document, len(in))
	declared := make(map[string]bool, len(s.Fields))
	var errs Errors

	for _, f := range s.Fields {
		declared[f.Name] = true
		fieldPath := joinPath(path, f.Name)

		v, present := in[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, &types.ValidationError{Path: fieldPath, Message: "required key not provided"})
			}
			continue
		}

		coerced, err := f.Rule.Apply(v, fieldPath)
		if err != nil {
			errs = errs.add(fieldPath, err)
			continue
		}
		out[f.Name] = coerced
	}

	extras := make([]string, 0)
	for k := range in {
		if !declared[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		if s.Extra == AllowExtra {
			out[k] = in[k]
			continue
		}
		errs = append(errs, &types.ValidationError{Path: joinPath(path, k), Value: in[k], Message: "extra keys not allowed"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

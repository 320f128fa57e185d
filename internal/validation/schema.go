// internal/validation/schema.go
//
// formcheck – Validation core: schema evaluation.
//
// Context
//   A Schema is an ordered list of FieldSpecs.  Validate runs every rule of
//   every field against a Record and collects each failure, so the caller
//   sees all violated rules and not just the first one.  The function is
//   pure: no logging, no metrics, and no shared state.  Callers that want
//   instrumentation wrap it (see internal/form).
//
// Workflow
//   •  Validate          – whole-record check, used on submit.
//   •  ValidateField     – one field plus its dependents, used per change.
//   •  Feedback          – advisory pass/fail list for one field.
//
//------------------------------------------------------------------------------

package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField marks a record that lacks a field the schema declares.
	ErrMissingField = errors.New("missing field")

	// ErrUnknownField is returned when a caller names a field the schema
	// does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// MissingFieldError names the absent field.  It unwraps to ErrMissingField.
type MissingFieldError struct{ Field string }

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("validation: record has no %q field", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// FieldSpec is a field name with its ordered rule table.
type FieldSpec struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered set of field specs.
type Schema struct {
	Name   string
	Fields []FieldSpec
}

// NewSchema checks that field names and rule IDs are unique and that every
// cross-field rule points at a declared field.
func NewSchema(name string, fields ...FieldSpec) (*Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field without a name", name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = true

		ids := make(map[string]bool, len(f.Rules))
		for _, r := range f.Rules {
			if r.ID == "" || r.Check == nil {
				return nil, fmt.Errorf("schema %s: field %q has a rule without id or check", name, f.Name)
			}
			if ids[r.ID] {
				return nil, fmt.Errorf("schema %s: field %q repeats rule %q", name, f.Name, r.ID)
			}
			ids[r.ID] = true
		}
	}
	for _, f := range fields {
		for _, r := range f.Rules {
			if r.DependsOn != "" && !seen[r.DependsOn] {
				return nil, fmt.Errorf("schema %s: rule %s.%s depends on unknown field %q",
					name, f.Name, r.ID, r.DependsOn)
			}
		}
	}
	return &Schema{Name: name, Fields: fields}, nil
}

// MustSchema is NewSchema for package-level tables.  It panics on error.
func MustSchema(name string, fields ...FieldSpec) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the spec for name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames lists the declared fields in order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Blank returns the default record: every field present and empty.
func (s *Schema) Blank() Record {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		rec[f.Name] = ""
	}
	return rec
}

// Dependents lists the fields holding a cross-field rule on field.
func (s *Schema) Dependents(field string) []string {
	var out []string
	for _, f := range s.Fields {
		for _, r := range f.Rules {
			if r.DependsOn == field {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}

// Validate checks rec against every rule.  A record missing a declared field
// is a caller error and yields *MissingFieldError with no partial result.
func (s *Schema) Validate(rec Record) (Result, error) {
	if err := s.checkShape(rec); err != nil {
		return Result{}, err
	}
	res := newResult()
	for _, f := range s.Fields {
		s.evaluate(f, rec, &res)
	}
	return res, nil
}

// ValidateField checks field and every field that depends on it.
func (s *Schema) ValidateField(rec Record, field string) (Result, error) {
	spec, ok := s.Field(field)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if err := s.checkShape(rec); err != nil {
		return Result{}, err
	}
	res := newResult()
	s.evaluate(spec, rec, &res)
	for _, name := range s.Dependents(field) {
		dep, _ := s.Field(name)
		s.evaluate(dep, rec, &res)
	}
	return res, nil
}

// Feedback runs the labelled, same-field rules of field against value.
// Cross-field rules are left out since they say nothing about value alone.
func (s *Schema) Feedback(field, value string) (Feedback, error) {
	spec, ok := s.Field(field)
	if !ok {
		return Feedback{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	fb := Feedback{Field: field, Visible: value != ""}
	rec := Record{field: value}
	for _, r := range spec.Rules {
		if r.Label == "" || r.DependsOn != "" {
			continue
		}
		fb.Rules = append(fb.Rules, RuleStatus{
			Rule:   r.ID,
			Label:  r.Label,
			Passed: r.Passes(value, rec),
		})
	}
	return fb, nil
}

func (s *Schema) checkShape(rec Record) error {
	for _, f := range s.Fields {
		if _, ok := rec[f.Name]; !ok {
			return &MissingFieldError{Field: f.Name}
		}
	}
	return nil
}

func (s *Schema) evaluate(f FieldSpec, rec Record, res *Result) {
	value := rec[f.Name]
	failed := make([]Violation, 0)
	var advisories []Violation
	for _, r := range f.Rules {
		if r.Passes(value, rec) {
			continue
		}
		v := Violation{Rule: r.ID, Message: r.Message}
		if r.Severity == Advisory {
			advisories = append(advisories, v)
			continue
		}
		failed = append(failed, v)
	}
	res.Fields[f.Name] = failed
	if len(advisories) > 0 {
		res.Advisories[f.Name] = advisories
	}
}

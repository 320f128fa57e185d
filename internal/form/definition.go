// internal/form/definition.go
//
// formcheck – Forms subsystem: YAML definition loader and compiler.
//
// Context
//   Each form is declared in a YAML file.  The file carries the form's
//   identifier, title, fields, the ordered rule table of every field, and any
//   post-submit actions.  Definitions are compiled into a validation.Schema
//   at load time so requests never touch YAML or regex compilation.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef → RuleDef, plus
//      ActionDef.
//   •  ParseFormDef decodes one document and checks its structure with
//      go-playground/validator tags and a few cross checks tags cannot say.
//   •  Compile turns a checked FormDef into a validation.Schema.
//   •  LoadFormDef reads a file, parses, and compiles it.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/formcheck/internal/validation"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
type FormDef struct {
	ID      string      `yaml:"id"      validate:"required,max=128,formid"`
	Title   string      `yaml:"title"`
	Fields  []FieldDef  `yaml:"fields"  validate:"required,min=1,dive"`
	Actions []ActionDef `yaml:"actions" validate:"dive"`
}

// FieldDef describes a single input and its rule table.
type FieldDef struct {
	Name        string    `yaml:"name"        validate:"required"`
	Label       string    `yaml:"label"       validate:"required"`
	Type        string    `yaml:"type"        validate:"required,oneof=text email password"`
	Placeholder string    `yaml:"placeholder"`
	Rules       []RuleDef `yaml:"rules"       validate:"dive"`
}

// RuleDef is one rule of a field.  Which of Value, Pattern, and Field is
// read depends on Kind.
type RuleDef struct {
	ID        string `yaml:"id"         validate:"required"`
	Kind      string `yaml:"kind"       validate:"required,oneof=required min_length max_length email contains pattern equals_field"`
	Value     int    `yaml:"value"      validate:"gte=0"`
	Pattern   string `yaml:"pattern"`
	Field     string `yaml:"field"`
	Message   string `yaml:"message"    validate:"required"`
	Label     string `yaml:"label"`
	Advisory  bool   `yaml:"advisory"`
	SkipEmpty bool   `yaml:"skip_empty"`
}

// ActionDef configures an automated action executed after a valid submit.
//
// Params stay loosely typed so new kinds can be added without schema churn.
type ActionDef struct {
	Type   string         `yaml:"type"    validate:"required,oneof=log store webhook"`
	Params map[string]any `yaml:",inline"`
}

// Form is a checked definition paired with its compiled schema.
type Form struct {
	Def    *FormDef
	Schema *validation.Schema
}

// Field returns the definition of the named field.
func (f *Form) Field(name string) (FieldDef, bool) {
	for _, fd := range f.Def.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return FieldDef{}, false
}

// -----------------------------------------------------------------------------
// Structural validation
// -----------------------------------------------------------------------------

var (
	formIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-/]*$`)
	defCheck = newDefValidator()
)

func newDefValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("formid", func(fl validator.FieldLevel) bool {
		return formIDRe.MatchString(fl.Field().String())
	})
	return v
}

// checkFormDef enforces the rules struct tags cannot express: unique names,
// compilable patterns, known match targets, and per-kind parameters.
func checkFormDef(fd *FormDef, src string) error {
	if err := defCheck.Struct(fd); err != nil {
		return fmt.Errorf("form definition %s: %w", src, err)
	}

	names := make(map[string]struct{}, len(fd.Fields))
	for _, f := range fd.Fields {
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, f.Name)
		}
		names[f.Name] = struct{}{}
	}

	for _, f := range fd.Fields {
		ids := make(map[string]struct{}, len(f.Rules))
		for _, r := range f.Rules {
			if _, dup := ids[r.ID]; dup {
				return fmt.Errorf("form %s: field '%s' repeats rule '%s'", src, f.Name, r.ID)
			}
			ids[r.ID] = struct{}{}

			switch r.Kind {
			case "max_length":
				if r.Value <= 0 {
					return fmt.Errorf("form %s: rule %s.%s needs a positive 'value'", src, f.Name, r.ID)
				}
			case "contains", "pattern":
				if r.Pattern == "" {
					return fmt.Errorf("form %s: rule %s.%s needs a 'pattern'", src, f.Name, r.ID)
				}
				if _, err := regexp.Compile(r.Pattern); err != nil {
					return fmt.Errorf("form %s: rule %s.%s invalid regex pattern: %v", src, f.Name, r.ID, err)
				}
			case "equals_field":
				if _, ok := names[r.Field]; !ok || r.Field == f.Name {
					return fmt.Errorf("form %s: rule %s.%s must name another field, got '%s'", src, f.Name, r.ID, r.Field)
				}
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef decodes and checks one YAML document.  src names the
// document in error messages.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := checkFormDef(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadFormDef reads, parses, and compiles one YAML file.
func LoadFormDef(path string) (*Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	fd, err := ParseFormDef(raw, path)
	if err != nil {
		return nil, err
	}
	return Compile(fd)
}

// Compile builds the validation schema for a checked definition.
func Compile(fd *FormDef) (*Form, error) {
	specs := make([]validation.FieldSpec, 0, len(fd.Fields))
	for _, f := range fd.Fields {
		spec := validation.FieldSpec{Name: f.Name}
		for _, rd := range f.Rules {
			r, err := compileRule(rd)
			if err != nil {
				return nil, fmt.Errorf("form %s: field %s: %w", fd.ID, f.Name, err)
			}
			spec.Rules = append(spec.Rules, r)
		}
		specs = append(specs, spec)
	}

	schema, err := validation.NewSchema(fd.ID, specs...)
	if err != nil {
		return nil, err
	}
	return &Form{Def: fd, Schema: schema}, nil
}

func compileRule(rd RuleDef) (validation.Rule, error) {
	var r validation.Rule
	switch rd.Kind {
	case "required":
		r = validation.Required(rd.ID, rd.Message)
	case "min_length":
		r = validation.MinLength(rd.ID, rd.Value, rd.Message)
	case "max_length":
		r = validation.MaxLength(rd.ID, rd.Value, rd.Message)
	case "email":
		r = validation.Email(rd.ID, rd.Message)
	case "contains", "pattern":
		re, err := regexp.Compile(rd.Pattern)
		if err != nil {
			return r, err
		}
		if rd.Kind == "contains" {
			r = validation.Contains(rd.ID, re, rd.Message)
		} else {
			r = validation.Matches(rd.ID, re, rd.Message)
		}
	case "equals_field":
		r = validation.EqualsField(rd.ID, rd.Field, rd.Message)
	default:
		return r, fmt.Errorf("unknown rule kind %q", rd.Kind)
	}

	r.Label = rd.Label
	r.SkipEmpty = rd.SkipEmpty
	if rd.Advisory {
		r.Severity = validation.Advisory
	}
	return r, nil
}

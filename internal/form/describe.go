// internal/form/describe.go
//
// formcheck – Forms subsystem: client-facing form description.
//
// Context
//   Rendering markup is the client's job.  Describe hands it everything it
//   needs to build inputs that agree with the server: field order, labels,
//   input types, placeholders, and the HTML5 constraint hints (required,
//   minlength, maxlength, pattern) derived from the rule table.  The blank
//   record and a fresh CSRF token ride along.
//
//------------------------------------------------------------------------------

package form

import "github.com/yanizio/formcheck/internal/validation"

// FieldView describes one input.
type FieldView struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty"`
	MinLength   int      `json:"minlength,omitempty"`
	MaxLength   int      `json:"maxlength,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Feedback    bool     `json:"feedback,omitempty"` // live checklist available
	DependsOn   []string `json:"depends_on,omitempty"`
}

// View is the JSON body of GET /api/forms/{id}.
type View struct {
	ID       string            `json:"id"`
	Title    string            `json:"title,omitempty"`
	Fields   []FieldView       `json:"fields"`
	Defaults validation.Record `json:"defaults"`
	Token    string            `json:"csrf_token,omitempty"`
}

// Describe builds the view of f.  token may be empty.
func Describe(f *Form, token string) View {
	v := View{
		ID:       f.Def.ID,
		Title:    f.Def.Title,
		Defaults: f.Schema.Blank(),
		Token:    token,
	}
	for _, fd := range f.Def.Fields {
		v.Fields = append(v.Fields, describeField(fd))
	}
	return v
}

func describeField(fd FieldDef) FieldView {
	fv := FieldView{
		Name:        fd.Name,
		Label:       fd.Label,
		Type:        fd.Type,
		Placeholder: fd.Placeholder,
	}
	for _, r := range fd.Rules {
		if r.Advisory {
			continue
		}
		switch r.Kind {
		case "required":
			fv.Required = true
		case "min_length":
			if r.Value >= 1 && !r.SkipEmpty {
				fv.Required = true
			}
			if r.Value > fv.MinLength {
				fv.MinLength = r.Value
			}
		case "max_length":
			if fv.MaxLength == 0 || r.Value < fv.MaxLength {
				fv.MaxLength = r.Value
			}
		case "pattern":
			fv.Pattern = r.Pattern
		case "equals_field":
			fv.DependsOn = append(fv.DependsOn, r.Field)
		}
		if r.Label != "" && r.Kind != "equals_field" {
			fv.Feedback = true
		}
	}
	return fv
}

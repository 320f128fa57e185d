// internal/validation/result.go
//
// formcheck – Validation core: records, results, and feedback.
//
// Context
//   Validate returns a Result holding every failed rule per field, so the
//   caller can show all messages at once.  Feedback carries the live
//   pass/fail checklist for one field.  Both encode to the JSON the HTTP
//   layer returns.
//
//------------------------------------------------------------------------------

package validation

import (
	"encoding/json"
	"sort"
)

// Record maps field names to raw string values.
type Record map[string]string

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Violation is one failed rule.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the failed rules per field.  Fields has an entry for every
// evaluated field; an empty slice means the field is valid.
type Result struct {
	Fields     map[string][]Violation
	Advisories map[string][]Violation
}

func newResult() Result {
	return Result{
		Fields:     make(map[string][]Violation),
		Advisories: make(map[string][]Violation),
	}
}

// IsValid is true when no blocking rule failed.
func (r Result) IsValid() bool {
	for _, vs := range r.Fields {
		if len(vs) > 0 {
			return false
		}
	}
	return true
}

// Messages returns the failure messages for field in rule order.
func (r Result) Messages(field string) []string {
	vs := r.Fields[field]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}

// Invalid lists the fields with at least one blocking failure, sorted.
func (r Result) Invalid() []string {
	var out []string
	for name, vs := range r.Fields {
		if len(vs) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders {"valid":…, "errors":{field:[msg…]}, "advisories":…}.
func (r Result) MarshalJSON() ([]byte, error) {
	errs := make(map[string][]string, len(r.Fields))
	for name := range r.Fields {
		errs[name] = r.Messages(name)
	}
	var adv map[string][]string
	if len(r.Advisories) > 0 {
		adv = make(map[string][]string, len(r.Advisories))
		for name, vs := range r.Advisories {
			for _, v := range vs {
				adv[name] = append(adv[name], v.Message)
			}
		}
	}
	return json.Marshal(struct {
		Valid      bool                `json:"valid"`
		Errors     map[string][]string `json:"errors"`
		Advisories map[string][]string `json:"advisories,omitempty"`
	}{r.IsValid(), errs, adv})
}

// RuleStatus is one line of advisory feedback.
type RuleStatus struct {
	Rule   string `json:"rule"`
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
}

// Feedback is the live checklist for one field.  Visible is false while the
// value is empty; Rules is populated either way.
type Feedback struct {
	Field   string       `json:"field"`
	Visible bool         `json:"visible"`
	Rules   []RuleStatus `json:"rules"`
}

// Passed is true when every rule in the checklist passed.
func (f Feedback) Passed() bool {
	for _, r := range f.Rules {
		if !r.Passed {
			return false
		}
	}
	return true
}

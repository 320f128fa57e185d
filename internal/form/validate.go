// internal/form/validate.go
//
// formcheck – Forms subsystem: request decoding, validation, and
// sanitization.
//
// Context
//   Handlers receive user input either as a JSON object or as url-encoded
//   form data.  This file turns both into a validation.Record, runs the
//   form's schema with metrics attached, and, once a submission is valid,
//   produces the sanitized value map that actions are allowed to see.
//
// Workflow
//   •  RecordFromValues / RecordFromJSON build a Record.  Only keys the client
//      actually sent are present, so a missing field surfaces as
//      validation.ErrMissingField rather than silently validating "".
//   •  Check runs the schema and bumps the validation counters.
//   •  Sanitize strips markup from text fields and trims emails.  Password
//      values pass through untouched for the store action to hash.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/yanizio/formcheck/internal/metrics"
	"github.com/yanizio/formcheck/internal/validation"
)

// strictPolicy removes every tag and keeps text content.
var strictPolicy = bluemonday.StrictPolicy()

// -----------------------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------------------

// RecordFromValues copies the first value of each declared field present in
// posted.  Undeclared keys (csrf_token and friends) are ignored.
func RecordFromValues(f *Form, posted url.Values) validation.Record {
	rec := make(validation.Record, len(f.Def.Fields))
	for _, fd := range f.Def.Fields {
		if vs, ok := posted[fd.Name]; ok && len(vs) > 0 {
			rec[fd.Name] = vs[0]
		}
	}
	return rec
}

// RecordFromJSON decodes a flat JSON object of strings.  null members count
// as absent; non-string members are rejected.
func RecordFromJSON(r io.Reader) (validation.Record, error) {
	var raw map[string]*string
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec := make(validation.Record, len(raw))
	for k, v := range raw {
		if v != nil {
			rec[k] = *v
		}
	}
	return rec, nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Check validates rec against f and records the outcome.
func Check(f *Form, rec validation.Record) (validation.Result, error) {
	res, err := f.Schema.Validate(rec)
	if err != nil {
		metrics.Validations.WithLabelValues(f.Def.ID, "malformed").Inc()
		return res, err
	}
	observe(f.Def.ID, res)
	return res, nil
}

// CheckField validates one field plus its dependents.
func CheckField(f *Form, rec validation.Record, field string) (validation.Result, error) {
	res, err := f.Schema.ValidateField(rec, field)
	if err != nil {
		return res, err
	}
	observe(f.Def.ID, res)
	return res, nil
}

func observe(formID string, res validation.Result) {
	outcome := "valid"
	if !res.IsValid() {
		outcome = "invalid"
	}
	metrics.Validations.WithLabelValues(formID, outcome).Inc()
	for field, vs := range res.Fields {
		for _, v := range vs {
			metrics.RuleFailures.WithLabelValues(formID, field, v.Rule).Inc()
		}
	}
}

// -----------------------------------------------------------------------------
// Sanitization
// -----------------------------------------------------------------------------

// Sanitize returns the values actions may use.  Call only on a record that
// passed Check.
func Sanitize(f *Form, rec validation.Record) map[string]string {
	clean := make(map[string]string, len(f.Def.Fields))
	for _, fd := range f.Def.Fields {
		val := rec[fd.Name]
		switch fd.Type {
		case "text":
			clean[fd.Name] = strictPolicy.Sanitize(strings.TrimSpace(val))
		case "email":
			clean[fd.Name] = strings.TrimSpace(val)
		default:
			clean[fd.Name] = val
		}
	}
	return clean
}

// confirmOnly reports whether field exists only to repeat another field.
// Such fields carry nothing worth storing or forwarding.
func confirmOnly(f *Form, field string) bool {
	fd, ok := f.Field(field)
	if !ok {
		return false
	}
	for _, r := range fd.Rules {
		if r.Kind == "equals_field" {
			return true
		}
	}
	return false
}

// secretFields lists the password-typed fields of f.
func secretFields(f *Form) map[string]bool {
	out := make(map[string]bool)
	for _, fd := range f.Def.Fields {
		if fd.Type == "password" {
			out[fd.Name] = true
		}
	}
	return out
}

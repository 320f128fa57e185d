// internal/validation/rule.go
//
// formcheck – Validation core: rules and rule constructors.
//
// Context
//   A Rule is a named predicate over one field's string value plus the
//   message shown when it fails.  Rules are plain values in a static table;
//   there is no registry and no reflection.  Cross-field rules receive the
//   whole Record so they can read the field they depend on.
//
// Notes
//   •  Lengths count UTF-16 code units, the way browsers and JavaScript
//      measure strings.  A character outside the BMP counts as two.
//   •  Two spaces after periods, Oxford comma.
//
//------------------------------------------------------------------------------

package validation

import "regexp"

// Severity decides whether a failed rule blocks submission.
type Severity int

const (
	Blocking Severity = iota // failure makes the Result invalid
	Advisory                 // failure is reported but never blocks
)

func (s Severity) String() string {
	if s == Advisory {
		return "advisory"
	}
	return "blocking"
}

// Predicate reports whether value satisfies a rule.  rec is the full record
// being validated and is only consulted by cross-field rules.
type Predicate func(value string, rec Record) bool

// Rule is one entry of a field's rule table.
type Rule struct {
	ID        string    // unique within the field
	Message   string    // failure message
	Label     string    // advisory feedback text; empty hides the rule from Feedback
	Severity  Severity  // Blocking unless stated otherwise
	SkipEmpty bool      // rule passes on ""
	DependsOn string    // other field read by Check, if any
	Check     Predicate // required
}

// Passes evaluates r against value.
func (r Rule) Passes(value string, rec Record) bool {
	if r.SkipEmpty && value == "" {
		return true
	}
	return r.Check(value, rec)
}

// WithLabel returns a copy of r carrying an advisory feedback label.
func (r Rule) WithLabel(label string) Rule {
	r.Label = label
	return r
}

// AsAdvisory returns a copy of r that never blocks.
func (r Rule) AsAdvisory() Rule {
	r.Severity = Advisory
	return r
}

// OmitEmpty returns a copy of r that is skipped for the empty string.
func (r Rule) OmitEmpty() Rule {
	r.SkipEmpty = true
	return r
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// Required fails on the empty string.
func Required(id, msg string) Rule {
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool { return v != "" }}
}

// MinLength fails when v is shorter than n UTF-16 code units.
func MinLength(id string, n int, msg string) Rule {
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool {
		return Length(v) >= n
	}}
}

// MaxLength fails when v is longer than n UTF-16 code units.
func MaxLength(id string, n int, msg string) Rule {
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool {
		return Length(v) <= n
	}}
}

// Length returns the length of v in UTF-16 code units, matching the
// minlength and maxlength attributes clients enforce.
func Length(v string) int {
	n := 0
	for _, r := range v {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Email fails unless ValidEmail accepts v.
func Email(id, msg string) Rule {
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool { return ValidEmail(v) }}
}

// Contains fails unless re matches somewhere in v.
func Contains(id string, re *regexp.Regexp, msg string) Rule {
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool { return re.MatchString(v) }}
}

// Matches fails unless re matches the whole of v.
func Matches(id string, re *regexp.Regexp, msg string) Rule {
	whole := regexp.MustCompile(`^(?:` + re.String() + `)$`)
	return Rule{ID: id, Message: msg, Check: func(v string, _ Record) bool { return whole.MatchString(v) }}
}

// EqualsField fails unless v equals the current value of field.
func EqualsField(id, field, msg string) Rule {
	return Rule{
		ID:        id,
		Message:   msg,
		DependsOn: field,
		Check:     func(v string, rec Record) bool { return v == rec[field] },
	}
}

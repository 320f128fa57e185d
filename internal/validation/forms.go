// internal/validation/forms.go
//
// formcheck – Validation core: built-in schemas.
//
// Context
//   Signup is the four-field account form with the strict password policy.
//   Basic is the older three-field form that relies on required checks and a
//   short length window.  Both are package-level tables built once.
//
//------------------------------------------------------------------------------

package validation

import "regexp"

// Field names shared by the built-in schemas.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PasswordRules is the signup password table.  Every rule carries a
// feedback label so the whole list drives the live checklist.
func PasswordRules() []Rule {
	return []Rule{
		MinLength("minLength", 12, "Password must be at least 12 characters").
			WithLabel("At least 12 characters"),
		MaxLength("maxLength", 25, "Password cannot exceed 25 characters").
			WithLabel("At most 25 characters"),
		Contains("uppercase", upperRe, "Must include an uppercase letter").
			WithLabel("Contains an uppercase letter"),
		Contains("lowercase", lowerRe, "Must include a lowercase letter").
			WithLabel("Contains a lowercase letter"),
		Contains("digit", digitRe, "Must include a number").
			WithLabel("Contains a number"),
		Contains("special", specialRe, "Must include a special character").
			WithLabel("Contains a special character"),
	}
}

var (
	signup = MustSchema("signup",
		FieldSpec{Name: FieldUsername, Rules: []Rule{
			MinLength("required", 1, "Username is required"),
			MaxLength("maxLength", 20, "Username cannot exceed 20 characters"),
		}},
		FieldSpec{Name: FieldEmail, Rules: []Rule{
			Email("format", "Invalid email address"),
		}},
		FieldSpec{Name: FieldPassword, Rules: PasswordRules()},
		FieldSpec{Name: FieldConfirmPassword, Rules: []Rule{
			EqualsField("match", FieldPassword, "Passwords do not match"),
		}},
	)

	basic = MustSchema("basic",
		FieldSpec{Name: FieldUsername, Rules: []Rule{
			Required("required", "Username is required"),
			MaxLength("maxLength", 20, "Username cannot exceed 20 characters"),
		}},
		FieldSpec{Name: FieldPassword, Rules: []Rule{
			MinLength("minLength", 6, "Password must be at least 6 characters long").OmitEmpty(),
			MaxLength("maxLength", 20, "Password cannot exceed 20 characters"),
			Required("required", "Password is required"),
		}},
		FieldSpec{Name: FieldConfirmPassword, Rules: []Rule{
			Required("required", "Confirm password is required"),
			EqualsField("match", FieldPassword, "Passwords do not match"),
		}},
	)
)

// Signup returns the signup schema.  The value is shared; do not mutate it.
func Signup() *Schema { return signup }

// Basic returns the three-field schema without email or character classes.
func Basic() *Schema { return basic }

// Validate checks rec against the signup schema.
func Validate(rec Record) (Result, error) { return signup.Validate(rec) }

// PasswordFeedback is the live checklist for a signup password.
func PasswordFeedback(password string) Feedback {
	fb, _ := signup.Feedback(FieldPassword, password)
	return fb
}

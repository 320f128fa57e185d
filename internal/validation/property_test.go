package validation

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// TestSignupProperties checks the signup schema against generated records.
func TestSignupProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("well-formed records are valid", prop.ForAll(
		func(user, local, domain, tail string) bool {
			pass := "Aa1!" + tail
			res, err := Validate(signupRecord(user, local+"@"+domain+".com", pass, pass))
			if err != nil || !res.IsValid() {
				return false
			}
			for _, vs := range res.Fields {
				if len(vs) != 0 {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`^[a-z]{1,20}$`),
		gen.RegexMatch(`^[a-z0-9]{1,10}$`),
		gen.RegexMatch(`^[a-z]{1,10}$`),
		gen.RegexMatch(`^[a-z]{8,21}$`),
	))

	properties.Property("mismatched confirmation reports only the match rule", prop.ForAll(
		func(pass, confirm string) bool {
			if pass == confirm {
				return true
			}
			res, err := Validate(signupRecord("alice", "a@b.com", pass, confirm))
			if err != nil {
				return false
			}
			return reflect.DeepEqual(res.Messages(FieldConfirmPassword), []string{"Passwords do not match"})
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("short passwords fail only the lower bound", prop.ForAll(
		func(pass string) bool {
			if Length(pass) >= 12 {
				return true
			}
			res, err := Validate(signupRecord("alice", "a@b.com", pass, pass))
			if err != nil {
				return false
			}
			msgs := res.Messages(FieldPassword)
			return contains(msgs, "Password must be at least 12 characters") &&
				!contains(msgs, "Password cannot exceed 25 characters")
		},
		gen.AnyString(),
	))

	properties.Property("validate is idempotent", prop.ForAll(
		func(user, email, pass, confirm string) bool {
			rec := signupRecord(user, email, pass, confirm)
			first, err1 := Validate(rec)
			second, err2 := Validate(rec)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("adding an uppercase letter flips only the uppercase rule", prop.ForAll(
		func(pass string) bool {
			before := statuses(PasswordFeedback(pass))
			after := statuses(PasswordFeedback(pass + "X"))
			if before["uppercase"] || !after["uppercase"] {
				return false
			}
			delete(before, "uppercase")
			delete(after, "uppercase")
			return reflect.DeepEqual(before, after)
		},
		gen.RegexMatch(`^[a-z0-9]{0,10}$`),
	))

	properties.TestingRun(t)
}

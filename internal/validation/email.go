// internal/validation/email.go
//
// formcheck – Validation core: email address shape.
//
// Context
//   The signup form only needs a "looks like an address" check, not RFC 5322.
//   The accepted grammar is pinned here so the boundary is explicit.
//
//------------------------------------------------------------------------------

package validation

import (
	"regexp"
	"strings"
)

// emailPattern is the permissive "lite" address shape accepted by the signup
// form.  RE2 has no lookahead, so the leading-dot and double-dot checks live
// in ValidEmail.
var emailPattern = regexp.MustCompile(
	`^[A-Za-z0-9_'+\-.]*[A-Za-z0-9_+\-]@([A-Za-z0-9][A-Za-z0-9\-]*\.)+[A-Za-z]{2,}$`,
)

// ValidEmail reports whether s looks like an email address.
//
// Accepted: "a@b.com", "first.last+tag@mail.example.org".
// Rejected: "a@b" (no top-level label), "a@b.c" (one-letter TLD),
// ".a@b.com", "a.@b.com", "a..b@c.com", and anything with spaces.
func ValidEmail(s string) bool {
	if strings.HasPrefix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	return emailPattern.MatchString(s)
}

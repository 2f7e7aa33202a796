package validation

import (
	"regexp"
	"strings"
)

// Same shape the site's forms accept: something@something.tld, no whitespace.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

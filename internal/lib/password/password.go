// Package password holds the strength policy applied to new passwords.
package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	MinLength = 6
	MaxLength = 22
)

// Validate returns one message per violated rule, or nil when the password
// is acceptable.
func Validate(password string) []string {
	var (
		upper, lower, digit, symbol, space bool
		violations                         []string
	)

	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	n := utf8.RuneCountInString(password)
	if n < MinLength {
		violations = append(violations, fmt.Sprintf("The string should have a minimum length of %d characters", MinLength))
	}
	if n > MaxLength {
		violations = append(violations, fmt.Sprintf("The string should have a maximum length of %d characters", MaxLength))
	}
	if !upper {
		violations = append(violations, "The string should have a minimum of 1 uppercase letter")
	}
	if !lower {
		violations = append(violations, "The string should have a minimum of 1 lowercase letter")
	}
	if !digit {
		violations = append(violations, "The string should have a minimum of 1 digit")
	}
	if !symbol {
		violations = append(violations, "The string should have a minimum of 1 symbol")
	}
	if space {
		violations = append(violations, "The string should not have spaces")
	}

	return violations
}

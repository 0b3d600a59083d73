package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Reason names the rule a credential failed.
type Reason string

const (
	ReasonEmailEmpty          Reason = "EmailEmpty"
	ReasonEmailFormat         Reason = "EmailFormat"
	ReasonPasswordTooShort    Reason = "PasswordTooShort"
	ReasonPasswordNoUppercase Reason = "PasswordNoUppercase"
	ReasonPasswordNoDigit     Reason = "PasswordNoDigit"
	ReasonPasswordNoSpecial   Reason = "PasswordNoSpecial"
)

// RuleViolation reports the first rule a value failed.
type RuleViolation struct {
	Field  string
	Reason Reason
}

func (v *RuleViolation) Error() string {
	return v.Field + ": " + string(v.Reason)
}

// ValidateEmail checks that email is well formed.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return &RuleViolation{Field: "email", Reason: ReasonEmailEmpty}
	}
	if !emailPattern.MatchString(email) {
		return &RuleViolation{Field: "email", Reason: ReasonEmailFormat}
	}
	return nil
}

// ValidatePassword checks the strength rules: minimum length plus at least one
// uppercase letter, one digit and one character that is neither letter, digit nor space.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &RuleViolation{Field: "password", Reason: ReasonPasswordTooShort}
	}

	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}

	switch {
	case !upper:
		return &RuleViolation{Field: "password", Reason: ReasonPasswordNoUppercase}
	case !digit:
		return &RuleViolation{Field: "password", Reason: ReasonPasswordNoDigit}
	case !special:
		return &RuleViolation{Field: "password", Reason: ReasonPasswordNoSpecial}
	}
	return nil
}

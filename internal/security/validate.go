// Package security holds the pure input checks shared by the session client
// and the CLI forms: email and phone shape, password strength, text
// sanitization and injection heuristics. Nothing here performs I/O.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the strength policy accepts.
const MinPasswordLength = 8

// Password requirement labels reported in PasswordReport.Missing.
const (
	RequirementLength    = "at least 8 characters"
	RequirementUpper     = "uppercase letter"
	RequirementLower     = "lowercase letter"
	RequirementDigit     = "number"
	RequirementSpecial   = "special character"
	passwordPolicyString = "Password must be at least 8 characters with uppercase, lowercase, number, and special character"
)

// Strength levels reported by ValidatePasswordStrength.
const (
	LevelWeak   = "weak"
	LevelFair   = "fair"
	LevelGood   = "good"
	LevelStrong = "strong"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	phonePattern   = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneStrip     = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// PasswordReport describes how a password measures against the policy.
type PasswordReport struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
	Score   int      `json:"score"`
	Level   string   `json:"level"`
}

// Message returns the human-readable policy text used in validation errors.
func (r PasswordReport) Message() string {
	if r.Valid {
		return ""
	}
	return passwordPolicyString
}

// ValidateEmail reports whether value looks like local@domain.tld.
func ValidateEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// ValidatePasswordStrength checks length, upper, lower, digit and special
// character requirements and lists every requirement that is not met.
func ValidatePasswordStrength(password string) PasswordReport {
	report := PasswordReport{}

	if utf8.RuneCountInString(password) >= MinPasswordLength {
		report.Score++
	} else {
		report.Missing = append(report.Missing, RequirementLength)
	}
	if upperPattern.MatchString(password) {
		report.Score++
	} else {
		report.Missing = append(report.Missing, RequirementUpper)
	}
	if lowerPattern.MatchString(password) {
		report.Score++
	} else {
		report.Missing = append(report.Missing, RequirementLower)
	}
	if digitPattern.MatchString(password) {
		report.Score++
	} else {
		report.Missing = append(report.Missing, RequirementDigit)
	}
	if specialPattern.MatchString(password) {
		report.Score++
	} else {
		report.Missing = append(report.Missing, RequirementSpecial)
	}

	report.Valid = len(report.Missing) == 0
	report.Level = strengthLevel(report.Score)
	return report
}

// ValidatePhone accepts an empty value (phone is optional) or an
// international-style number once spaces, dashes and parentheses are removed.
func ValidatePhone(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	return phonePattern.MatchString(phoneStrip.Replace(trimmed))
}

func strengthLevel(score int) string {
	// Four buckets over five checks: 0-1 weak, 2 fair, 3 good, 4-5 strong.
	switch idx := min(score*4/5, 3); idx {
	case 0:
		return LevelWeak
	case 1:
		return LevelFair
	case 2:
		return LevelGood
	default:
		return LevelStrong
	}
}

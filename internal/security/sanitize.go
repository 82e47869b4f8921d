package security

import (
	"html"
	"regexp"
)

var (
	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE)\b`),
		regexp.MustCompile(`(--|/\*|\*/|;)`),
		regexp.MustCompile(`(?i)(\bOR\b|\bAND\b).*=`),
	}
	scriptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)<iframe`),
	}
)

// InjectionReport flags SQL-like and script-like substrings. It is a
// heuristic for warning users, not a security control.
type InjectionReport struct {
	SQL    bool `json:"sql"`
	Script bool `json:"script"`
}

// Suspicious reports whether any pattern matched.
func (r InjectionReport) Suspicious() bool {
	return r.SQL || r.Script
}

// SanitizeText escapes markup-significant characters so value can be shown
// verbatim inside HTML.
func SanitizeText(value string) string {
	return html.EscapeString(value)
}

// DetectInjectionPattern runs the SQL and script heuristics over input.
func DetectInjectionPattern(input string) InjectionReport {
	return InjectionReport{
		SQL:    matchesAny(sqlPatterns, input),
		Script: matchesAny(scriptPatterns, input),
	}
}

func matchesAny(patterns []*regexp.Regexp, input string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

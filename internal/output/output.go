// Package output renders CLI results as tables, JSON, YAML or Markdown.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/security"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders a command result.
type Formatter interface {
	Format(v any) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(value)); normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Render formats v with the named format.
func Render(format Format, v any) (string, error) {
	return NewFormatter(format).Format(v)
}

// RateLimitRow is one persisted request window.
type RateLimitRow struct {
	Key   string              `json:"key" yaml:"key"`
	State core.RateLimitState `json:"state" yaml:"state"`
}

// Message is a one-line confirmation such as "Logged out".
type Message struct {
	Text string `json:"message" yaml:"message"`
}

// TextReport is the result of checking free text before it is posted.
type TextReport struct {
	Sanitized string                   `json:"sanitized" yaml:"sanitized"`
	Injection security.InjectionReport `json:"injection" yaml:"injection"`
}

// grid is the tabular form shared by the table and Markdown formatters.
type grid struct {
	title  string
	header []string
	rows   [][]string
	footer string
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return timestamp(*t)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

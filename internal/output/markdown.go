package output

import (
	"strings"
)

// MarkdownFormatter renders results as a Markdown table.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(v any) (string, error) {
	if msg, ok := v.(Message); ok {
		return msg.Text, nil
	}
	g, err := toGrid(v)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if g.title != "" {
		sb.WriteString("## " + escapeMarkdownCell(g.title) + "\n\n")
		g.title = ""
	}
	sb.WriteString(newTableWriter(g).RenderMarkdown())
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as a rounded ASCII table.
type TableFormatter struct{}

func (f *TableFormatter) Format(v any) (string, error) {
	if msg, ok := v.(Message); ok {
		return msg.Text, nil
	}
	g, err := toGrid(v)
	if err != nil {
		return "", err
	}
	return newTableWriter(g).Render(), nil
}

func newTableWriter(g grid) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if g.title != "" {
		t.SetTitle(g.title)
	}
	if len(g.header) > 0 {
		t.AppendHeader(toRow(g.header))
	}
	for _, row := range g.rows {
		t.AppendRow(toRow(row))
	}
	if g.footer != "" {
		footer := make(table.Row, len(g.header))
		if len(footer) == 0 {
			footer = table.Row{""}
		}
		footer[len(footer)-1] = g.footer
		t.AppendFooter(footer)
	}
	return t
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

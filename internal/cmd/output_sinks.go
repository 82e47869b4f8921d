package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainboard/brainboard/internal/output"
)

var (
	outPath string
	outDir  string
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatYAML:
		return "yaml"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// resolveOutputPath turns --out/--out-dir into a file path; "" means the
// command's own stdout.
func resolveOutputPath(cmd *cobra.Command, format output.Format) (string, error) {
	path := strings.TrimSpace(outPath)
	dir := strings.TrimSpace(outDir)
	if path != "" && dir != "" {
		return "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	if dir == "" {
		return path, nil
	}
	dir, err := ensureOutDir(dir)
	if err != nil {
		return "", err
	}
	name := strings.TrimPrefix(cmd.CommandPath(), rootCmd.Name())
	return filepath.Join(dir, fmt.Sprintf("%s.%s", sanitizeFilename(name), outputExtension(format))), nil
}

func openSink(cmd *cobra.Command, path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

func ensureOutDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", nil
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean, nil
	}
	return abs, nil
}

// writeOutput renders v in the selected format to the selected sink.
func writeOutput(cmd *cobra.Command, v any) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	path, err := resolveOutputPath(cmd, format)
	if err != nil {
		return err
	}
	rendered, err := output.Render(format, v)
	if err != nil {
		return err
	}

	sink, err := openSink(cmd, path)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if _, err := io.WriteString(sink.writer, rendered); err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		_, err = io.WriteString(sink.writer, "\n")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outPath, "out", "", "Write output to a file (default stdout)")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "Write output to a directory, one file per command")
}

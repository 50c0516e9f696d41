// Package report writes digest reports as YAML or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

// Format is a report encoding.
type Format int

const (
	// FormatStdout prints YAML to the writer's stdout.
	FormatStdout Format = iota
	FormatYAML
	FormatJSON
)

// FormatOf picks the encoding of dst from its extension. Anything other
// than .yaml, .yml or .json goes to stdout.
func FormatOf(dst string) Format {
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatStdout
	}
}

// Writer implements out.ReportWriter.
type Writer struct {
	fs     afero.Fs
	stdout io.Writer
	log    zerowrap.Logger
}

var _ out.ReportWriter = (*Writer)(nil)

// NewWriter creates a Writer. A nil stdout means os.Stdout.
func NewWriter(fsys afero.Fs, stdout io.Writer, log zerowrap.Logger) *Writer {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Writer{
		fs:     fsys,
		stdout: stdout,
		log:    log,
	}
}

// Write encodes report into dst.
func (w *Writer) Write(report *domain.Digests, dst string) error {
	format := FormatOf(dst)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	default:
		data, err = encodeYAML(report)
	}
	if err != nil {
		return fmt.Errorf("failed to encode digest report: %w", err)
	}

	if format == FormatStdout {
		if _, err := w.stdout.Write(data); err != nil {
			return fmt.Errorf("failed to print digest report: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(dst); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(w.fs, dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write digest report %s: %w", dst, err)
	}
	w.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "report").
		Str(zerowrap.FieldPath, dst).
		Int(zerowrap.FieldCount, len(report.OS)).
		Msg("digest report written")
	return nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

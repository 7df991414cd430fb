// Package serializer renders agent results as JSON or YAML and provides the
// HTTP response helper used by the event server.
package serializer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// IsUnknown reports whether the format is not one of the supported encodings.
func (f Format) IsUnknown() bool {
	return f != FormatJSON && f != FormatYAML
}

// Writer serializes values to an output stream in a fixed format.
type Writer struct {
	format Format
	out    io.Writer
}

// NewWriter creates a writer for the given format and destination.
func NewWriter(format Format, out io.Writer) *Writer {
	return &Writer{format: format, out: out}
}

// NewStdoutWriter creates a writer targeting stdout.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// Serialize encodes data to the writer's stream.
func (w *Writer) Serialize(data any) error {
	switch w.format {
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %q", w.format)
	}
}

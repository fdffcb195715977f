// encode.go serializes the combined document and writes it out.
package compose

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// encodeIndent is the indentation used for the combined file.
const encodeIndent = 2

// Encode writes a document to w in block style with keys in tree order.
func Encode(w io.Writer, doc *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(encodeIndent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to serialize combined compose YAML: %w", err)
	}
	// Close flushes the encoder; it does not close w.
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to serialize combined compose YAML: %w", err)
	}
	return nil
}

// Marshal returns the encoded form of a document.
func Marshal(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteOutput writes the combined compose YAML to outputPath, creating
// parent directories if they don't exist. An existing file is replaced.
//
// The file is written with 0644 permissions, the standard permission for
// non-executable config files.
//
// Returns an IOError if the directory or the file cannot be written.
func WriteOutput(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "write", Path: outputPath, Err: err}
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return &IOError{Op: "write", Path: outputPath, Err: err}
	}

	return nil
}

package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const defaultFileMode fs.FileMode = 0o644

// Writer writes files, creating parent directories and keeping the mode of files it replaces.
type Writer struct {
	indent string
}

func NewWriter() *Writer {
	return &Writer{indent: "  "}
}

// WithIndent changes the indentation used by WriteJSON.
func (w *Writer) WithIndent(indent string) *Writer {
	w.indent = indent
	return w
}

// WriteJSON writes data as indented JSON followed by a newline.
func (w *Writer) WriteJSON(path string, data any) error {
	content, err := json.MarshalIndent(data, "", w.indent)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	return w.WriteBytes(path, append(content, '\n'))
}

// WriteBytes writes data to path.
func (w *Writer) WriteBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	mode := defaultFileMode
	info, err := os.Stat(path)
	switch {
	case err == nil:
		mode = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

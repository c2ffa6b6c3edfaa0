package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Reader reads JSON documents from disk.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadJSON reads path and unmarshals it into target. Numbers are kept as json.Number so documents
// written back by Writer do not lose precision.
func (r *Reader) ReadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return nil
}

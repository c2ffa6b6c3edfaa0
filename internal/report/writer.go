package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"gopkg.in/yaml.v3"
)

const DefaultDir = "reports"

// Writer persists run reports as <dir>/<run-id>.yaml.
type Writer struct {
	dir   string
	files filesystem.Writer
	now   func() time.Time
}

func NewWriter(dir string, files filesystem.Writer) *Writer {
	return &Writer{dir: dir, files: files, now: time.Now}
}

// Write stores report and returns the path written.
func (w *Writer) Write(report *bridge.RunReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("no report to write")
	}

	data, err := yaml.Marshal(NewModel(report, w.now()))
	if err != nil {
		return "", fmt.Errorf("could not marshal run report. Err: '%w'", err)
	}

	path := filepath.Join(w.dir, report.RunID+".yaml")
	if err := w.files.WriteBytes(path, data); err != nil {
		return "", fmt.Errorf("could not write run report. Err: '%w'", err)
	}

	return path, nil
}

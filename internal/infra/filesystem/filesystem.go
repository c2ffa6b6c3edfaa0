// Package filesystem holds the file access contracts shared by the config sinks, reports and deploy log.
package filesystem

type (
	Reader interface {
		ReadJSON(path string, target any) error
	}

	Writer interface {
		WriteJSON(path string, data any) error
		WriteBytes(path string, data []byte) error
	}

	ReadWriter interface {
		Reader
		Writer
	}
)

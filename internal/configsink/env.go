package configsink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/common"
)

const tokenAddressKey = "TOKEN_ADDRESS"

// EnvFile sets TOKEN_ADDRESS in a dotenv file, replacing an existing assignment or appending one. A
// missing file is created.
type EnvFile struct {
	path   string
	writer filesystem.Writer
}

func NewEnvFile(path string, writer filesystem.Writer) *EnvFile {
	return &EnvFile{path: path, writer: writer}
}

func (e *EnvFile) Name() string {
	return "env:" + e.path
}

func (e *EnvFile) Apply(token common.Address) error {
	data, err := os.ReadFile(e.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	return e.writer.WriteBytes(e.path, []byte(setEnv(string(data), tokenAddressKey, token.Hex())))
}

// setEnv returns content with key assigned to value. Only the first assignment is rewritten.
func setEnv(content, key, value string) string {
	assignment := key + "=" + value
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "export "))
		if strings.HasPrefix(trimmed, key+"=") {
			lines[i] = assignment
			return strings.Join(lines, "\n")
		}
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + assignment + "\n"
}

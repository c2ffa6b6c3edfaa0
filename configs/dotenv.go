package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/subosito/gotenv"
)

// DotEnvFile is the env file written by the config sinks and read back on startup.
const DotEnvFile = ".env"

// LoadDotEnv exports the variables of the .env file in each of dirs. Variables already set in the process
// environment win. Missing files are skipped; the files read are returned.
func LoadDotEnv(dirs ...string) ([]string, error) {
	var (
		loaded []string
		seen   = make(map[string]struct{}, len(dirs))
	)

	for _, dir := range dirs {
		path, err := filepath.Abs(filepath.Join(dir, DotEnvFile))
		if err != nil {
			return loaded, fmt.Errorf("failed to resolve %s in %q: %w", DotEnvFile, dir, err)
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}

		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := gotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}

	return loaded, nil
}

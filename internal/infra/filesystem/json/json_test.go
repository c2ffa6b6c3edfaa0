package json

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ filesystem.Reader = (*Reader)(nil)
	_ filesystem.Writer = (*Writer)(nil)
)

func TestWriterCreatesDirectoriesAndKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	w := NewWriter()
	require.NoError(t, w.WriteJSON(path, map[string]any{"a": 1}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, defaultFileMode, info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o600))
	require.NoError(t, w.WriteBytes(path, []byte("{}\n")))

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReaderKeepsNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chainId": 12345678901234567890}`), 0o644))

	var doc map[string]any
	require.NoError(t, NewReader().ReadJSON(path, &doc))

	n, ok := doc["chainId"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "12345678901234567890", n.String())
}

func TestReaderMissingFile(t *testing.T) {
	var doc map[string]any
	err := NewReader().ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &doc)
	require.ErrorIs(t, err, os.ErrNotExist)
}

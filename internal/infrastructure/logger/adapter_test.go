package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAdapter_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLoggerAdapter(Options{Level: "debug", Dir: dir, Name: "my topic!"})
	require.NoError(t, err)

	l.WithField("run_id", "r1").Info("Stage completed", "stage", "writer")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*_my_topic.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Stage completed"`)
	assert.Contains(t, string(data), `"run_id":"r1"`)
	assert.Contains(t, string(data), `"stage":"writer"`)
}

func TestNewLoggerAdapter_RejectsBadLevel(t *testing.T) {
	_, err := NewLoggerAdapter(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b-c", sanitize("a b-c"))
	assert.Equal(t, "run", sanitize("!!!"))
	assert.Len(t, sanitize(strings.Repeat("a", 100)), 60)
}

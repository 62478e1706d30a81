package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliLogger_New(t *testing.T) {
	t.Parallel()
	logger := NewCliLogger(&bytes.Buffer{}, &bytes.Buffer{}, nil, false)
	assert.NotNil(t, logger)
}

func TestCliLogger_File(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "logs", "importer.log")
	file, err := NewLogFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, filePath, file.Path())

	logger := NewCliLogger(&bytes.Buffer{}, &bytes.Buffer{}, file, false)
	logger.Debug("Debug msg")
	logger.Info("Info msg")
	logger.Warn("Warn msg")
	logger.Error("Error msg")
	file.TearDown()

	// Assert, all levels logged with the level prefix
	expected := `
{"level":"debug","time":"%s","message":"Debug msg"}
{"level":"info","time":"%s","message":"Info msg"}
{"level":"warn","time":"%s","message":"Warn msg"}
{"level":"error","time":"%s","message":"Error msg"}
`

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	wildcards.Assert(t, expected, string(content))
}

func TestCliLogger_VerboseFalse(t *testing.T) {
	t.Parallel()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	logger := NewCliLogger(stdout, stderr, nil, false)

	logger.Debug("Debug msg")
	logger.Info("Info msg")
	logger.Warn("Warn msg")
	logger.Error("Error msg")

	// Assert
	// info      -> stdout
	// warn, err -> stderr
	assert.Equal(t, "Info msg\n", stdout.String())
	assert.Equal(t, "Warn msg\nError msg\n", stderr.String())
}

func TestCliLogger_VerboseTrue(t *testing.T) {
	t.Parallel()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	logger := NewCliLogger(stdout, stderr, nil, true)

	logger.Debug("Debug msg")
	logger.Info("Info msg")
	logger.Warn("Warn msg")
	logger.Error("Error msg")

	// Assert
	// debug (verbose), info -> stdout
	// warn, err             -> stderr
	assert.Equal(t, "DEBUG\tDebug msg\nINFO\tInfo msg\n", stdout.String())
	assert.Equal(t, "WARN\tWarn msg\nERROR\tError msg\n", stderr.String())
}

func TestCliLogger_With(t *testing.T) {
	t.Parallel()
	stdout := &bytes.Buffer{}
	logger := NewCliLogger(stdout, &bytes.Buffer{}, nil, false)
	logger.With("project_id", 123).Infof("Fetched %d jobs", 4)
	assert.Equal(t, "Fetched 4 jobs\t{\"project_id\": 123}\n", stdout.String())
}

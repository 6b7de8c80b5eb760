package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	// Should not panic with fields attached.
	logger.WithComponent("catalog").WithRegistry("Aggregated").Info("test message")
}

func TestNew_JSONFormat(t *testing.T) {
	logger, err := New(Config{Level: LevelDebug, Format: FormatJSON, Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "meteoreg.log")

	logger, err := New(Config{Level: LevelInfo, Format: FormatText, Output: path})
	require.NoError(t, err)

	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := New(Config{Level: "shout", Format: FormatText, Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	logger := NewDefault()
	SetDefault(logger)
	assert.Same(t, logger, Default())
}

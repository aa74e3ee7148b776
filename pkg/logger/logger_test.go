package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	err := Init(Config{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: filepath.Join(t.TempDir(), "logs", "test.log"),
		MaxSize:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())
}

func TestInitBadLevelFallsBack(t *testing.T) {
	require.NoError(t, Init(Config{Level: "loud", Output: "console"}))
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}

func TestGetLoggerWithoutInit(t *testing.T) {
	log = nil
	assert.NotNil(t, GetLogger())
}

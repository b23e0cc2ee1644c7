package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qube.log")

	log, err := New(Options{AppEnv: "production", LogFile: path})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	log.Info("spin committed", zap.String("tier", "rare"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"spin committed"`)
	assert.Contains(t, string(data), `"tier":"rare"`)
	assert.Contains(t, string(data), `"service_name":"qube-quest"`)
}

func TestNewDevelopmentReplacesGlobal(t *testing.T) {
	log, err := New(Options{AppEnv: "development"})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	assert.Same(t, log, zap.L())
}

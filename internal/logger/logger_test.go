package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesDailyFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := filepath.Join(t.TempDir(), "logs")
	log, err := New(dir, false, "debug")
	require.NoError(t, err)

	log.Debugw("probe", "k", "v")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"logger online"`)
	assert.Contains(t, string(raw), `"msg":"probe"`)
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(t.TempDir(), false, "loud")
	assert.Error(t, err)
}

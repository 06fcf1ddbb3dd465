package logger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_WritesToFileAndKillsAtLimit(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sub", "out.log")
	os.MkdirAll(filepath.Dir(out), 0o755)

	k := killer.New()
	tx, err := logger.Start(logger.Config{To: out, Limit: 2, Kill: true}, filepath.Join(dir, "config.yaml"), k)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _ = tx.TrySend(float64(i))
	}

	select {
	case outcome := <-k.Done():
		assert.ErrorIs(t, outcome.Err, errs.KilledByLogger)
	case <-time.After(time.Second):
		t.Fatal("expected logger to kill the run at its limit")
	}
}

func TestStart_UnknownFilePathResolvedRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	k := killer.New()
	tx, err := logger.Start(logger.Config{To: "relative.log"}, configPath, k)
	require.NoError(t, err)
	defer tx.Close()

	_, _ = tx.TrySend("hello")
	time.Sleep(20 * time.Millisecond)

	data, readErr := os.ReadFile(filepath.Join(dir, "relative.log"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "hello")
}

func TestStart_PrettyPrintsObjects(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pretty.log")

	k := killer.New()
	tx, err := logger.Start(logger.Config{To: out, Pretty: true}, filepath.Join(dir, "config.yaml"), k)
	require.NoError(t, err)
	defer tx.Close()

	obj := jsonvalue.NewObject()
	obj["a"] = float64(1)
	_, _ = tx.TrySend(obj)
	time.Sleep(20 * time.Millisecond)

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "\n")
	assert.Contains(t, string(data), "\"a\": 1")
}

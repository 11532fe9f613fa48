package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling: false\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("profiling: true\n"), 0o644))

	select {
	case ev, ok := <-events:
		require.True(t, ok)
		require.NoError(t, ev.Err)
		assert.True(t, ev.Config.Profiling)
	case <-ctx.Done():
		t.Fatal("no reload event before timeout")
	}
}

func TestWatch_SurfacesInvalidRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling: false\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shout\n"), 0o644))

	select {
	case ev, ok := <-events:
		require.True(t, ok)
		assert.Error(t, ev.Err)
	case <-ctx.Done():
		t.Fatal("no event before timeout")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cellguard/pkg/config"
	"mercator-hq/cellguard/pkg/errcode"
)

func TestReconfigure_AppliesToNewContexts(t *testing.T) {
	m := testMonitor(t)

	before := openContext(t, m)
	assert.False(t, before.ProfilingEnabled())

	cfg := config.Default()
	cfg.Profiling = true
	cfg.ProfilePath = filepath.Join(t.TempDir(), "profile.log")
	require.NoError(t, m.Reconfigure(cfg))

	after := openContext(t, m)
	assert.True(t, after.ProfilingEnabled())
	// Contexts opened before the reload keep their flags.
	assert.False(t, before.ProfilingEnabled())
}

func TestReconfigure_RejectsInvalid(t *testing.T) {
	m := testMonitor(t)

	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(m.Reconfigure(nil)))

	bad := config.Default()
	bad.Logging.Level = "shout"
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(m.Reconfigure(bad)))

	// The previous configuration stays in effect.
	ctx := openContext(t, m)
	assert.False(t, ctx.ProfilingEnabled())
}

func TestWatchConfig_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling: false\n"), 0o644))

	m := testMonitor(t)
	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.WatchConfig(watchCtx, path))

	require.NoError(t, os.WriteFile(path, []byte("profiling: true\n"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for {
		ctx := openContext(t, m)
		if ctx.ProfilingEnabled() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new contexts never picked up the reloaded configuration")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchConfig_MissingFile(t *testing.T) {
	m := testMonitor(t)
	err := m.WatchConfig(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestMetricsEnabledGatesRegistration(t *testing.T) {
	cfg := config.Default()
	cfg.ProfilePath = filepath.Join(t.TempDir(), "profile.log")

	cfg.Metrics.Enabled = false
	registry := prometheus.NewRegistry()
	m, err := New(cfg, registry)
	require.NoError(t, err)
	defer m.Close()
	_, err = m.OpenNew()
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "disabled metrics must not touch the host registry")

	cfg2 := config.Default()
	cfg2.ProfilePath = cfg.ProfilePath
	registry2 := prometheus.NewRegistry()
	m2, err := New(cfg2, registry2)
	require.NoError(t, err)
	defer m2.Close()
	_, err = m2.OpenNew()
	require.NoError(t, err)

	families, err = registry2.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "enabled metrics register against the host registry")
}

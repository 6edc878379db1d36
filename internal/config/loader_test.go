package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoadMissingFileUsesDefaults(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "config.toml"))
	defer l.Close()

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Version, cfg.Version)
	assert.Same(t, cfg, l.Config())
}

func TestLoaderWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Default().Save(path))

	l := NewLoader(path)
	defer l.Close()

	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	require.NoError(t, l.Watch())

	updated := Default()
	updated.Hotkey.Toggle = "ctrl+space"
	require.NoError(t, updated.Save(path))

	select {
	case cfg := <-changed:
		assert.Equal(t, "ctrl+space", cfg.Hotkey.Toggle)
		assert.Equal(t, "ctrl+space", l.Config().Hotkey.Toggle)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestLoaderReloadFailureKeepsOldConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Default().Save(path))

	l := NewLoader(path)
	defer l.Close()
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())

	// An invalid rewrite must surface an error, not a changed config.
	bad := Default()
	bad.Hotkey.Toggle = ""
	require.NoError(t, bad.Save(path))

	select {
	case err := <-l.Errors():
		assert.Error(t, err)
		assert.Equal(t, "shift+space", l.Config().Hotkey.Toggle)
	case <-time.After(5 * time.Second):
		t.Fatal("reload error never reported")
	}
}

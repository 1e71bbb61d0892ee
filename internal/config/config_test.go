package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "one_shots", cfg.SamplesDir)
	assert.Equal(t, "patterns", cfg.PatternsDir)
	assert.Equal(t, 120, cfg.Tempo)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.True(t, cfg.TUI)
	assert.Empty(t, cfg.MidiPort)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("RDUM_TEMPO", "90")
	os.Setenv("RDUM_SAMPLES_DIR", "/mnt/kits")
	defer os.Unsetenv("RDUM_TEMPO")
	defer os.Unsetenv("RDUM_SAMPLES_DIR")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Tempo)
	assert.Equal(t, "/mnt/kits", cfg.SamplesDir)
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rdum.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tempo: 140\nmidi_port: \"IAC Driver\"\n"), 0o644))

		cfg, err := Load(New(), path)
		require.NoError(t, err)
		assert.Equal(t, 140, cfg.Tempo)
		assert.Equal(t, "IAC Driver", cfg.MidiPort)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(New(), "/path/that/does/not/exist.yaml")
		assert.Error(t, err)
	})
}

func TestLoadValidation(t *testing.T) {
	t.Run("tempo out of range", func(t *testing.T) {
		v := New()
		v.Set("tempo", 10)
		_, err := Load(v, "")
		assert.Error(t, err)
	})

	t.Run("bad sample rate", func(t *testing.T) {
		v := New()
		v.Set("sample_rate", 0)
		_, err := Load(v, "")
		assert.Error(t, err)
	})
}

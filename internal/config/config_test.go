package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, ".", cfg.Root)
		assert.Equal(t, "_id", cfg.Resolver.IDSuffix)
		assert.True(t, cfg.History.Enabled)
		assert.Equal(t, []string{"structured", "html", "excel"}, cfg.Output.Formats)
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := `
root: /src/app
walker:
  exclude: ["migrations/*"]
  max_depth: 4
output:
  dir: out
  formats: ["structured"]
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/src/app", cfg.Root)
		assert.Equal(t, []string{"migrations/*"}, cfg.Walker.Exclude)
		assert.Equal(t, 4, cfg.Walker.MaxDepth)
		assert.Equal(t, "out", cfg.Output.Dir)
		assert.Equal(t, []string{"structured"}, cfg.Output.Formats)
	})

	t.Run("Env override wins", func(t *testing.T) {
		t.Setenv("MODELMAP_OUTPUT_DIR", "/tmp/mm")
		t.Setenv("MODELMAP_FORMATS", "structured, excel")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/mm", cfg.Output.Dir)
		assert.Equal(t, []string{"structured", "excel"}, cfg.Output.Formats)
	})

	t.Run("Unknown format rejected", func(t *testing.T) {
		t.Setenv("MODELMAP_FORMATS", "pdf")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestWantsFormat(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.WantsFormat("html"))
	cfg.Output.Formats = []string{"structured"}
	assert.False(t, cfg.WantsFormat("html"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRequirePassPrecedence(t *testing.T) {
	fromFile := "from-file"

	t.Run("default_when_nothing_set", func(t *testing.T) {
		assert.Equal(t, "", resolveRequirePass(false, "", "", nil))
	})
	t.Run("file_used_when_no_cli_or_env", func(t *testing.T) {
		assert.Equal(t, "from-file", resolveRequirePass(false, "", "", &fromFile))
	})
	t.Run("env_overrides_file", func(t *testing.T) {
		assert.Equal(t, "from-env", resolveRequirePass(false, "", "from-env", &fromFile))
	})
	t.Run("cli_wins_over_everything", func(t *testing.T) {
		assert.Equal(t, "from-cli", resolveRequirePass(true, "from-cli", "from-env", &fromFile))
	})
}

func TestLoadFileOverlay(t *testing.T) {
	t.Run("missing_path_is_not_an_error", func(t *testing.T) {
		overlay, err := loadFileOverlay("")
		require.NoError(t, err)
		assert.Nil(t, overlay.RequirePass)
	})
	t.Run("nonexistent_file_is_not_an_error", func(t *testing.T) {
		overlay, err := loadFileOverlay(filepath.Join(t.TempDir(), "missing.toml"))
		require.NoError(t, err)
		assert.Nil(t, overlay.RequirePass)
	})
	t.Run("parses_known_keys", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "feox.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
requirepass = "secret"
port = 7000
bind = "0.0.0.0"
`), 0o644))

		overlay, err := loadFileOverlay(path)
		require.NoError(t, err)
		require.NotNil(t, overlay.RequirePass)
		assert.Equal(t, "secret", *overlay.RequirePass)
		require.NotNil(t, overlay.Port)
		assert.Equal(t, uint16(7000), *overlay.Port)
		require.NotNil(t, overlay.Bind)
		assert.Equal(t, "0.0.0.0", *overlay.Bind)
	})
	t.Run("malformed_file_is_an_error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "feox.toml")
		require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))
		_, err := loadFileOverlay(path)
		assert.Error(t, err)
	})
}

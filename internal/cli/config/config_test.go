package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/metadata"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "odatakit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.Metadata.Map)
	assert.False(t, cfg.Metadata.Watch)
	assert.True(t, cfg.Diagnostic.Enable)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Format.IndentSize)
	assert.Equal(t, 100, cfg.Format.WrapWidth)
	assert.Nil(t, cfg.WorkspaceRoots())
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
metadata:
  map:
    - url: https://services.odata.org/V4/Northwind/Northwind.svc
      path: metadata/northwind.xml
    - url: https://services.odata.org/V4
      path: metadata/generic.xml
  watch: true
diagnostic:
  enable: false
log:
  level: DEBUG
format:
  indent_size: 4
  wrap_width: 0
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []metadata.MapEntry{
		{URL: "https://services.odata.org/V4/Northwind/Northwind.svc", Path: "metadata/northwind.xml"},
		{URL: "https://services.odata.org/V4", Path: "metadata/generic.xml"},
	}, cfg.Metadata.Map, "map entries keep file order")
	assert.True(t, cfg.Metadata.Watch)
	assert.False(t, cfg.Diagnostic.Enable)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Format.IndentSize)
	assert.Equal(t, 0, cfg.Format.WrapWidth)

	require.NotEmpty(t, cfg.File)
	assert.Equal(t, []string{filepath.Dir(cfg.File)}, cfg.WorkspaceRoots())
}

func TestLoadFindsParentConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log:\n  level: warn\n")
	sub := filepath.Join(dir, "queries", "orders")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "odatakit.yaml", filepath.Base(cfg.File))
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace:
  roots: [/srv/a, /srv/b]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, []string{"/srv/a", "/srv/b"}, cfg.WorkspaceRoots())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ODATAKIT_LOG_LEVEL", "error")
	t.Setenv("ODATAKIT_DIAGNOSTIC_ENABLE", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.False(t, cfg.Diagnostic.Enable)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{
			name:    "map entry without path",
			content: "metadata:\n  map:\n    - url: https://host/svc\n",
			code:    errors.ErrInvalidMapEntry,
		},
		{
			name:    "map entry without url",
			content: "metadata:\n  map:\n    - path: a.xml\n",
			code:    errors.ErrInvalidMapEntry,
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: chatty\n",
			code:    errors.ErrInvalidConfig,
		},
		{
			name:    "negative indent",
			content: "format:\n  indent_size: -2\n",
			code:    errors.ErrInvalidConfig,
		},
		{
			name:    "malformed yaml",
			content: "metadata: [unclosed\n",
			code:    errors.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "got %v", err)

			e, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, path, e.Path)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsIO(err), "got %v", err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, root, content string) string {
	t.Helper()
	path := SettingsPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(Options{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestLoadSettingsFile(t *testing.T) {
	root := t.TempDir()
	want := writeSettings(t, root, "catalog: 2ch\ninterpreter: python3\nstrict: true\nlog_level: debug\n")

	cfg, path, err := Load(Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, want, path)
	assert.Equal(t, "2ch", cfg.Catalog)
	assert.Equal(t, "python3", cfg.Interpreter)
	assert.True(t, cfg.Strict)
	assert.Equal(t, ".", cfg.Sources, "unset keys keep their default")
	assert.Equal(t, log.DebugLevel, cfg.Level())
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, _, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "catalog: 2ch\nsources: ./web\noutput: file.zip\n")
	t.Setenv("BUNSEKI_SOURCES", "https://example.org/scripts/")
	t.Setenv("BUNSEKI_OUTPUT", "env.zip")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("catalog", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "flag.zip"}))

	cfg, _, err := Load(Options{Root: root, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "2ch", cfg.Catalog, "unchanged flag does not override the file")
	assert.Equal(t, "https://example.org/scripts/", cfg.Sources, "env overrides the file")
	assert.Equal(t, "flag.zip", cfg.Output, "flag overrides env")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "log_level: chatty\n")

	_, _, err := Load(Options{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyLogLevel)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "catalog: [unterminated\n")

	_, _, err := Load(Options{Root: root})
	require.Error(t, err)
}

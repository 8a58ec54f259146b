package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tasktimer", "tasktimer.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "tasktimer", "tasktimer.log"), cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, ThemeDark, cfg.Theme)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "db_path: /tmp/x.db\ntheme: Light\ntick_interval: 250ms\nlog_format: json\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, ThemeLight, cfg.Theme)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep defaults")
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "db_path: /from/file.db\ntheme: light\nlog_level: warn\n")
	t.Setenv("TASKTIMER_DB_PATH", "/from/env.db")
	t.Setenv("TASKTIMER_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	flags.String("log-level", "", "")
	flags.String("theme", "", "")
	require.NoError(t, flags.Parse([]string{"--db", "/from/flag.db"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.DBPath, "flag beats env and file")
	assert.Equal(t, "debug", cfg.LogLevel, "env beats file")
	assert.Equal(t, ThemeLight, cfg.Theme, "unset flag does not override file")
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")

	writeFile(t, path, "theme: neon\n")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "invalid theme")

	writeFile(t, path, "log_format: xml\n")
	_, err = Load(path, nil)
	assert.ErrorContains(t, err, "invalid log_format")

	writeFile(t, path, "theme: [unclosed\n")
	_, err = Load(path, nil)
	assert.Error(t, err)
}

func TestValidateNormalises(t *testing.T) {
	cfg := &Config{DBPath: "x.db", Theme: " DARK ", TickInterval: -1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ThemeDark, cfg.Theme)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)

	assert.Error(t, (&Config{}).Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")

	want := Default()
	want.Theme = ThemeLight
	want.TickInterval = 500 * time.Millisecond
	require.NoError(t, Save(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick_interval: 500ms")

	got, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

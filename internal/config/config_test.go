package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)
	assert.Equal(t, ThreadsMax, cfg.Threads)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Progress)
	assert.Empty(t, cfg.Filters)
	assert.Equal(t, 2*time.Minute, cfg.Remote.Policy.Deadline)

	n, err := cfg.Parallelism()
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), n)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "docflow.yml", `
threads: 3
refill: true
skip: [ocr]
filters:
  - unpaper
  - notify
plugins:
  ocr: tesseract
options:
  tesseract:
    language: fra
    dpi: 400
  notify:
    report: /tmp/report.txt
log:
  level: debug
  format: json
remote:
  url: http://ocr.internal:8080
  policy:
    base_delay: 1s
    deadline: 5m
`)

	cfg, err := Load(WithConfigFile(path), WithEnvFile(""))
	require.NoError(t, err)

	n, err := cfg.Parallelism()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, cfg.Refill)
	assert.Equal(t, []string{"ocr"}, cfg.Skip)
	assert.Equal(t, []string{"unpaper", "notify"}, cfg.Filters)
	assert.Equal(t, "tesseract", cfg.Plugins["ocr"])
	assert.Equal(t, "fra", cfg.Options["tesseract"]["language"])
	assert.EqualValues(t, 400, cfg.Options["tesseract"]["dpi"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://ocr.internal:8080", cfg.Remote.URL)
	assert.Equal(t, time.Second, cfg.Remote.Policy.BaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.Remote.Policy.Deadline)
	// untouched policy fields keep their default
	assert.Equal(t, 30*time.Second, cfg.Remote.Policy.MaxDelay)
}

func TestLoadEnvAndOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "DOCFLOW_LOG_LEVEL=warn\n")
	t.Setenv("DOCFLOW_FILTERS", "notify, filer")
	t.Setenv("DOCFLOW_THREADS", "2")
	t.Cleanup(func() { _ = os.Unsetenv("DOCFLOW_LOG_LEVEL") })

	cfg, err := Load(WithEnvFile(envFile), WithOverride("threads", "5"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"notify", "filer"}, cfg.Filters)
	assert.Equal(t, "5", cfg.Threads)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"threads word": "threads: many\n",
		"threads zero": "threads: 0\n",
		"log level":    "log:\n  level: loud\n",
		"log format":   "log:\n  format: xml\n",
		"remote url":   "remote:\n  url: not a url\n",
	}

	for name, content := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(WithConfigFile(writeFile(t, "docflow.yml", content)), WithEnvFile(""))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yml")), WithEnvFile(""))
	require.Error(t, err)
}

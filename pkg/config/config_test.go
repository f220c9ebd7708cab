package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treedump/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "treedump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultGrammar, cfg.Parse.Grammar)
	assert.Equal(t, config.DefaultFormat, cfg.Parse.Format)
	assert.Equal(t, config.DefaultWorkers, cfg.Parse.Workers)
	assert.False(t, cfg.Parse.Compress)
	assert.Equal(t, config.DefaultSourceLanguage, cfg.Extract.SourceLanguage)
	assert.Equal(t, config.DefaultTargetExt, cfg.Extract.TargetExt)
	assert.Equal(t, config.DefaultStatus, cfg.Extract.Status)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.InDelta(t, config.DefaultSampleRatio, cfg.Telemetry.SampleRatio, 0.001)

	assert.True(t, filepath.IsAbs(cfg.Paths.RepoRoot))
	assert.Equal(t, filepath.Join(cfg.Paths.RepoRoot, "src", "temp"), cfg.Paths.TempDir)
	assert.Equal(t, filepath.Join(cfg.Paths.RepoRoot, config.DefaultCodeNetRoot), cfg.Paths.CodeNetRoot)
}

func TestDefaultMatchesEmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, cfg, config.Default())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	cfg, err := config.LoadConfig(writeConfig(t, `
paths:
  repo_root: `+root+`
  temp_dir: out
  corpus_output: /abs/pairs.jsonl
parse:
  grammar: go
  format: yaml
  compress: true
  workers: 2
  max_file_size: 512KiB
extract:
  target_language: Rust
  target_ext: rs
logging:
  level: debug
  format: json
telemetry:
  metrics_file: /tmp/treedump.prom
  sample_ratio: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Paths.RepoRoot)
	assert.Equal(t, filepath.Join(root, "out"), cfg.Paths.TempDir)
	assert.Equal(t, "/abs/pairs.jsonl", cfg.Paths.CorpusOutput)
	assert.Equal(t, "go", cfg.Parse.Grammar)
	assert.Equal(t, "yaml", cfg.Parse.Format)
	assert.True(t, cfg.Parse.Compress)
	assert.Equal(t, 2, cfg.Parse.Workers)
	assert.Equal(t, "Rust", cfg.Extract.TargetLanguage)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/treedump.prom", cfg.Telemetry.MetricsFile)

	size, err := cfg.Parse.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(512*1024), size)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TREEDUMP_PARSE_GRAMMAR", "rust")
	t.Setenv("TREEDUMP_PARSE_WORKERS", "16")
	t.Setenv("TREEDUMP_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, "parse:\n  grammar: go\n"))
	require.NoError(t, err)

	assert.Equal(t, "rust", cfg.Parse.Grammar)
	assert.Equal(t, 16, cfg.Parse.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "format", content: "parse:\n  format: xml\n", wantErr: config.ErrInvalidFormat},
		{name: "workers", content: "parse:\n  workers: 0\n", wantErr: config.ErrInvalidWorkers},
		{name: "max file size", content: "parse:\n  max_file_size: lots\n", wantErr: config.ErrInvalidMaxFileSize},
		{name: "log level", content: "logging:\n  level: loud\n", wantErr: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", wantErr: config.ErrInvalidLogFormat},
		{name: "sample ratio", content: "telemetry:\n  sample_ratio: 2\n", wantErr: config.ErrInvalidSampleRatio},
		{name: "grammar", content: "parse:\n  grammar: \"\"\n", wantErr: config.ErrEmptyGrammar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestArtifactPath(t *testing.T) {
	t.Parallel()

	paths := config.PathsConfig{TempDir: "/repo/src/temp"}

	assert.Equal(t, "/repo/src/temp/python_ast.json", paths.ArtifactPath("python", ".json"))
	assert.Equal(t, "/repo/src/temp/go_ast.yaml.lz4", paths.ArtifactPath("go", ".yaml.lz4"))
}

func TestMaxFileSizeBytesEmptyMeansUnlimited(t *testing.T) {
	t.Parallel()

	size, err := config.ParseConfig{}.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Zero(t, size)
}

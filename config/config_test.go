package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, 3, cfg.Tournament.DefaultRoundMin)
	assert.Equal(t, 9, cfg.Tournament.DefaultRoundMax)
	assert.Equal(t, 0.1, cfg.Tournament.BuchholzScale)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swiss.yaml")
	yamlData := `
server_port: 9000
log_level: debug
storage:
  backend: s3
  mirror_backend: file
  s3:
    bucket: club-snapshots
    gzip: true
tournament:
  default_round_min: 4
  default_round_max: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("S3_PREFIX", "swiss")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PAIRING_SEED", "17")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.ServerPort)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, BackendFile, cfg.Storage.MirrorBackend)
	assert.Equal(t, "club-snapshots", cfg.Storage.S3.Bucket)
	assert.Equal(t, "swiss", cfg.Storage.S3.Prefix)
	assert.True(t, cfg.Storage.S3.Gzip)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 4, cfg.Tournament.DefaultRoundMin)
	assert.Equal(t, int64(17), cfg.Tournament.PairingSeed)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{"SERVER_PORT": "http"}},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"s3 without bucket", map[string]string{"STORAGE_BACKEND": "s3"}},
		{"mirror equals primary", map[string]string{"MIRROR_BACKEND": "file"}},
		{"zero round bound", map[string]string{"DEFAULT_ROUND_MIN": "0"}},
		{"negative scale", map[string]string{"BUCHHOLZ_SCALE": "-1"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad gzip flag", map[string]string{"S3_GZIP": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile("")
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

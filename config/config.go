package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var validBackends = map[string]bool{
	BackendMemory:   true,
	BackendFile:     true,
	BackendS3:       true,
	BackendSQLite:   true,
	BackendPostgres: true,
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Gzip            bool   `yaml:"gzip"`
	AccountID       string `yaml:"r2_account_id"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type StorageConfig struct {
	Backend       string   `yaml:"backend"`
	MirrorBackend string   `yaml:"mirror_backend"`
	DataDir       string   `yaml:"data_dir"`
	SQLitePath    string   `yaml:"sqlite_path"`
	DatabaseURL   string   `yaml:"database_url"`
	S3            S3Config `yaml:"s3"`
}

type TournamentConfig struct {
	DefaultRoundMin int     `yaml:"default_round_min"`
	DefaultRoundMax int     `yaml:"default_round_max"`
	BuchholzScale   float64 `yaml:"buchholz_scale"`
	// PairingSeed fixes the round 1 shuffle; 0 seeds from the clock.
	PairingSeed int64 `yaml:"pairing_seed"`
}

// Config holds every setting of the server and the CLI.
type Config struct {
	ServerPort         int              `yaml:"server_port"`
	LogLevel           string           `yaml:"log_level"`
	JWTSecretKey       string           `yaml:"jwt_secret_key"`
	CORSAllowedOrigins []string         `yaml:"cors_allowed_origins"`
	Storage            StorageConfig    `yaml:"storage"`
	Tournament         TournamentConfig `yaml:"tournament"`
}

func defaults() Config {
	return Config{
		ServerPort:         8080,
		LogLevel:           "info",
		CORSAllowedOrigins: []string{"*"},
		Storage: StorageConfig{
			Backend:    BackendFile,
			DataDir:    "data",
			SQLitePath: "swiss.db",
		},
		Tournament: TournamentConfig{
			DefaultRoundMin: 3,
			DefaultRoundMax: 9,
			BuchholzScale:   0.1,
		},
	}
}

// Load reads an optional .env file and an optional YAML file named by
// CONFIG_FILE; environment variables override the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load without the .env step. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s environment variable: %w", key, err)
		}
		*dst = n
		return nil
	}

	if err := setInt("SERVER_PORT", &cfg.ServerPort); err != nil {
		return err
	}
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("JWT_SECRET_KEY", &cfg.JWTSecretKey)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	setString("STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("MIRROR_BACKEND", &cfg.Storage.MirrorBackend)
	setString("DATA_DIR", &cfg.Storage.DataDir)
	setString("SQLITE_PATH", &cfg.Storage.SQLitePath)
	setString("DATABASE_URL", &cfg.Storage.DatabaseURL)

	setString("S3_BUCKET", &cfg.Storage.S3.Bucket)
	setString("S3_PREFIX", &cfg.Storage.S3.Prefix)
	setString("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	setString("S3_REGION", &cfg.Storage.S3.Region)
	setString("R2_ACCOUNT_ID", &cfg.Storage.S3.AccountID)
	setString("S3_ACCESS_KEY_ID", &cfg.Storage.S3.AccessKeyID)
	setString("S3_SECRET_ACCESS_KEY", &cfg.Storage.S3.SecretAccessKey)
	if v := os.Getenv("S3_GZIP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid S3_GZIP environment variable: %w", err)
		}
		cfg.Storage.S3.Gzip = b
	}

	if err := setInt("DEFAULT_ROUND_MIN", &cfg.Tournament.DefaultRoundMin); err != nil {
		return err
	}
	if err := setInt("DEFAULT_ROUND_MAX", &cfg.Tournament.DefaultRoundMax); err != nil {
		return err
	}
	if v := os.Getenv("BUCHHOLZ_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid BUCHHOLZ_SCALE environment variable: %w", err)
		}
		cfg.Tournament.BuchholzScale = f
	}
	if v := os.Getenv("PAIRING_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PAIRING_SEED environment variable: %w", err)
		}
		cfg.Tournament.PairingSeed = seed
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Storage.validateBackend(c.Storage.Backend); err != nil {
		return err
	}
	if m := c.Storage.MirrorBackend; m != "" {
		if m == c.Storage.Backend {
			return fmt.Errorf("MIRROR_BACKEND must differ from STORAGE_BACKEND (%s)", m)
		}
		if err := c.Storage.validateBackend(m); err != nil {
			return err
		}
	}
	t := c.Tournament
	if t.DefaultRoundMin < 1 || t.DefaultRoundMax < 1 {
		return fmt.Errorf("DEFAULT_ROUND_MIN and DEFAULT_ROUND_MAX must be positive, got %d and %d", t.DefaultRoundMin, t.DefaultRoundMax)
	}
	if t.BuchholzScale <= 0 {
		return fmt.Errorf("BUCHHOLZ_SCALE must be positive, got %v", t.BuchholzScale)
	}
	return nil
}

func (s StorageConfig) validateBackend(name string) error {
	if !validBackends[name] {
		return fmt.Errorf("unknown storage backend %q (want memory, file, s3, sqlite or postgres)", name)
	}
	switch name {
	case BackendFile:
		if s.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file backend")
		}
	case BackendSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto slog; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

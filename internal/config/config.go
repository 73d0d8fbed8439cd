package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/paes-prep/backend/internal/database"
	"github.com/paes-prep/backend/internal/generator"
	"github.com/paes-prep/backend/internal/models"
)

const EnvPrefix = "PAES"

type Config struct {
	Addr           string
	DBDriver       string
	DBDSN          string
	Generator      generator.Config
	JWTSecret      string
	TokenTTL       time.Duration
	LogLevel       string
	LogFormat      string
	OfficialRatio  int
	Questions      int
	Difficulty     models.Difficulty
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// RegisterFlags declares every setting with its default.
func RegisterFlags(f *pflag.FlagSet) {
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db-driver", database.DriverPostgres, "Database driver (postgres, pgx, sqlite)")
	f.String("db-dsn", "", "Database DSN (driver default when empty)")
	f.String("generator", generator.ModeMock, "Question generator (api, openai, gemini, cli, mock)")
	f.String("generator-model", "", "Generator model name (provider default when empty)")
	f.String("generator-api-key", "", "API key for the generator provider")
	f.String("generator-base-url", "", "Base URL for OpenAI-compatible providers")
	f.String("claude-cli-path", "claude", "Path to the claude CLI for the cli generator")
	f.Int("generator-attempts", 3, "Attempts per generation request")
	f.String("jwt-secret", "", "HMAC secret for bearer tokens (required for serve)")
	f.Duration("token-ttl", 24*time.Hour, "Lifetime of issued tokens")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.Int("official-ratio", 70, "Default official question percentage for diagnostics")
	f.Int("default-questions", 10, "Default diagnostic length")
	f.String("default-difficulty", string(models.DifficultyIntermediate), "Default diagnostic difficulty")
	f.Duration("request-timeout", 60*time.Second, "Per-request timeout for composition")
	f.StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
}

// New binds flags, PAES_* environment variables and an optional paes.yaml.
// Precedence is flags, then env, then file, then defaults.
func New(f *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(f)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("paes")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/paes")
	v.AddConfigPath("/etc/paes")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

// Load reads and validates a Config out of v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:     v.GetString("addr"),
		DBDriver: strings.ToLower(v.GetString("db-driver")),
		DBDSN:    v.GetString("db-dsn"),
		Generator: generator.Config{
			Mode:        strings.ToLower(v.GetString("generator")),
			Model:       v.GetString("generator-model"),
			APIKey:      v.GetString("generator-api-key"),
			BaseURL:     v.GetString("generator-base-url"),
			CLIPath:     v.GetString("claude-cli-path"),
			MaxAttempts: v.GetInt("generator-attempts"),
		},
		JWTSecret:      v.GetString("jwt-secret"),
		TokenTTL:       v.GetDuration("token-ttl"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		OfficialRatio:  v.GetInt("official-ratio"),
		Questions:      v.GetInt("default-questions"),
		Difficulty:     models.Difficulty(strings.ToLower(v.GetString("default-difficulty"))),
		RequestTimeout: v.GetDuration("request-timeout"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = providerKeyFromEnv(cfg.Generator.Mode)
	}

	var errs []string
	switch cfg.DBDriver {
	case database.DriverPostgres, database.DriverPgx, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("unsupported db-driver %q", cfg.DBDriver))
	}
	switch cfg.Generator.Mode {
	case generator.ModeAPI, generator.ModeOpenAI, generator.ModeGemini, generator.ModeCLI, generator.ModeMock:
	default:
		errs = append(errs, fmt.Sprintf("unsupported generator %q", cfg.Generator.Mode))
	}
	if cfg.OfficialRatio < 0 || cfg.OfficialRatio > 100 {
		errs = append(errs, fmt.Sprintf("official-ratio must be within [0, 100], got %d", cfg.OfficialRatio))
	}
	if cfg.Questions <= 0 {
		errs = append(errs, fmt.Sprintf("default-questions must be positive, got %d", cfg.Questions))
	} else if cfg.Questions > models.MaxTotalQuestions {
		errs = append(errs, fmt.Sprintf("default-questions must be at most %d, got %d", models.MaxTotalQuestions, cfg.Questions))
	}
	if !models.ValidDifficulties[cfg.Difficulty] {
		errs = append(errs, fmt.Sprintf("unknown default-difficulty %q", cfg.Difficulty))
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// providerKeyFromEnv falls back to each SDK's conventional variable.
func providerKeyFromEnv(mode string) string {
	switch mode {
	case generator.ModeAPI:
		return os.Getenv("ANTHROPIC_API_KEY")
	case generator.ModeOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case generator.ModeGemini:
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

// NewLogger builds the process logger from level and format names.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

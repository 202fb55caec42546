package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hlop3z/pgledger/internal/alerr"
)

const defaultConfigFile = "pgledger.yaml"

// Config represents the pgledger.yaml configuration file.
type Config struct {
	DatabaseURL   string        `yaml:"database_url" validate:"required"`
	MigrationsDir string        `yaml:"migrations_dir" validate:"required"`
	LogFormat     string        `yaml:"log_format" validate:"oneof=json text"`
	LogLevel      string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	HistoryLimit  int           `yaml:"history_limit" validate:"min=1"`
	AppliedBy     string        `yaml:"applied_by"`
	LockKey       string        `yaml:"lock_key"`
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configFile      string
	databaseURL     string
	migrationsDir   string
	logFormat       string
	logLevel        string
	json            bool
	metricsTextfile string
}

func registerGlobalFlags(fs *pflag.FlagSet, g *globalFlags) {
	fs.StringVarP(&g.configFile, "config", "c", defaultConfigFile, "Path to config file")
	fs.StringVarP(&g.databaseURL, "database-url", "d", "", "PostgreSQL connection URL")
	fs.StringVarP(&g.migrationsDir, "migrations-dir", "m", "./migrations", "Directory holding *_up.sql / *_down.sql files")
	fs.StringVar(&g.logFormat, "log-format", "text", "Log format: json or text")
	fs.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&g.json, "json", false, "Print results as JSON")
	fs.StringVar(&g.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
}

func defaultConfig() *Config {
	return &Config{
		MigrationsDir: "./migrations",
		LogFormat:     "text",
		LogLevel:      "info",
		HistoryLimit:  20,
	}
}

// loadConfig resolves configuration from file, env vars, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults.
// changed reports whether a flag was set on the command line.
// When requireDB is false the database URL may be empty.
func loadConfig(g *globalFlags, changed func(string) bool, requireDB bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(g.configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "failed to parse config file").
				WithFile(g.configFile)
		}
		cfg.DatabaseURL = os.Expand(cfg.DatabaseURL, os.Getenv)
	case errors.Is(err, os.ErrNotExist) && !changed("config"):
		// The default file is optional.
	default:
		return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "failed to read config file").
			WithFile(g.configFile)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PGLEDGER_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}

	if changed("database-url") {
		cfg.DatabaseURL = g.databaseURL
	}
	if changed("migrations-dir") {
		cfg.MigrationsDir = g.migrationsDir
	}
	if changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if changed("log-level") {
		cfg.LogLevel = g.logLevel
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validateConfig(cfg, requireDB); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config, requireDB bool) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})

	var err error
	if requireDB {
		err = v.Struct(cfg)
	} else {
		err = v.StructExcept(cfg, "DatabaseURL")
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return alerr.Wrap(alerr.ErrConfigInvalid, err, "invalid configuration")
	}

	fe := fieldErrs[0]
	e := alerr.New(alerr.ErrConfigInvalid, describeFieldError(fe)).
		With("field", fe.Field())
	if fe.Field() == "database_url" {
		e = e.WithHelp("set database_url in " + defaultConfigFile + ", the DATABASE_URL env var, or pass --database-url")
	}
	return e
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}

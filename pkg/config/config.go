// Package config loads process configuration: .env defaults merged with
// environment variables via viper, exposed as a typed Config. CLI flags
// (spec §6) take precedence over whatever Load returns.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full process configuration for the scheduler CLI.
type Config struct {
	Env string

	Log      LogConfig
	Solver   SolverConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// LogConfig controls zap construction.
type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig carries the defaults overridable by the CLI flags of spec §6.
type SolverConfig struct {
	TimeLimit         time.Duration
	NumWorkers        int
	TwoPassThreshold  int
	TwoPassForce      string // "", "on", "off"
	Incremental       bool
	NoSoft            bool
	Diagnose          bool
	Seed              int64
	RelaxTimeLimit    time.Duration
	ScenarioStorePath string
}

// DatabaseConfig configures the optional Postgres-backed scenario archive.
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the optional solution cache backend.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Load reads .env + environment variables into a Config with defaults
// matching the fallback limits of spec §4.6 and §6.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Solver: SolverConfig{
			TimeLimit:         parseDuration(v.GetString("SOLVER_TIME_LIMIT"), 60*time.Second),
			NumWorkers:        v.GetInt("SOLVER_NUM_WORKERS"),
			TwoPassThreshold:  v.GetInt("SOLVER_TWO_PASS_THRESHOLD"),
			TwoPassForce:      v.GetString("SOLVER_TWO_PASS_FORCE"),
			Incremental:       v.GetBool("SOLVER_INCREMENTAL"),
			NoSoft:            v.GetBool("SOLVER_NO_SOFT"),
			Diagnose:          v.GetBool("SOLVER_DIAGNOSE"),
			Seed:              v.GetInt64("SOLVER_SEED"),
			RelaxTimeLimit:    parseDuration(v.GetString("SOLVER_RELAX_TIME_LIMIT"), 30*time.Second),
			ScenarioStorePath: v.GetString("SOLVER_SCENARIO_STORE_PATH"),
		},
		Database: DatabaseConfig{
			Enabled:      v.GetBool("ENABLE_SCENARIO_DB"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("ENABLE_SOLUTION_CACHE"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_TIME_LIMIT", "60s")
	v.SetDefault("SOLVER_NUM_WORKERS", 0)
	v.SetDefault("SOLVER_TWO_PASS_THRESHOLD", 20)
	v.SetDefault("SOLVER_TWO_PASS_FORCE", "")
	v.SetDefault("SOLVER_INCREMENTAL", false)
	v.SetDefault("SOLVER_NO_SOFT", false)
	v.SetDefault("SOLVER_DIAGNOSE", false)
	v.SetDefault("SOLVER_SEED", 1)
	v.SetDefault("SOLVER_RELAX_TIME_LIMIT", "30s")
	v.SetDefault("SOLVER_SCENARIO_STORE_PATH", "./scenarios")

	v.SetDefault("ENABLE_SCENARIO_DB", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sek_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 2)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_SOLUTION_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

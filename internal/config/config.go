package config

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Log    LogConfig
	Solver SolverConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig selects and bounds the backend used when a request does not name one
type SolverConfig struct {
	Default      string
	TimeLimit    time.Duration
	MaxTimeLimit time.Duration // Upper bound for limits requested per call
	CbcPath      string
	TempDir      string
	MaxSearches  int64 // In-process searches alive at once, abandoned ones included
}

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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		Default:      v.GetString("SOLVER_DEFAULT"),
		TimeLimit:    parseDuration(v.GetString("SOLVER_TIME_LIMIT"), time.Minute),
		MaxTimeLimit: parseDuration(v.GetString("SOLVER_MAX_TIME_LIMIT"), 10*time.Minute),
		CbcPath:      v.GetString("SOLVER_CBC_PATH"),
		TempDir:      v.GetString("SOLVER_TEMP_DIR"),
		MaxSearches:  v.GetInt64("SOLVER_MAX_SEARCHES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_DEFAULT", "gophersat")
	v.SetDefault("SOLVER_TIME_LIMIT", "1m")
	v.SetDefault("SOLVER_MAX_TIME_LIMIT", "10m")
	v.SetDefault("SOLVER_CBC_PATH", "cbc")
	v.SetDefault("SOLVER_TEMP_DIR", "")
	v.SetDefault("SOLVER_MAX_SEARCHES", runtime.NumCPU())
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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Archive backends understood by the archive package.
const (
	ArchiveNone     = "none"
	ArchiveJSONL    = "jsonl"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
	ArchiveMySQL    = "mysql"
)

// ForecastConfig holds the Monte-Carlo engine settings.
type ForecastConfig struct {
	Trials      int
	DayCap      int
	Workers     int
	Seed        uint64
	Percentiles []int
	Allocation  string
}

// ArchiveConfig selects where forecast snapshots are kept.
type ArchiveConfig struct {
	Backend string
	DSN     string
}

// LogConfig controls the console and rotating file log sinks.
type LogConfig struct {
	Dir        string
	File       string
	Level      string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Forecast            ForecastConfig
	Archive             ArchiveConfig
	Log                 LogConfig
	DataPath            string
	ArchiveDir          string
	EnableMermaidCharts bool
}

// DefaultPercentiles are the confidence levels reported when none are configured.
var DefaultPercentiles = []int{50, 70, 85, 95}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	return fromEnv(dataPath)
}

// fromEnv builds the configuration from the process environment only.
func fromEnv(dataPath string) (*AppConfig, error) {
	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		logDir = filepath.Join(dataPath, "logs")
	}
	archiveDir := filepath.Join(dataPath, "archive")

	backend := strings.ToLower(getEnv("ARCHIVE_BACKEND", ArchiveJSONL))
	if backend != ArchiveNone {
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			log.Warn().Err(err).Str("path", archiveDir).Msg("Failed to create archive directory")
		}
	}

	dsn := os.Getenv("ARCHIVE_DSN")
	if dsn == "" {
		dsn = defaultDSN(backend, archiveDir)
	}

	percentiles, err := parsePercentiles(getEnv("FORECAST_PERCENTILES", ""))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Forecast: ForecastConfig{
			Trials:      getEnvInt("FORECAST_TRIALS", 10_000),
			DayCap:      getEnvInt("FORECAST_DAY_CAP", 20_000),
			Workers:     getEnvInt("FORECAST_WORKERS", runtime.GOMAXPROCS(0)),
			Seed:        getEnvUint("FORECAST_SEED", 0),
			Percentiles: percentiles,
			Allocation:  getEnv("FORECAST_ALLOCATION", "sequential"),
		},
		Archive: ArchiveConfig{
			Backend: backend,
			DSN:     dsn,
		},
		DataPath:            dataPath,
		Log: LogConfig{
			Dir:        logDir,
			File:       getEnv("LOG_FILE", "lighthouse.log"),
			Level:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Console:    getEnvBool("LOG_CONSOLE", true),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 16),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 32),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 365),
		},
		ArchiveDir:          archiveDir,
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.Log.Level)
	}
	if cfg.Log.File == "" || cfg.Log.MaxSizeMB <= 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return nil, fmt.Errorf("invalid log rotation settings: file %q, %d MB, %d backups, %d days", cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
	}

	switch backend {
	case ArchiveNone, ArchiveJSONL, ArchiveSQLite:
	case ArchivePostgres, ArchiveMySQL:
		if cfg.Archive.DSN == "" {
			return nil, fmt.Errorf("ARCHIVE_DSN is required for the %s archive backend", backend)
		}
	default:
		return nil, fmt.Errorf("unknown ARCHIVE_BACKEND %q", backend)
	}

	return cfg, nil
}

func defaultDSN(backend, archiveDir string) string {
	switch backend {
	case ArchiveJSONL:
		return filepath.Join(archiveDir, "forecasts.jsonl")
	case ArchiveSQLite:
		return filepath.Join(archiveDir, "forecasts.db")
	}
	return ""
}

// parsePercentiles reads a comma separated list such as "50,70,85,95".
func parsePercentiles(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]int(nil), DefaultPercentiles...), nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 100 {
			return nil, fmt.Errorf("invalid FORECAST_PERCENTILES entry %q: must be an integer between 1 and 100", part)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return append([]int(nil), DefaultPercentiles...), nil
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric configuration value")
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if value, ok := os.LookupEnv(key); ok {
		if uintVal, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64); err == nil {
			return uintVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid unsigned configuration value")
	}
	return fallback
}

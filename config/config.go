package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ScanConfig holds the settings that govern one scan pipeline instance.
type ScanConfig struct {
	BasePath string
	DBPath   string

	ParallelEnabled bool
	BatchSize       int
	WorkerCount     int

	Cron    string
	Enabled bool

	HeifMaxConcurrent int

	// GenerationOrphanThreshold is the catalog size above which the scan
	// switches delete-phase orphan detection from a set difference to the
	// cheaper generation-tagging approach. 0 disables the switch.
	GenerationOrphanThreshold int
}

// ExternalConfig holds settings this module accepts but does not act on,
// owned by collaborators outside the scan pipeline (derivative cache,
// HTTP API). Kept here so a single process can parse its whole environment
// in one place, per the teacher's per-concern LoadXConfig shape.
type ExternalConfig struct {
	CacheDir  string
	StaticDir string
	Host      string
	Port      string
}

// IsDevelopmentMode checks if the application is running in development mode.
func IsDevelopmentMode() bool {
	return strings.ToLower(os.Getenv("SERVER_ENV")) == "development"
}

// LoadEnvironment loads environment variables from the appropriate .env file.
// Call this once from main before reading any LoadXConfig. It automatically
// loads .env.development in development mode, .env otherwise.
func LoadEnvironment() {
	isDev := IsDevelopmentMode()

	envFile := ".env"
	if isDev {
		if _, err := os.Stat(".env.development"); err == nil {
			envFile = ".env.development"
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Running without %s file, using environment variables", envFile)
	} else {
		log.Printf("Environment variables loaded from %s file", envFile)
	}

	if isDev {
		log.Println("Running in DEVELOPMENT mode")
	}
}

// LoadScanConfig loads scan-pipeline settings from environment variables.
func LoadScanConfig() ScanConfig {
	cfg := ScanConfig{
		BasePath:          "",
		DBPath:            "",
		ParallelEnabled:   true,
		BatchSize:         50,
		WorkerCount:       0, // 0 means min(NumCPU, 8), resolved by the executor
		Cron:              "0 0 2 * * *",
		Enabled:           true,
		HeifMaxConcurrent: 4,

		GenerationOrphanThreshold: 0,
	}

	if v := strings.TrimSpace(os.Getenv("BASE_PATH")); v != "" {
		cfg.BasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.DBPath = v
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SCAN_PARALLEL_ENABLED"))); v == "false" {
		cfg.ParallelEnabled = false
	} else if v == "true" {
		cfg.ParallelEnabled = true
	}

	if v := strings.TrimSpace(os.Getenv("SCAN_PARALLEL_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCAN_WORKER_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerCount = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCAN_CRON")); v != "" {
		cfg.Cron = v
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SCAN_ENABLED"))); v == "false" {
		cfg.Enabled = false
	}

	if v := strings.TrimSpace(os.Getenv("SCAN_GENERATION_ORPHAN_THRESHOLD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.GenerationOrphanThreshold = n
		}
	}

	return cfg
}

// LoadExternalConfig loads settings owned by collaborators this module
// does not implement.
func LoadExternalConfig() ExternalConfig {
	cfg := ExternalConfig{
		CacheDir:  "",
		StaticDir: "",
		Host:      "0.0.0.0",
		Port:      "8080",
	}

	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	return cfg
}

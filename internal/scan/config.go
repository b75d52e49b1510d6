package scan

import "github.com/lumilio/scanner/config"

// Config wraps the scan-relevant slice of application configuration so
// the coordinator does not depend on the whole config package surface.
type Config struct {
	BasePath string

	ParallelEnabled bool
	BatchSize       int
	WorkerCount     int

	Cron    string
	Enabled bool

	GenerationOrphanThreshold int
}

func FromAppConfig(c config.ScanConfig) Config {
	return Config{
		BasePath:                  c.BasePath,
		ParallelEnabled:           c.ParallelEnabled,
		BatchSize:                 c.BatchSize,
		WorkerCount:               c.WorkerCount,
		Cron:                      c.Cron,
		Enabled:                   c.Enabled,
		GenerationOrphanThreshold: c.GenerationOrphanThreshold,
	}
}

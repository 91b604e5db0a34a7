package metrics

import (
	"time"

	"codeberg.org/mutker/viturectl/internal/errors"
)

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/viturectl/metrics.db"

	defaultBatchSize    = 10
	defaultBatchTimeout = 30 * time.Second
	defaultInterval     = 10 * time.Second
)

type Config struct {
	DBPath       string
	Enabled      bool
	Interval     time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	BackupDir    string
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false, // Disabled by default
		Interval:     defaultInterval,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate when history is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package scheduler

import (
	"time"
)

// Config controls the renewal transition job's cadence and windows.
type Config struct {
	// RunInterval is how often the job wakes up.
	RunInterval time.Duration
	// BatchSize bounds how many purchases one pass transitions.
	BatchSize int
	// DueWindow is how far before next_renewal_date a purchase flips
	// from active to due.
	DueWindow time.Duration
	// ExpiryGrace is how long past next_renewal_date a due purchase
	// keeps its cover before expiring.
	ExpiryGrace time.Duration
	// JobTimeout caps one full pass.
	JobTimeout time.Duration
	// LockTTL is the distributed lock lease; it must outlive JobTimeout.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   100,
		DueWindow:   7 * 24 * time.Hour,
		ExpiryGrace: 15 * 24 * time.Hour,
		JobTimeout:  5 * time.Minute,
		LockTTL:     6 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.DueWindow <= 0 {
		c.DueWindow = defaults.DueWindow
	}
	if c.ExpiryGrace <= 0 {
		c.ExpiryGrace = defaults.ExpiryGrace
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= c.JobTimeout {
		c.LockTTL = c.JobTimeout + time.Minute
	}
	return c
}

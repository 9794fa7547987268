package broadcast

import "time"

// Config contains configuration for broadcast processing
type Config struct {
	// Broadcasts claimed per scheduler or winner-check pass
	BatchSize int `json:"batch_size"`

	// Concurrent sends within one broadcast
	MaxParallelism int `json:"max_parallelism"`

	// Upper bound for a single recipient send
	SendTimeout time.Duration `json:"send_timeout"`

	// Used when an A/B broadcast does not set its own test duration
	DefaultTestDurationHours int `json:"default_test_duration_hours"`

	// Base URL of the open-tracking pixel. Empty disables tracking.
	TrackingBaseURL string `json:"tracking_base_url"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BatchSize:                20,
		MaxParallelism:           10,
		SendTimeout:              30 * time.Second,
		DefaultTestDurationHours: 4,
	}
}

func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	def := DefaultConfig()
	if out.BatchSize <= 0 {
		out.BatchSize = def.BatchSize
	}
	if out.MaxParallelism <= 0 {
		out.MaxParallelism = def.MaxParallelism
	}
	if out.SendTimeout <= 0 {
		out.SendTimeout = def.SendTimeout
	}
	if out.DefaultTestDurationHours <= 0 {
		out.DefaultTestDurationHours = def.DefaultTestDurationHours
	}
	return &out
}

package driver

import "time"

// Config holds the driver configuration.
type Config struct {
	// Sleep waits between protocol steps. Tests replace it to run on
	// simulated time.
	Sleep func(time.Duration)

	// LineHook is called with every record forwarded by DumpFlash (optional)
	LineHook func(line []byte)

	// ProbeHook is called with every probe result as it completes (optional)
	ProbeHook func(ProbeResult)

	// Aggregate makes ProbeTimeouts test every size instead of stopping at
	// the first mismatch
	Aggregate bool
}

func defaultConfig() Config {
	return Config{Sleep: time.Sleep}
}

func newConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option is a functional option for the protocol drivers.
type Option func(*Config)

// WithSleep replaces time.Sleep for the settle delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

// WithLineHook sets a callback receiving each dumped record.
func WithLineHook(hook func(line []byte)) Option {
	return func(c *Config) {
		c.LineHook = hook
	}
}

// WithProbeHook sets a callback receiving each probe result.
func WithProbeHook(hook func(ProbeResult)) Option {
	return func(c *Config) {
		c.ProbeHook = hook
	}
}

// WithAggregate enables or disables testing every probe size before
// reporting. Default is false: the run stops at the first mismatch.
func WithAggregate(aggregate bool) Option {
	return func(c *Config) {
		c.Aggregate = aggregate
	}
}

// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultStorageKind = "memory"
	DefaultBusDriver   = "sim"
	DefaultInputs      = "none"
	DefaultConsole     = "stdin"
	DefaultBaud        = 115200
	DefaultDebounceMs  = 500
	DefaultIdleMs      = 1
	DefaultPollMinMs   = 1
	DefaultPollMaxMs   = 250
	DefaultTimeoutMs   = 1000
	DefaultBlinkCycles = 5
	DefaultBlinkMs     = 150
	DefaultRedisKey    = "ibutton:eeprom"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// KINDS
	// ------------------------------------------------------------

	if cfg.Storage.Kind == "" {
		cfg.Storage.Kind = DefaultStorageKind
	}
	if cfg.Bus.Driver == "" {
		cfg.Bus.Driver = DefaultBusDriver
	}
	if cfg.Inputs.Driver == "" {
		cfg.Inputs.Driver = DefaultInputs
	}
	if cfg.Console.Kind == "" {
		cfg.Console.Kind = DefaultConsole
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	// Timeouts stay 0 (no bound) unless set.
	c := &cfg.Cloner
	if c.DebounceMs == 0 {
		c.DebounceMs = DefaultDebounceMs
	}
	if c.IdleMs == 0 {
		c.IdleMs = DefaultIdleMs
	}
	if c.PollMinMs == 0 {
		c.PollMinMs = DefaultPollMinMs
	}
	if c.PollMaxMs == 0 {
		c.PollMaxMs = DefaultPollMaxMs
	}
	if c.PollMaxMs < c.PollMinMs {
		c.PollMaxMs = c.PollMinMs
	}

	if cfg.Storage.TimeoutMs == 0 {
		cfg.Storage.TimeoutMs = DefaultTimeoutMs
	}
	if cfg.Storage.Kind == "redis" && cfg.Storage.Key == "" {
		cfg.Storage.Key = DefaultRedisKey
	}

	if cfg.Inputs.BlinkCycles == 0 {
		cfg.Inputs.BlinkCycles = DefaultBlinkCycles
	}
	if cfg.Inputs.BlinkMs == 0 {
		cfg.Inputs.BlinkMs = DefaultBlinkMs
	}

	if cfg.Console.Baud == 0 {
		cfg.Console.Baud = DefaultBaud
	}
}

// internal/config/config.go
package config

type Config struct {
	Cloner  ClonerConfig  `yaml:"cloner"`
	Storage StorageConfig `yaml:"storage"`
	Bus     BusConfig     `yaml:"bus"`
	Inputs  InputsConfig  `yaml:"inputs"`
	Console ConsoleConfig `yaml:"console"`
}

// ---- CLONER ----

type ClonerConfig struct {
	// Firmware revision differences are options, not code paths.
	AdvancedMode     bool `yaml:"advanced_mode"`
	ValidateCRC      bool `yaml:"validate_crc"`
	VerifyAfterWrite bool `yaml:"verify_after_write"`

	// 0 = wait forever (documented behaviour)
	WaitTimeoutMs    int `yaml:"wait_timeout_ms"`
	ReleaseTimeoutMs int `yaml:"release_timeout_ms"`

	DebounceMs int `yaml:"debounce_ms"`
	IdleMs     int `yaml:"idle_ms"`
	PollMinMs  int `yaml:"poll_min_ms"`
	PollMaxMs  int `yaml:"poll_max_ms"`
}

// ---- STORAGE ----

type StorageConfig struct {
	Kind      string `yaml:"kind"` // memory | file | redis | modbus
	Path      string `yaml:"path"`
	Endpoint  string `yaml:"endpoint"`
	Key       string `yaml:"key"`
	UnitID    uint8  `yaml:"unit_id"`
	Base      uint16 `yaml:"base"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- BUS ----

type BusConfig struct {
	Driver        string `yaml:"driver"` // periph | sim
	Pin           string `yaml:"pin"`
	SimIdentifier string `yaml:"sim_identifier"` // "0x01, 0x02, ..." for driver sim
	Trace         bool   `yaml:"trace"`
}

// ---- INPUTS ----

type InputsConfig struct {
	Driver      string    `yaml:"driver"` // periph | none
	ReadButton  string    `yaml:"read_button"`
	WriteButton string    `yaml:"write_button"`
	Selector    [4]string `yaml:"selector"`
	LEDRed      string    `yaml:"led_red"`
	LEDGreen    string    `yaml:"led_green"`
	BlinkCycles int       `yaml:"blink_cycles"`
	BlinkMs     int       `yaml:"blink_ms"`

	// Active slot when no selector is fitted.
	FixedSlot uint8 `yaml:"fixed_slot"`
}

// ---- CONSOLE ----

type ConsoleConfig struct {
	Kind   string `yaml:"kind"` // stdin | tty | serial | none
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

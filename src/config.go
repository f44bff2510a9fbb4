package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Read configuration information from a file.
 *
 * Description:	Everything fixed by the hardware design (block size,
 *		filters, duty levels) is a constant.  The wiring, the
 *		region, the intervals and thresholds come from a YAML
 *		file, with a default for every setting so that an empty
 *		file, or none at all, gives a working simulation.
 *
 *		Durations are written as strings: "10ms", "25ms".
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type ReceiveConfig struct {
	Enabled bool `yaml:"enabled"`

	// Source is "portaudio" for a sound card or "file" for raw int16
	// little endian samples.
	Source     string        `yaml:"source"`
	File       string        `yaml:"file"`
	Loop       bool          `yaml:"loop"`
	SampleRate int           `yaml:"sample_rate"`
	ClockDiv   int           `yaml:"clock_div"`
	Poll       time.Duration `yaml:"poll"`
	HighPass   string        `yaml:"high_pass"` // moving-average or legacy.

	Presence PresenceConfig `yaml:"presence"`
	Buzz     bool           `yaml:"buzz"` // Sound the buzzer while present.
	Bars     bool           `yaml:"bars"` // Print the energy bar for every block.

	Enable LineSpec `yaml:"enable"` // Active low on the reference board.
	Pump   PWMSpec  `yaml:"pump"`
}

type TransmitConfig struct {
	Line      LineSpec      `yaml:"line"`
	Carrier   PWMSpec       `yaml:"carrier"`
	Pause     time.Duration `yaml:"pause"`
	IdleSleep time.Duration `yaml:"idle_sleep"`
	Enabled   bool          `yaml:"enabled"` // Initial state before any switch event.
}

type DiagConfig struct {
	Stdout          bool          `yaml:"stdout"`
	TimestampFormat string        `yaml:"timestamp_format"` // strftime.
	Console         ConsoleConfig `yaml:"console"`
}

type Config struct {
	LogLevel      string        `yaml:"log_level"`
	Region        Region        `yaml:"region"`
	ScriptsFile   string        `yaml:"scripts_file"`
	PinCores      bool          `yaml:"pin_cores"`
	StatsInterval time.Duration `yaml:"stats_interval"`

	Receive   ReceiveConfig   `yaml:"receive"`
	Transmit  TransmitConfig  `yaml:"transmit"`
	Switch    SwitchConfig    `yaml:"switch"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Buzzer    PWMSpec         `yaml:"buzzer"`
	Diag      DiagConfig      `yaml:"diag"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

func DefaultConfig() *Config {
	var rxEnable = DisconnectedLine()
	rxEnable.Invert = true

	var sw = DisconnectedLine()
	sw.Invert = true

	return &Config{
		LogLevel:      "info",
		Region:        RegionEurope,
		ScriptsFile:   "",
		PinCores:      false,
		StatsInterval: 100 * time.Second,
		Receive: ReceiveConfig{
			Enabled:    true,
			Source:     "portaudio",
			File:       "",
			Loop:       false,
			SampleRate: SampleRateHz,
			ClockDiv:   ADCClockDiv,
			Poll:       DefaultCapturePoll,
			HighPass:   HighPassMovingAverage.String(),
			Presence:   DefaultPresenceConfig(),
			Buzz:       false,
			Bars:       true,
			Enable:     rxEnable,
			Pump:       PWMSpec{Chip: "", Channel: 0},
		},
		Transmit: TransmitConfig{
			Line:      DisconnectedLine(),
			Carrier:   PWMSpec{Chip: "", Channel: 0},
			Pause:     DefaultScriptPause,
			IdleSleep: DefaultIdleSleep,
			Enabled:   false,
		},
		Switch: SwitchConfig{
			Line:     sw,
			Pull:     "up",
			Debounce: DefaultSwitchDebounce,
		},
		Indicator: IndicatorConfig{
			Red:   DisconnectedLine(),
			Green: DisconnectedLine(),
			Blue:  DisconnectedLine(),
		},
		Buzzer: PWMSpec{Chip: "", Channel: 0},
		Diag: DiagConfig{
			Stdout:          true,
			TimestampFormat: "",
			Console:         ConsoleConfig{Serial: "", Baud: 0, PTY: false},
		},
		Monitor: MonitorConfig{Listen: "", Announce: false, Name: ""},
	}
}

// Looked for, in order, when no file is named.
var configSearchLocations = []string{
	"irblaster.yaml",
	"/usr/local/etc/irblaster.yaml",
	"/etc/irblaster.yaml",
}

// ReadConfig decodes r over the defaults.  Unknown keys are errors.
func ReadConfig(r io.Reader) (*Config, error) {
	var cfg = DefaultConfig()

	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig reads path, or the first file found in the search list if
// path is empty.  With no file at all the defaults are used.
func LoadConfig(logger *log.Logger, path string) (*Config, error) {
	var locations = configSearchLocations
	if path != "" {
		locations = []string{path}
	}

	for _, location := range locations {
		var f, err = os.Open(location)
		if err != nil {
			if path == "" && errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, err
		}

		defer f.Close()

		logger.Info("reading configuration", "file", location)

		var cfg, cerr = ReadConfig(f)
		if cerr != nil {
			return nil, fmt.Errorf("%s: %w", location, cerr)
		}

		return cfg, nil
	}

	logger.Info("no configuration file found, using defaults", "searched", strings.Join(locations, ", "))

	return DefaultConfig(), nil
}

func ParseHighPassMode(s string) (HighPassMode, error) {
	for _, m := range []HighPassMode{HighPassMovingAverage, HighPassLegacy} {
		if s == m.String() {
			return m, nil
		}
	}

	return 0, fmt.Errorf("high pass %q: want %s or %s", s, HighPassMovingAverage, HighPassLegacy)
}

// Validate checks settings that would otherwise fail later, or worse,
// not at all.
func (c *Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if _, ok := regionNames[c.Region]; !ok {
		errs = append(errs, fmt.Errorf("region: %w: %d", ErrUnknownRegion, c.Region))
	}

	var rx = &c.Receive

	switch rx.Source {
	case "portaudio":
	case "file":
		if rx.File == "" {
			errs = append(errs, errors.New("receive.file: required when source is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("receive.source %q: want portaudio or file", rx.Source))
	}

	if rx.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("receive.sample_rate %d: must be positive", rx.SampleRate))
	}

	if rx.ClockDiv <= 0 {
		errs = append(errs, fmt.Errorf("receive.clock_div %d: must be positive", rx.ClockDiv))
	}

	if rx.Poll <= 0 {
		errs = append(errs, fmt.Errorf("receive.poll %s: must be positive", rx.Poll))
	}

	if _, err := ParseHighPassMode(rx.HighPass); err != nil {
		errs = append(errs, fmt.Errorf("receive.%w", err))
	}

	if p := rx.Presence; p.On < 1 || p.On > 32 || p.Off < 0 || p.Off >= p.On {
		errs = append(errs, fmt.Errorf("receive.presence: need 0 <= off < on <= 32, have off %d on %d", p.Off, p.On))
	}

	if rx.Buzz && !c.Buzzer.Connected() {
		errs = append(errs, errors.New("receive.buzz: no buzzer configured"))
	}

	if c.Transmit.Pause < 0 || c.Transmit.IdleSleep <= 0 {
		errs = append(errs, errors.New("transmit: pause must not be negative and idle_sleep must be positive"))
	}

	if c.Switch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("switch.debounce %s: must not be negative", c.Switch.Debounce))
	}

	if c.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("stats_interval %s: must not be negative", c.StatsInterval))
	}

	if c.Monitor.Announce && c.Monitor.Listen == "" {
		errs = append(errs, errors.New("monitor.announce: needs monitor.listen"))
	}

	return errors.Join(errs...)
}

// CaptureConfig is the capture part of the receive settings.
func (c *Config) CaptureConfig() CaptureConfig {
	return CaptureConfig{ClockDiv: c.Receive.ClockDiv, SampleRate: c.Receive.SampleRate}
}

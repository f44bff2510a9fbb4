package irblaster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	var cfg, err = ReadConfig(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)

	assert.True(t, cfg.Receive.Enabled)
	assert.Equal(t, SampleRateHz, cfg.Receive.SampleRate)
	assert.Equal(t, RegionEurope, cfg.Region)
	assert.Equal(t, DefaultScriptPause, cfg.Transmit.Pause)
	assert.Equal(t, DefaultIdleSleep, cfg.Transmit.IdleSleep)
	assert.False(t, cfg.Transmit.Line.Connected())
	assert.True(t, cfg.Receive.Enable.Invert, "receiver enable is active low")
}

func TestReadConfig_Overrides(t *testing.T) {
	var text = `
log_level: debug
region: north-america
receive:
  source: file
  file: capture.raw
  poll: 5ms
  high_pass: legacy
  presence:
    threshold: 20
    on: 6
    off: 2
transmit:
  line: {chip: gpiochip0, line: 18}
  carrier: {chip: /sys/class/pwm/pwmchip0, channel: 1}
  pause: 40ms
switch:
  line: {chip: gpiochip0, line: 17, invert: true}
  debounce: 20ms
diag:
  timestamp_format: "%H:%M:%S "
monitor:
  listen: ":7373"
  announce: true
`

	var cfg, err = ReadConfig(strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, RegionNorthAmerica, cfg.Region)
	assert.Equal(t, "file", cfg.Receive.Source)
	assert.Equal(t, 5*time.Millisecond, cfg.Receive.Poll)
	assert.Equal(t, PresenceConfig{Threshold: 20, On: 6, Off: 2}, cfg.Receive.Presence)
	assert.Equal(t, LineSpec{Chip: "gpiochip0", Line: 18, Invert: false}, cfg.Transmit.Line)
	assert.Equal(t, 1, cfg.Transmit.Carrier.Channel)
	assert.Equal(t, 40*time.Millisecond, cfg.Transmit.Pause)
	assert.Equal(t, 20*time.Millisecond, cfg.Switch.Debounce)
	assert.Equal(t, "%H:%M:%S ", cfg.Diag.TimestampFormat)
	assert.True(t, cfg.Monitor.Announce)

	// Untouched settings keep their defaults.
	assert.Equal(t, DefaultIdleSleep, cfg.Transmit.IdleSleep)
	assert.Equal(t, "up", cfg.Switch.Pull)

	var mode, merr = ParseHighPassMode(cfg.Receive.HighPass)
	require.NoError(t, merr)
	assert.Equal(t, HighPassLegacy, mode)
}

func TestReadConfig_UnknownKey(t *testing.T) {
	var _, err = ReadConfig(strings.NewReader("recieve:\n  enabled: false\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	var cases = map[string]func(c *Config){
		"log level":         func(c *Config) { c.LogLevel = "chatty" },
		"file without name": func(c *Config) { c.Receive.Source = "file" },
		"source":            func(c *Config) { c.Receive.Source = "microphone" },
		"poll":              func(c *Config) { c.Receive.Poll = 0 },
		"high pass":         func(c *Config) { c.Receive.HighPass = "none" },
		"presence":          func(c *Config) { c.Receive.Presence.Off = c.Receive.Presence.On },
		"buzz":              func(c *Config) { c.Receive.Buzz = true },
		"idle sleep":        func(c *Config) { c.Transmit.IdleSleep = 0 },
		"announce":          func(c *Config) { c.Monitor.Announce = true },
		"region":            func(c *Config) { c.Region = Region(9) },
	}

	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			var cfg = DefaultConfig()
			breakIt(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateReportsEverything(t *testing.T) {
	var cfg = DefaultConfig()
	cfg.LogLevel = "chatty"
	cfg.Receive.Poll = 0

	var err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "receive.poll")
}

func TestLoadConfig(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "irblaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: us\n"), 0o600))

	var cfg, err = LoadConfig(testLogger(), path)
	require.NoError(t, err)
	assert.Equal(t, RegionNorthAmerica, cfg.Region)

	_, err = LoadConfig(testLogger(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "a file named explicitly must exist")
}

func TestConfig_CaptureConfig(t *testing.T) {
	var cfg = DefaultConfig()

	assert.Equal(t, DefaultCaptureConfig(), cfg.CaptureConfig())
}

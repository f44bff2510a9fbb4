package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	IR scripts: timed on/off sequences to replay.
 *
 * Description:	A script is a carrier frequency (0 for none) and a list
 *		of codes, each an on/off flag and a duration in units of
 *		DurationQuantum.
 *
 *		The built-in table is produced by the protocol encoders
 *		at start up.  More scripts can be loaded from YAML:
 *
 *		scripts:
 *		  - name: lg-power
 *		    region: europe
 *		    carrier: 38000
 *		    codes: [900, -450, 56, -56, 56, -169, ...]
 *
 *		Positive codes are "on", negative are "off".
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DurationQuantum = 10 * time.Microsecond

type IrCode struct {
	On    bool
	Units uint16
}

func (c IrCode) Duration() time.Duration {
	return time.Duration(c.Units) * DurationQuantum
}

type Region int

const (
	RegionEurope Region = iota
	RegionNorthAmerica
)

var ErrUnknownRegion = errors.New("unknown region")

var regionNames = map[Region]string{
	RegionEurope:       "europe",
	RegionNorthAmerica: "north-america",
}

func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}

	return fmt.Sprintf("region(%d)", int(r))
}

func ParseRegion(s string) (Region, error) {
	var lower = strings.ToLower(strings.TrimSpace(s))

	for r, name := range regionNames {
		if lower == name {
			return r, nil
		}
	}

	switch lower {
	case "eu":
		return RegionEurope, nil
	case "na", "us":
		return RegionNorthAmerica, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownRegion, s)
}

func (r *Region) UnmarshalYAML(value *yaml.Node) error {
	var parsed, err = ParseRegion(value.Value)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

func (r Region) MarshalYAML() (any, error) {
	return r.String(), nil
}

type IrScript struct {
	Name    string
	Region  Region
	Carrier uint32 // Hz, 0 means drive the LED directly.
	Codes   []IrCode
}

// Duration is the total playing time.
func (s *IrScript) Duration() time.Duration {
	var total time.Duration
	for _, c := range s.Codes {
		total += c.Duration()
	}

	return total
}

type yamlScript struct {
	Name    string  `yaml:"name"`
	Region  Region  `yaml:"region"`
	Carrier uint32  `yaml:"carrier"`
	Codes   []int64 `yaml:"codes"`
}

type yamlScriptFile struct {
	Scripts []yamlScript `yaml:"scripts"`
}

// ReadScripts parses a YAML script file.
func ReadScripts(r io.Reader) ([]IrScript, error) {
	var file yamlScriptFile

	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scripts: %w", err)
	}

	var scripts = make([]IrScript, 0, len(file.Scripts))

	for i, ys := range file.Scripts {
		var s = IrScript{Name: ys.Name, Region: ys.Region, Carrier: ys.Carrier, Codes: nil}
		if s.Name == "" {
			s.Name = fmt.Sprintf("script-%d", i)
		}

		for _, v := range ys.Codes {
			var units = v
			if units < 0 {
				units = -units
			}

			if v == 0 || units > math.MaxUint16 {
				return nil, fmt.Errorf("script %q: code %d out of range", s.Name, v)
			}

			s.Codes = appendCode(s.Codes, v > 0, uint16(units))
		}

		scripts = append(scripts, s)
	}

	return scripts, nil
}

func LoadScripts(path string) ([]IrScript, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadScripts(f)
}

// appendCode adds a code, merging it into the last one if the level is
// the same.  Durations that would overflow a code start a new one.
func appendCode(codes []IrCode, on bool, units uint16) []IrCode {
	if units == 0 {
		return codes
	}

	if n := len(codes); n > 0 && codes[n-1].On == on && int(codes[n-1].Units)+int(units) <= math.MaxUint16 {
		codes[n-1].Units += units

		return codes
	}

	return append(codes, IrCode{On: on, Units: units})
}

// appendDuration is appendCode for a time.Duration, rounded to the quantum.
func appendDuration(codes []IrCode, on bool, d time.Duration) []IrCode {
	var units = (d + DurationQuantum/2) / DurationQuantum

	for units > math.MaxUint16 {
		codes = appendCode(codes, on, math.MaxUint16)
		units -= math.MaxUint16
	}

	return appendCode(codes, on, uint16(units))
}

// ScriptsForRegion returns the table indexes of scripts tagged with region.
func ScriptsForRegion(table []IrScript, region Region) []int {
	var idx []int

	for i := range table {
		if table[i].Region == region {
			idx = append(idx, i)
		}
	}

	return idx
}

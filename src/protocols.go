package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Encode common remote control protocols into scripts.
 *
 * Description:	Each protocol produces a frame as a list of (on, off)
 *		pairs; FrameScript flattens that into codes, merging
 *		neighbours at the same level.  Manchester protocols use
 *		a zero "on" half where a bit starts with a space.
 *
 *		Timings are the nominal ones; receivers tolerate
 *		around 20 %, much more than the 10 µs quantum.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"time"
)

const (
	CarrierNEC  = 38_000
	CarrierSony = 40_000
	CarrierRC5  = 36_000
)

// TimePair is a mark followed by a space.
type TimePair [2]time.Duration

type FrameMarshaller interface {
	MarshalFrame() []TimePair
}

// FrameScript builds a script that sends frame repeats times.  Each frame
// is padded with a space so that frames start period apart; a period
// shorter than the frame just leaves no padding.
func FrameScript(name string, region Region, carrier uint32, frame FrameMarshaller, repeats int, period time.Duration) IrScript {
	var s = IrScript{Name: name, Region: region, Carrier: carrier, Codes: nil}

	var pairs = frame.MarshalFrame()

	for range repeats {
		var length time.Duration

		for _, p := range pairs {
			s.Codes = appendDuration(s.Codes, true, p[0])
			s.Codes = appendDuration(s.Codes, false, p[1])
			length += p[0] + p[1]
		}

		if length < period {
			s.Codes = appendDuration(s.Codes, false, period-length)
		}
	}

	// A leading space sends nothing.
	if len(s.Codes) > 0 && !s.Codes[0].On {
		s.Codes = s.Codes[1:]
	}

	return s
}

// Pulse distance coding shared by NEC and Samsung.
const (
	necMark  = 562500 * time.Nanosecond
	necZero  = 562500 * time.Nanosecond
	necOne   = 1687500 * time.Nanosecond
	necFrame = 108 * time.Millisecond
)

func pulseDistance(out []TimePair, bits uint32, n int) []TimePair {
	for i := range n {
		var space = IfThenElse(bits>>i&1 == 1, necOne, necZero)
		out = append(out, TimePair{necMark, space})
	}

	return out
}

// NECFrame is the standard (8 bit address) NEC frame.
type NECFrame struct {
	Addr uint8
	Cmd  uint8
}

func (f NECFrame) MarshalFrame() []TimePair {
	var out = []TimePair{{9 * time.Millisecond, 4500 * time.Microsecond}}

	var bits = uint32(f.Addr) | uint32(^f.Addr)<<8 | uint32(f.Cmd)<<16 | uint32(^f.Cmd)<<24
	out = pulseDistance(out, bits, 32)

	// Stop mark.
	return append(out, TimePair{necMark, 0})
}

// SamsungFrame repeats the address where NEC sends its complement.
type SamsungFrame struct {
	Addr uint8
	Cmd  uint8
}

func (f SamsungFrame) MarshalFrame() []TimePair {
	var out = []TimePair{{4500 * time.Microsecond, 4500 * time.Microsecond}}

	var bits = uint32(f.Addr) | uint32(f.Addr)<<8 | uint32(f.Cmd)<<16 | uint32(^f.Cmd)<<24
	out = pulseDistance(out, bits, 32)

	return append(out, TimePair{necMark, 0})
}

// SonyFrame is the 12 bit SIRC frame: 7 command bits, 5 address bits.
type SonyFrame struct {
	Addr uint8
	Cmd  uint8
}

const (
	sonyUnit   = 600 * time.Microsecond
	sonyPeriod = 45 * time.Millisecond
)

func (f SonyFrame) MarshalFrame() []TimePair {
	var out = make([]TimePair, 0, 13)

	out = append(out, TimePair{4 * sonyUnit, sonyUnit})

	var bits = uint32(f.Cmd&0x7f) | uint32(f.Addr&0x1f)<<7

	for i := range 12 {
		var mark = IfThenElse(bits>>i&1 == 1, 2*sonyUnit, sonyUnit)
		out = append(out, TimePair{mark, sonyUnit})
	}

	return out
}

// RC5Frame is Philips RC5: two start bits, toggle, 5 address bits and
// 6 command bits, most significant first, bi-phase.
type RC5Frame struct {
	Addr   uint8
	Cmd    uint8
	Toggle bool
}

const (
	rc5Half   = 889 * time.Microsecond
	rc5Period = 114 * time.Millisecond
)

func (f RC5Frame) MarshalFrame() []TimePair {
	var bits = uint32(0b11)<<12 | uint32(IfThenElse(f.Toggle, 1, 0))<<11 |
		uint32(f.Addr&0x1f)<<6 | uint32(f.Cmd&0x3f)

	var out = make([]TimePair, 0, 28)

	for i := 13; i >= 0; i-- {
		if bits>>i&1 == 1 {
			// Space then mark.
			out = append(out, TimePair{0, rc5Half}, TimePair{rc5Half, 0})
		} else {
			out = append(out, TimePair{rc5Half, rc5Half})
		}
	}

	return out
}

// BuiltinScripts is the table played when no script file is given: power
// off codes for common television brands.
func BuiltinScripts() []IrScript {
	return []IrScript{
		FrameScript("lg-power", RegionEurope, CarrierNEC, NECFrame{Addr: 0x04, Cmd: 0x08}, 2, necFrame),
		FrameScript("samsung-power", RegionEurope, CarrierNEC, SamsungFrame{Addr: 0x07, Cmd: 0x02}, 2, necFrame),
		FrameScript("philips-standby", RegionEurope, CarrierRC5, RC5Frame{Addr: 0x00, Cmd: 0x0c, Toggle: false}, 2, rc5Period),
		FrameScript("sony-power", RegionEurope, CarrierSony, SonyFrame{Addr: 0x01, Cmd: 0x15}, 3, sonyPeriod),
		FrameScript("toshiba-power", RegionEurope, CarrierNEC, NECFrame{Addr: 0x40, Cmd: 0x12}, 2, necFrame),
		FrameScript("sony-power", RegionNorthAmerica, CarrierSony, SonyFrame{Addr: 0x01, Cmd: 0x15}, 3, sonyPeriod),
		FrameScript("vizio-power", RegionNorthAmerica, CarrierNEC, NECFrame{Addr: 0x04, Cmd: 0x08}, 2, necFrame),
		FrameScript("samsung-power", RegionNorthAmerica, CarrierNEC, SamsungFrame{Addr: 0x07, Cmd: 0x02}, 2, necFrame),
	}
}

// ScriptTable is the built-in table followed by the scripts in path, if any.
func ScriptTable(path string) ([]IrScript, error) {
	var table = BuiltinScripts()

	if path == "" {
		return table, nil
	}

	var extra, err = LoadScripts(path)
	if err != nil {
		return nil, fmt.Errorf("script file %s: %w", path, err)
	}

	return append(table, extra...), nil
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Synthesise what the photodiode would see while a script
 *		plays.
 *
 * Description:	Takes the pin timeline recorded by a TxRecorder and
 *		turns it into raw samples at the capture rate.  The
 *		receiver is common emitter, so light pulls the level
 *		down from its resting value.
 *
 *		The carrier is made by direct digital synthesis: a 32
 *		bit phase accumulator advanced by freq * 2^32 / rate
 *		every sample.  The LED is lit while the phase is in the
 *		first duty/24 of the cycle.
 *
 *		Noise, if any, comes from a fixed seed so the same
 *		arguments always produce the same file.
 *
 *----------------------------------------------------------------*/

import (
	"io"
	"math"
	"time"
)

const ticksPerCycle = 256.0 * 256.0 * 256.0 * 256.0

type BeaconConfig struct {
	SampleRate int
	Level      int16 // Resting level, no light.
	Amplitude  int16 // How far full light pulls it down.
	Noise      int16 // Peak uniform noise.
	Seed       uint64
}

func DefaultBeaconConfig() BeaconConfig {
	return BeaconConfig{
		SampleRate: SampleRateHz,
		Level:      2000,
		Amplitude:  400,
		Noise:      0,
		Seed:       1,
	}
}

type BeaconSynth struct {
	cfg    BeaconConfig
	events []TxEvent
	total  uint64 // Samples to produce.

	n     uint64 // Samples produced so far.
	ev    int    // Event in force.
	phase uint32
	step  uint32
	rng   uint64
}

// NewBeaconSynth renders events for length.  Before the first event the
// LED is dark.
func NewBeaconSynth(cfg BeaconConfig, events []TxEvent, length time.Duration) *BeaconSynth {
	var b = &BeaconSynth{ //nolint:exhaustruct
		cfg:    cfg,
		events: events,
		total:  uint64(length.Seconds() * float64(cfg.SampleRate)),
		ev:     -1,
		rng:    cfg.Seed | 1,
	}

	return b
}

// sampleTime is when sample n is taken, since the recording started.
func (b *BeaconSynth) sampleTime(n uint64) time.Duration {
	return time.Duration(float64(n) * float64(time.Second) / float64(b.cfg.SampleRate))
}

func (b *BeaconSynth) advance(t time.Duration) {
	for b.ev+1 < len(b.events) && b.events[b.ev+1].At <= t {
		b.ev++

		var e = b.events[b.ev]
		if e.Mode == TxCarrier && e.Carrier > 0 {
			var step = math.Round(e.Carrier * ticksPerCycle / float64(b.cfg.SampleRate))
			if b.step != uint32(step) {
				b.step = uint32(step)
				b.phase = 0
			}
		}
	}
}

func (b *BeaconSynth) lit() bool {
	if b.ev < 0 {
		return false
	}

	var e = b.events[b.ev]

	switch e.Mode {
	case TxDirect:
		return e.Level
	case TxCarrier:
		var on = uint64(e.Duty) * (1 << 32) / CarrierSteps

		return uint64(b.phase) < on
	default:
		return false
	}
}

// xorshift64*, plenty for noise.
func (b *BeaconSynth) random() uint64 {
	b.rng ^= b.rng >> 12
	b.rng ^= b.rng << 25
	b.rng ^= b.rng >> 27

	return b.rng * 2685821657736338717
}

func (b *BeaconSynth) ReadSamples(p []int16) (int, error) {
	var count = 0

	for count < len(p) {
		if b.n >= b.total {
			return count, io.EOF
		}

		b.advance(b.sampleTime(b.n))

		var v = int32(b.cfg.Level)
		if b.lit() {
			v -= int32(b.cfg.Amplitude)
		}

		if b.cfg.Noise > 0 {
			var span = uint64(2*int32(b.cfg.Noise) + 1)
			v += int32(b.random()%span) - int32(b.cfg.Noise) //nolint:gosec
		}

		p[count] = int16(max(math.MinInt16, min(math.MaxInt16, v))) //nolint:gosec
		count++

		b.phase += b.step
		b.n++
	}

	return count, nil
}

// Len is the total number of samples the synth produces.
func (b *BeaconSynth) Len() uint64 {
	return b.total
}

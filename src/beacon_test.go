package irblaster

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllSamples(t *testing.T, b *BeaconSynth) []int16 {
	t.Helper()

	var out []int16
	var buf = make([]int16, 64)

	for {
		var n, err = b.ReadSamples(buf)
		out = append(out, buf[:n]...)

		if err == io.EOF {
			return out
		}

		require.NoError(t, err)
	}
}

func TestBeaconSynth_Direct(t *testing.T) {
	var cfg = BeaconConfig{SampleRate: 1000, Level: 2000, Amplitude: 400, Noise: 0, Seed: 1}
	var events = []TxEvent{
		{At: 2 * time.Millisecond, Mode: TxDirect, Level: true},
		{At: 5 * time.Millisecond, Mode: TxDirect, Level: false},
	}

	var b = NewBeaconSynth(cfg, events, time.Second)
	assert.Equal(t, uint64(1000), b.Len())

	var buf = make([]int16, 8)

	var n, err = b.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []int16{2000, 2000, 1600, 1600, 1600, 2000, 2000, 2000}, buf)

	var rest = readAllSamples(t, b)
	assert.Len(t, rest, 1000-8)

	for _, v := range rest {
		assert.Equal(t, int16(2000), v)
	}

	n, err = b.ReadSamples(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestBeaconSynth_CarrierDuty(t *testing.T) {
	var cfg = DefaultBeaconConfig()

	var count = func(duty uint32) int {
		var events = []TxEvent{{At: 0, Mode: TxCarrier, Duty: duty, Carrier: 38000}}
		var lit = 0

		for _, v := range readAllSamples(t, NewBeaconSynth(cfg, events, 10*time.Millisecond)) {
			if v < cfg.Level {
				lit++
			}
		}

		return lit
	}

	var total = int(NewBeaconSynth(cfg, nil, 10*time.Millisecond).Len())

	assert.InDelta(t, total/2, count(TxDutyOn), float64(total)/20)
	assert.Equal(t, 0, count(TxDutyOff))
}

func TestBeaconSynth_Noise(t *testing.T) {
	var cfg = BeaconConfig{SampleRate: 8000, Level: 2000, Amplitude: 400, Noise: 50, Seed: 7}

	var a = readAllSamples(t, NewBeaconSynth(cfg, nil, 100*time.Millisecond))
	var b = readAllSamples(t, NewBeaconSynth(cfg, nil, 100*time.Millisecond))

	assert.Equal(t, a, b, "same seed, same samples")

	var spread = false

	for _, v := range a {
		assert.GreaterOrEqual(t, v, int16(1950))
		assert.LessOrEqual(t, v, int16(2050))

		if v != a[0] {
			spread = true
		}
	}

	assert.True(t, spread)

	cfg.Seed = 8
	assert.NotEqual(t, a, readAllSamples(t, NewBeaconSynth(cfg, nil, 100*time.Millisecond)))
}

package irblaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFixedFIR_ImpulseResponse(t *testing.T) {
	var f = NewFixedFIR(LowPass6k6)

	// 1.0 in Q16 brings the coefficients straight out.
	assert.Equal(t, LowPass6k6[0], f.Add(1<<firShift))

	for i := 1; i < FIRTaps; i++ {
		assert.Equal(t, LowPass6k6[i], f.Add(0), "tap %d", i)
	}

	assert.Equal(t, int32(0), f.Add(0), "impulse has left the history")
}

func TestFixedFIR_DCGain(t *testing.T) {
	var f = NewFixedFIR(LowPass6k6)

	var out int32
	for range 2 * FIRTaps {
		out = f.Add(1000)
	}

	assert.Equal(t, int32(1000), out)
}

func TestFixedFIR_Reset(t *testing.T) {
	var f = NewFixedFIR(LowPass6k6)

	for range 5 {
		f.Add(12345)
	}

	f.Reset()

	assert.Equal(t, LowPass6k6[0], f.Add(1<<firShift))
	assert.Equal(t, LowPass6k6[1], f.Add(0))
}

// Worst case stage 3 input is the sum of two int16 values.
func TestFixedFIR_NoOverflow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var f = NewFixedFIR(LowPass6k6)
		var in = rapid.SliceOfN(rapid.Int32Range(2*-32768, 2*32767), 1, 64).Draw(t, "in")

		var bound int64
		for _, c := range LowPass6k6 {
			bound += int64(max(c, -c)) * 2 * 32768
		}

		for _, x := range in {
			var y = int64(f.Add(x))
			assert.LessOrEqual(t, y, bound>>firShift+1)
			assert.GreaterOrEqual(t, y, -(bound>>firShift)-1)
		}
	})
}

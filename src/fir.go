package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Fixed point FIR filter used between the decimation stages.
 *
 * Description:	Coefficients are Q16, i.e. 65536 represents a gain of 1.
 *		The history holds the last FIRTaps raw inputs in a ring;
 *		every call overwrites the oldest slot and recomputes the
 *		whole weighted sum.
 *
 *		Inputs to stage 3 are sums of two int16 values, so the
 *		products need more than 32 bits in the worst case.
 *		The accumulator is int64.
 *
 *----------------------------------------------------------------*/

const FIRTaps = 11

// Coefficients are scaled by 2^firShift.
const firShift = 16

// LowPass6k6 is a low pass with about 6.6 kHz cutoff at the rate seen by
// stage 3 (SampleRateHz / 4).  Sum is 65538, i.e. unity gain at DC.
var LowPass6k6 = [FIRTaps]int32{-767, -1952, -145, 7333, 17294, 22012, 17294, 7333, -145, -1952, -767}

type FixedFIR struct {
	coeff [FIRTaps]int32
	hist  [FIRTaps]int32
	pos   int // Slot written by the next Add.
}

func NewFixedFIR(coeff [FIRTaps]int32) *FixedFIR {
	return &FixedFIR{coeff: coeff} //nolint:exhaustruct
}

// Add pushes one sample and returns one filtered sample.
func (f *FixedFIR) Add(sample int32) int32 {
	f.hist[f.pos] = sample

	var acc int64
	var j = f.pos

	for i := range FIRTaps {
		acc += int64(f.coeff[i]) * int64(f.hist[j])

		j--
		if j < 0 {
			j = FIRTaps - 1
		}
	}

	f.pos++
	if f.pos == FIRTaps {
		f.pos = 0
	}

	return int32(acc >> firShift)
}

// Reset clears the history but keeps the coefficients.
func (f *FixedFIR) Reset() {
	f.hist = [FIRTaps]int32{}
	f.pos = 0
}

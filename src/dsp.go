package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:     Design the low pass filter used by the pipeline.
 *
 * Description:	The pipeline runs on fixed coefficients.  These helpers
 *		are how such coefficients are made: a windowed sinc,
 *		normalised for unity gain at DC and then quantised to
 *		Q16.  gen_fir prints them next to the built-in table.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"math/cmplx"
)

type WindowType int

const (
	WindowTruncated WindowType = iota
	WindowCosine
	WindowHamming
	WindowBlackman
	WindowFlattop
)

var windowNames = []string{"truncated", "cosine", "hamming", "blackman", "flattop"}

func (w WindowType) String() string {
	if int(w) < len(windowNames) {
		return windowNames[w]
	}

	return "unknown"
}

func ParseWindowType(s string) (WindowType, error) {
	for i, name := range windowNames {
		if s == name {
			return WindowType(i), nil
		}
	}

	return 0, fmt.Errorf("window %q: want one of %v", s, windowNames)
}

// The FIR runs after two decimations by 2.
const FIRSampleRateHz = SampleRateHz / (stage2Decimation * stage3Decimation)

/*------------------------------------------------------------------
 *
 * Name:        window
 *
 * Purpose:     Filter window shape functions.
 *
 * Inputs:   	windowType	- WindowHamming, etc.
 *		size		- Number of filter taps.
 *		j		- Index in range of 0 to size-1.
 *
 * Returns:     Multiplier for the window shape.
 *
 *----------------------------------------------------------------*/

func window(windowType WindowType, _size int, _j int) float64 {
	var size = float64(_size)
	var j = float64(_j)

	var center = 0.5 * (size - 1)

	switch windowType {
	case WindowCosine:
		return math.Cos((j - center) / size * math.Pi)

	case WindowHamming:
		return 0.53836 - 0.46164*math.Cos((j*2*math.Pi)/(size-1))

	case WindowBlackman:
		return 0.42659 - 0.49656*math.Cos((j*2*math.Pi)/(size-1)) +
			0.076849*math.Cos((j*4*math.Pi)/(size-1))

	case WindowFlattop:
		return 1.0 - 1.93*math.Cos((j*2*math.Pi)/(size-1)) +
			1.29*math.Cos((j*4*math.Pi)/(size-1)) -
			0.388*math.Cos((j*6*math.Pi)/(size-1)) +
			0.028*math.Cos((j*8*math.Pi)/(size-1))

	case WindowTruncated:
		fallthrough
	default:
		return 1.0
	}
}

/*------------------------------------------------------------------
 *
 * Name:        GenLowpass
 *
 * Purpose:     Generate low pass filter kernel.
 *
 * Inputs:   	fc	- Cutoff frequency as fraction of sampling frequency.
 *		size	- Number of filter taps, at least 3.
 *		wtype	- Window type.
 *
 * Returns:	Kernel with unity gain at DC.
 *
 *----------------------------------------------------------------*/

func GenLowpass(fc float64, size int, wtype WindowType) []float64 {
	var kernel = make([]float64, size)
	var center = 0.5 * float64(size-1)

	for j := range size {
		var sinc float64

		if float64(j)-center == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*(fc*(float64(j)-center))) / (math.Pi * (float64(j) - center))
		}

		kernel[j] = sinc * window(wtype, size, j)
	}

	/*
	 * Normalize lowpass for unity gain at DC.
	 */
	var G float64
	for _, k := range kernel {
		G += k
	}

	for j := range kernel {
		kernel[j] /= G
	}

	return kernel
}

// QuantizeQ16 rounds a FIRTaps kernel to Q16.
func QuantizeQ16(kernel []float64) ([FIRTaps]int32, error) {
	var q [FIRTaps]int32

	if len(kernel) != FIRTaps {
		return q, fmt.Errorf("kernel has %d taps, want %d", len(kernel), FIRTaps)
	}

	for i, k := range kernel {
		q[i] = int32(math.Round(k * (1 << firShift)))
	}

	return q, nil
}

// FIRResponse is the gain of a Q16 kernel at f, a fraction of the
// sampling frequency.
func FIRResponse(coeff [FIRTaps]int32, f float64) float64 {
	var sum complex128

	for n, c := range coeff {
		sum += complex(float64(c)/(1<<firShift), 0) * cmplx.Exp(complex(0, -2*math.Pi*f*float64(n)))
	}

	return cmplx.Abs(sum)
}

// CutoffHz finds where the response of coeff first drops to -3 dB, at
// the FIR's own sample rate, by bisection.
func CutoffHz(coeff [FIRTaps]int32) float64 {
	var dc = FIRResponse(coeff, 0)
	var target = dc / math.Sqrt2

	var lo, hi = 0.0, 0.5
	for range 50 {
		var mid = (lo + hi) / 2
		if FIRResponse(coeff, mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}

	return lo * FIRSampleRateHz
}

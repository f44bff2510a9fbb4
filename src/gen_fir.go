package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Design the stage 3 low pass and compare it with the
 *		built-in coefficients.
 *
 * Usage:	gen_fir [ --cutoff Hz ] [ --window name ]
 *
 *		Prints the Q16 table ready to paste into fir.go, and the
 *		response of both filters at a few frequencies.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

var firReportFrequencies = []float64{0, 1000, 2000, 4000, 6600, 10000, 15000, 20000}

// FormatCoefficients writes a table as a Go composite literal.
func FormatCoefficients(coeff [FIRTaps]int32) string {
	var parts = make([]string, len(coeff))
	for i, c := range coeff {
		parts[i] = fmt.Sprintf("%d", c)
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func coefficientSum(coeff [FIRTaps]int32) int64 {
	var sum int64
	for _, c := range coeff {
		sum += int64(c)
	}

	return sum
}

func decibels(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(gain)
}

func GenFIRMain() {
	var cutoff = pflag.Float64P("cutoff", "c", 6600, "Cutoff frequency in Hz.")
	var windowName = pflag.StringP("window", "w", WindowHamming.String(), "Window: "+strings.Join(windowNames, ", ")+".")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Design the %d tap low pass filter\n", os.Args[0], FIRTaps)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var wtype, err = ParseWindowType(*windowName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if *cutoff <= 0 || *cutoff >= FIRSampleRateHz/2 {
		fmt.Fprintf(os.Stderr, "Cutoff must be between 0 and %d Hz.\n", FIRSampleRateHz/2)
		os.Exit(1)
	}

	var kernel = GenLowpass(*cutoff/FIRSampleRateHz, FIRTaps, wtype)

	var designed, qerr = QuantizeQ16(kernel)
	if qerr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", qerr)
		os.Exit(1)
	}

	fmt.Printf("Low pass, %d taps, %s window, cutoff %.0f Hz at %d Hz.\n\n", FIRTaps, wtype, *cutoff, FIRSampleRateHz)

	fmt.Printf("designed: %s\n", FormatCoefficients(designed))
	fmt.Printf("          sum %d, -3 dB at %.0f Hz\n", coefficientSum(designed), CutoffHz(designed))
	fmt.Printf("built-in: %s\n", FormatCoefficients(LowPass6k6))
	fmt.Printf("          sum %d, -3 dB at %.0f Hz\n\n", coefficientSum(LowPass6k6), CutoffHz(LowPass6k6))

	fmt.Printf("%8s  %10s  %10s\n", "Hz", "designed", "built-in")

	for _, f := range firReportFrequencies {
		var fraction = f / FIRSampleRateHz

		fmt.Printf("%8.0f  %7.1f dB  %7.1f dB\n", f,
			decibels(FIRResponse(designed, fraction)), decibels(FIRResponse(LowPass6k6, fraction)))
	}
}

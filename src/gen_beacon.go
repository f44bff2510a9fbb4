package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Generate a synthetic photodiode capture of scripts being
 *		played, for testing the receive path without hardware.
 *
 * Usage:	gen_beacon [ options ] -o file
 *
 *		The scripts are played by the real player against a
 *		recorder on a virtual clock, so the timing in the file
 *		is exactly what the player would produce.  The result
 *		can be fed to irdetect or to irblaster -f.
 *
 *----------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

// SelectScripts picks the table indexes for region, narrowed to those
// called name when name is not empty.
func SelectScripts(table []IrScript, region Region, name string) ([]int, error) {
	var picked []int

	for _, i := range ScriptsForRegion(table, region) {
		if name == "" || table[i].Name == name {
			picked = append(picked, i)
		}
	}

	if len(picked) == 0 {
		return nil, fmt.Errorf("no script %q for region %s", name, region)
	}

	return picked, nil
}

// RenderBeacon plays the scripts at indexes, lead after the start and gap
// apart, with a trailing gap, and returns the synthesised capture.
func RenderBeacon(logger *log.Logger, table []IrScript, indexes []int, cfg BeaconConfig, lead, gap time.Duration) (*BeaconSynth, error) {
	var ctx = context.Background()
	var clk = NewVirtualClock(time.Unix(0, 0))
	var rec = NewTxRecorder(clk)
	var player = NewTxScriptPlayer(logger, rec, clk)

	_ = clk.Sleep(ctx, lead)

	for _, i := range indexes {
		if err := player.Play(ctx, &table[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", table[i].Name, err)
		}

		_ = clk.Sleep(ctx, gap)
	}

	return NewBeaconSynth(cfg, rec.Events(), rec.Elapsed()), nil
}

// WriteBeacon copies every sample of b to w.
func WriteBeacon(w io.Writer, b *BeaconSynth) (uint64, error) {
	var buf = make([]int16, 4*BlockSize)
	var total uint64

	for {
		var n, err = b.ReadSamples(buf)

		if werr := WriteSamples(w, buf[:n]); werr != nil {
			return total, werr
		}

		total += uint64(n) //nolint:gosec

		if errors.Is(err, io.EOF) {
			return total, nil
		}

		if err != nil {
			return total, err
		}
	}
}

func GenBeaconMain() {
	var defaults = DefaultBeaconConfig()

	var output = pflag.StringP("output", "o", "", "Output file, raw int16 little endian samples.")
	var regionName = pflag.StringP("region", "r", RegionEurope.String(), "Region whose scripts are played.")
	var scriptName = pflag.StringP("script", "s", "", "Play only the script with this name.")
	var scriptsFile = pflag.String("scripts-file", "", "Additional script file, appended to the built-in table.")
	var rate = pflag.Int("rate", defaults.SampleRate, "Sample rate.")
	var level = pflag.Int16("level", defaults.Level, "Resting level with no light.")
	var amplitude = pflag.Int16P("amplitude", "a", defaults.Amplitude, "Drop in level with the LED fully on.")
	var noise = pflag.Int16("noise", defaults.Noise, "Peak uniform noise.")
	var seed = pflag.Uint64("seed", defaults.Seed, "Noise seed.")
	var lead = pflag.Duration("lead", 50*time.Millisecond, "Darkness before the first script.")
	var gap = pflag.Duration("gap", DefaultScriptPause, "Darkness after each script.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Generate a photodiode capture of IR scripts\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] -o FILE\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *output == "" || *rate <= 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var logger, _ = NewLogger(os.Stderr, "warn")

	var region, err = ParseRegion(*regionName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var table, terr = ScriptTable(*scriptsFile)
	if terr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", terr)
		os.Exit(1)
	}

	var indexes, serr = SelectScripts(table, region, *scriptName)
	if serr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", serr)
		os.Exit(1)
	}

	var cfg = BeaconConfig{SampleRate: *rate, Level: *level, Amplitude: *amplitude, Noise: *noise, Seed: *seed}

	var synth, rerr = RenderBeacon(logger, table, indexes, cfg, *lead, *gap)
	if rerr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", rerr)
		os.Exit(1)
	}

	var f, ferr = os.Create(*output)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ferr)
		os.Exit(1)
	}

	var w = bufio.NewWriter(f)

	var n, werr = WriteBeacon(w, synth)
	if werr == nil {
		werr = w.Flush()
	}

	if cerr := f.Close(); werr == nil {
		werr = cerr
	}

	if werr != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", *output, werr)
		os.Exit(1)
	}

	for _, i := range indexes {
		fmt.Printf("ir_script_%03d %-16s %5d Hz  %s\n", i, table[i].Name, table[i].Carrier, table[i].Duration())
	}

	fmt.Printf("Wrote %d samples (%.3f s at %d Hz) to %s\n", n, float64(n)/float64(*rate), *rate, *output)
}

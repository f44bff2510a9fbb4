package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Run recorded photodiode captures through the receive
 *		path, offline.
 *
 * Usage:	irdetect [ options ] file ...
 *
 *		Each file is raw signed 16 bit little endian samples at
 *		the capture rate, e.g. from gen_beacon or from an
 *		arecord of the receiver.  The samples go through the
 *		same capture controller and pipeline as on the device,
 *		one block at a time, so the bars printed are the ones
 *		the device would print.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

type DetectOptions struct {
	HighPass HighPassMode
	Presence PresenceConfig
	Quiet    bool // No bars, summary only.
	Out      io.Writer
}

type DetectResult struct {
	Blocks        int
	PresentBlocks int   // Blocks with energy above the threshold.
	Peak          int16 // Highest energy seen.
	Detections    int   // Times the presence detector came on.
}

// Detect feeds src through a capture controller and a fresh pipeline
// until it runs out.  A partial block at the end is dropped.
func Detect(logger *log.Logger, src SampleSource, opts DetectOptions) (DetectResult, error) {
	var res DetectResult

	var pipeline = NewPipeline(opts.HighPass)

	var presence = NewPresenceDetector(opts.Presence, func(present bool) {
		if present {
			res.Detections++
		}

		if !opts.Quiet {
			fmt.Fprintf(opts.Out, "block %d: beacon %s\n", res.Blocks, IfThenElse(present, "present", "gone"))
		}
	})

	var sink = func(b *Block) {
		var e = pipeline.Process(b)

		res.Blocks++
		res.Peak = max(res.Peak, e.Peak())

		if e.Present(opts.Presence.Threshold) {
			res.PresentBlocks++
		}

		if !opts.Quiet {
			fmt.Fprintf(opts.Out, "%s\n", e.Render())
		}

		presence.Add(&e)
	}

	var sim = NewSimCapture(src)
	var ctl = NewCaptureController(logger, sim, DefaultCaptureConfig(), sink)

	if err := ctl.Init(); err != nil {
		return res, err
	}

	for {
		var _, err = sim.Fill(BlockSize)
		if errors.Is(err, ErrSourceExhausted) {
			return res, nil
		}

		if err != nil {
			return res, err
		}

		ctl.Poll()
	}
}

func DetectFile(logger *log.Logger, path string, opts DetectOptions) (DetectResult, error) {
	var f, err = os.Open(path)
	if err != nil {
		return DetectResult{}, err //nolint:exhaustruct
	}
	defer f.Close()

	return Detect(logger, NewFileSource(f, false), opts)
}

func DetectMain() {
	var highPass = pflag.String("high-pass", HighPassMovingAverage.String(), "High pass: moving-average or legacy.")
	var threshold = pflag.Int16P("threshold", "t", DefaultPresenceThreshold, "Energy above this counts as a beacon.")
	var on = pflag.Int("on", DefaultPresenceConfig().On, "Blocks out of the last 32 above threshold to report a beacon.")
	var off = pflag.Int("off", DefaultPresenceConfig().Off, "Blocks out of the last 32 above threshold at or below which it is gone.")
	var quiet = pflag.BoolP("quiet", "q", false, "Print only the summary for each file.")
	var verbose = pflag.BoolP("verbose", "v", false, "Log capture details.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Look for IR beacons in raw photodiode captures\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] FILE...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "At least one capture file is required.\n")
		pflag.Usage()
		os.Exit(1)
	}

	var mode, err = ParseHighPassMode(*highPass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var logger, _ = NewLogger(os.Stderr, IfThenElse(*verbose, "debug", "warn"))

	var opts = DetectOptions{
		HighPass: mode,
		Presence: PresenceConfig{Threshold: *threshold, On: *on, Off: *off},
		Quiet:    *quiet,
		Out:      os.Stdout,
	}

	var failed = 0

	for _, path := range pflag.Args() {
		if !*quiet {
			fmt.Printf("%s:\n", path)
		}

		var res, derr = DetectFile(logger, path, opts)
		if derr != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, derr)
			failed++

			continue
		}

		fmt.Printf("%s: %d blocks, %d above %d, peak %d, beacon seen %d times\n",
			path, res.Blocks, res.PresentBlocks, *threshold, res.Peak, res.Detections)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

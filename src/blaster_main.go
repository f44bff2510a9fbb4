package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the IR blaster daemon.
 *
 * Usage:	irblaster [ options ]
 *
 *		Settings come from the configuration file (see config.go)
 *		and a few of them can be overridden here.  Without any
 *		hardware configured it still runs: the transmit pin is
 *		recorded rather than driven and, with -f, the receiver
 *		reads a capture file instead of the sound card.
 *
 *		Stop with ^C.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func BlasterMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file name.  Default is irblaster.yaml in the usual places.")
	var logLevel = pflag.StringP("log-level", "l", "", "Log level: debug, info, warn, error.")
	var regionName = pflag.StringP("region", "r", "", "Region whose scripts are played: europe or north-america.")
	var scriptsFile = pflag.StringP("scripts", "s", "", "Additional script file, appended to the built-in table.")
	var noReceive = pflag.Bool("no-receive", false, "Do not run the receiver.")
	var rxFile = pflag.StringP("rx-file", "f", "", "Read raw int16 little endian samples from this file instead of the sound card.")
	var rxLoop = pflag.Bool("loop", false, "Start the capture file over at the end.")
	var dryRun = pflag.BoolP("dry-run", "n", false, "Record the transmit pin instead of driving it.")
	var transmit = pflag.BoolP("transmit", "t", false, "Start with transmit enabled, without waiting for the switch.")
	var pinCores = pflag.Bool("pin-cores", false, "Pin tasks to CPU cores.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede diagnostic lines with 'strftime' format time stamp.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Infrared remote control blaster and beacon detector\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *version {
		readBuildInfo().Write(os.Stdout, true)
		os.Exit(0)
	}

	var logger, _ = NewLogger(os.Stderr, "info")

	var cfg, err = LoadConfig(logger, *configFile)
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}

	/*
	 * Command line overrides.
	 */

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if *regionName != "" {
		var region, rerr = ParseRegion(*regionName)
		if rerr != nil {
			logger.Fatal("region", "err", rerr)
		}

		cfg.Region = region
	}

	if *scriptsFile != "" {
		cfg.ScriptsFile = *scriptsFile
	}

	if *noReceive {
		cfg.Receive.Enabled = false
	}

	if *rxFile != "" {
		cfg.Receive.Source = "file"
		cfg.Receive.File = *rxFile
		cfg.Receive.Loop = cfg.Receive.Loop || *rxLoop
	}

	if *transmit {
		cfg.Transmit.Enabled = true
	}

	if *pinCores {
		cfg.PinCores = true
	}

	if *timestampFormat != "" {
		cfg.Diag.TimestampFormat = *timestampFormat
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("configuration", "err", err)
	}

	// Level already validated.
	if l, lerr := NewLogger(os.Stderr, cfg.LogLevel); lerr == nil {
		logger = l
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app, aerr = NewApp(logger, cfg, AppOptions{DryRun: *dryRun}) //nolint:exhaustruct
	if aerr != nil {
		logger.Fatal("startup", "err", aerr)
	}

	var runErr = app.Run(ctx)

	if err := app.Close(); err != nil {
		logger.Warn("shutdown", "err", err)
	}

	if runErr != nil {
		logger.Error("stopped", "err", runErr)
		os.Exit(1)
	}

	logger.Info("stopped")
}

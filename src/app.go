package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Put the receiver, transmitter, switch and diagnostics
 *		together according to the configuration.
 *
 * Description:	Tasks, as on the board:
 *
 *			switch	core 0, priority 3
 *			stats	core 0, priority 1
 *			tx	core 0, priority 0
 *			rx	core 1, priority 0, only if receiving
 *
 *		plus a feeder for file capture and the monitor server
 *		and its announcement when configured.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultStatsTaskInterval = 10 * time.Second

	// Samples per step when feeding a capture file in real time.
	fileFeedChunk = BlockSize / 4
)

type AppOptions struct {
	// DryRun records transmissions instead of driving the LED.
	DryRun bool

	// Clock defaults to the system clock.
	Clock Clock

	// Switch overrides the configured switch.
	Switch SwitchSource

	// Stdout receives the diagnostic lines when enabled.  Defaults to
	// os.Stdout.
	Stdout io.Writer
}

type App struct {
	logger *log.Logger
	cfg    *Config
	clk    Clock

	enabled   atomic.Bool
	diag      *DiagSink
	indicator Indicator
	table     []IrScript

	pipeline *Pipeline
	presence *PresenceDetector
	stats    *CaptureStats
	capture  *CaptureController
	sim      *SimCapture
	buzzer   *Buzzer

	txOut    TxOutput
	recorder *TxRecorder
	txTask   *TxTask

	sw      SwitchSource
	monitor *Monitor

	closers []func() error
}

func NewApp(logger *log.Logger, cfg *Config, opts AppOptions) (app *App, err error) {
	var a = &App{logger: logger, cfg: cfg, clk: opts.Clock} //nolint:exhaustruct
	if a.clk == nil {
		a.clk = SystemClock{}
	}

	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.enabled.Store(cfg.Transmit.Enabled)

	if err := a.setupDiag(opts); err != nil {
		return nil, err
	}

	if err := a.setupIndicator(); err != nil {
		return nil, err
	}

	_ = a.indicator.SetRGB(ColorBoot)

	if a.table, err = ScriptTable(cfg.ScriptsFile); err != nil {
		return nil, err
	}

	if cfg.Receive.Enabled {
		if err := a.setupReceive(); err != nil {
			return nil, err
		}
	}

	if err := a.setupTransmit(opts.DryRun); err != nil {
		return nil, err
	}

	if err := a.setupSwitch(opts.Switch); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *App) addCloser(f func() error) {
	a.closers = append(a.closers, f)
}

func (a *App) setupDiag(opts AppOptions) error {
	var diag, err = NewDiagSink(a.logger.WithPrefix("diag"), a.clk, a.cfg.Diag.TimestampFormat)
	if err != nil {
		return err
	}

	a.diag = diag
	a.addCloser(func() error { diag.Close(); return nil })

	if a.cfg.Diag.Stdout {
		diag.AddWriter("stdout", IfThenElse[io.Writer](opts.Stdout != nil, opts.Stdout, os.Stdout))
	}

	var con = a.cfg.Diag.Console

	if con.Serial != "" {
		var port, err = OpenSerialConsole(con.Serial, con.Baud)
		if err != nil {
			return err
		}

		a.addCloser(port.Close)
		diag.AddQueuedWriter("serial", port, DefaultDiagQueue)
	}

	if con.PTY {
		var pt, err = OpenPTYConsole()
		if err != nil {
			return err
		}

		a.addCloser(pt.Close)
		diag.AddQueuedWriter("pty", pt, DefaultDiagQueue)
		a.logger.Info("diagnostic console available", "pty", pt.Name())
	}

	if a.cfg.Monitor.Listen != "" {
		var m, err = ListenMonitor(a.logger.WithPrefix("monitor"), a.cfg.Monitor.Listen)
		if err != nil {
			return err
		}

		a.monitor = m
		diag.AddWriter("monitor", m)
		a.logger.Info("monitor listening", "addr", m.Addr())
	}

	return nil
}

func (a *App) setupIndicator() error {
	var indicators = multiIndicator{NewLogIndicator(a.logger.WithPrefix("led"))}

	var ic = a.cfg.Indicator
	if ic.Red.Connected() || ic.Green.Connected() || ic.Blue.Connected() {
		var g, err = OpenGPIOIndicator(ic)
		if err != nil {
			return err
		}

		a.addCloser(g.Close)
		indicators = append(indicators, g)
	}

	a.indicator = indicators

	return nil
}

func (a *App) setupReceive() error {
	var rx = &a.cfg.Receive
	var logger = a.logger.WithPrefix("rx")

	var mode, err = ParseHighPassMode(rx.HighPass)
	if err != nil {
		return err
	}

	a.pipeline = NewPipeline(mode)
	a.stats = NewCaptureStats(logger, a.clk, a.cfg.StatsInterval)
	a.presence = NewPresenceDetector(rx.Presence, func(present bool) {
		logger.Info("beacon", "present", present)
	})

	if rx.Buzz {
		var bz, err = OpenBuzzer(a.cfg.Buzzer)
		if err != nil {
			return err
		}

		a.buzzer = bz
		a.addCloser(bz.Close)
	}

	var dev CapturePeripheral

	switch rx.Source {
	case "file":
		var f, err = os.Open(rx.File)
		if err != nil {
			return err
		}

		a.addCloser(f.Close)
		a.sim = NewSimCapture(NewFileSource(f, rx.Loop))
		dev = a.sim
	default:
		var pa = NewPortAudioCapture(logger)
		a.addCloser(pa.Close)
		dev = pa
	}

	a.capture = NewCaptureController(logger, dev, a.cfg.CaptureConfig(), a.onBlock)
	a.capture.SetPollInterval(rx.Poll)
	a.capture.SetStats(a.stats)

	if rx.Enable.Connected() || rx.Pump.Connected() {
		var fe, err = OpenReceiverFrontend(*rx)
		if err != nil {
			return err
		}

		a.addCloser(fe.Close)
		a.capture.SetFrontend(fe)
	}

	return nil
}

// onBlock runs on the rx task for every captured block.
func (a *App) onBlock(b *Block) {
	var e = a.pipeline.Process(b)

	a.stats.Observe(&e)
	a.presence.Add(&e)

	if a.cfg.Receive.Bars {
		a.diag.Block(&e)
	}

	if err := a.buzzer.Sound(e.Present(a.cfg.Receive.Presence.Threshold)); err != nil {
		a.logger.Debug("buzzer", "err", err)
	}
}

func (a *App) setupTransmit(dryRun bool) error {
	var tc = &a.cfg.Transmit

	switch {
	case !dryRun && tc.Line.Connected():
		var out, err = OpenGPIOTxOutput(tc.Line, tc.Carrier)
		if err != nil {
			return err
		}

		a.addCloser(out.Close)
		a.txOut = out
	default:
		if !dryRun {
			a.logger.Warn("no transmit line configured, recording only")
		}

		a.recorder = NewTxRecorder(a.clk)
		a.txOut = a.recorder
	}

	// The pin starts out safe.
	if err := a.txOut.Release(); err != nil {
		return err
	}

	var logger = a.logger.WithPrefix("tx")
	var player = NewTxScriptPlayer(logger, a.txOut, a.clk)

	a.txTask = NewTxTask(logger, player, a.table, a.cfg.Region, &a.enabled, a.indicator, a.diag, a.clk)
	a.txTask.Pause = tc.Pause
	a.txTask.IdleSleep = tc.IdleSleep

	return nil
}

func (a *App) setupSwitch(override SwitchSource) error {
	if override != nil {
		a.sw = override

		return nil
	}

	if !a.cfg.Switch.Line.Connected() {
		a.logger.Info("no switch configured", "transmit", a.enabled.Load())

		return nil
	}

	var sw, err = OpenGPIOSwitch(0, a.cfg.Switch)
	if err != nil {
		return err
	}

	a.addCloser(sw.Close)
	a.sw = sw

	return nil
}

// Enabled is the transmit enable flag.
func (a *App) Enabled() *atomic.Bool {
	return &a.enabled
}

// Recorder is the transmit recorder, nil when driving real hardware.
func (a *App) Recorder() *TxRecorder {
	return a.recorder
}

func (a *App) TxTask() *TxTask {
	return a.txTask
}

// Scheduler builds the task set.
func (a *App) Scheduler() *Scheduler {
	var sched = NewScheduler(a.logger.WithPrefix("sched"), a.cfg.PinCores)

	if a.sw != nil {
		sched.Create("switch", 0, 3, func(ctx context.Context) error {
			return RunSwitchTask(ctx, a.logger.WithPrefix("sw"), a.sw, &a.enabled, a.diag)
		}).SetReady()
	}

	sched.Create("stats", 0, 1, a.runStats).SetReady()

	sched.Create("tx", 0, 0, a.txTask.Run).SetReady()

	if a.capture != nil {
		var clk = a.clk

		sched.Create("rx", 1, 0, func(ctx context.Context) error {
			return a.capture.Run(ctx, clk)
		}).SetReady()

		if a.sim != nil {
			var rate = a.cfg.Receive.SampleRate

			sched.Create("rx-feed", 1, 0, func(ctx context.Context) error {
				return a.sim.Run(ctx, clk, fileFeedChunk, rate)
			}).SetReady()
		}
	}

	if a.monitor != nil {
		sched.Create("monitor", 0, 1, a.monitor.Serve).SetReady()

		if a.cfg.Monitor.Announce {
			sched.Create("dns-sd", 0, 1, func(ctx context.Context) error {
				if err := a.monitor.Announce(ctx, a.cfg.Monitor.Name); err != nil {
					a.logger.Error("DNS-SD", "err", err)
				}

				return nil
			}).SetReady()
		}
	}

	return sched
}

// runStats logs a summary every few seconds.
func (a *App) runStats(ctx context.Context) error {
	var logger = a.logger.WithPrefix("stats")

	for {
		if err := a.clk.Sleep(ctx, DefaultStatsTaskInterval); err != nil {
			return nil //nolint:nilerr
		}

		var kv = []any{"transmit", a.enabled.Load(), "played", a.txTask.Played(), "diag_dropped", a.diag.Dropped()}

		if a.capture != nil {
			kv = append(kv, "rx_restarts", a.capture.Restarts(), "present", a.presence.Present())
		}

		if a.monitor != nil {
			kv = append(kv, "monitor_clients", a.monitor.Clients())
		}

		if a.recorder != nil {
			kv = append(kv, "pin_changes", len(a.recorder.Events()))
			a.recorder.Reset()
		}

		logger.Info("stats", kv...)
	}
}

// Run runs every task until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.diag.Printf("Welcome! Have a safe and productive day!")
	a.logger.Info(readBuildInfo().String())

	return a.Scheduler().Run(ctx)
}

// Close releases everything, in reverse order of opening.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	a.closers = nil

	return errors.Join(errs...)
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Own the capture peripheral and its ring, and hand
 *		complete blocks to the pipeline in arrival order.
 *
 * Description:	The peripheral fills the ring on its own.  We poll:
 *		deliver every block between our read cursor and the
 *		block being written, restart the transfer if it ever
 *		stopped, then sleep a little.
 *
 *		If we fall a whole lap behind, the overwritten blocks
 *		are gone and nothing says so.  The detector looks at a
 *		continuous stream so this is accepted.  Throttling would
 *		not help: the converter cannot be paused without losing
 *		samples either.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// ADC clock and divider.  48 MHz / 253 = 189 723 Hz, chosen so that a
	// 5-sample moving average has its null near 38 kHz, which makes
	// "sample minus moving average" a decent high pass for the carrier.
	ADCClockHz  = 48_000_000
	ADCClockDiv = 253

	SampleRateHz = ADCClockHz / ADCClockDiv

	// MovingAverageNullHz is the first zero of the 5-sample average.
	MovingAverageNullHz = SampleRateHz / highPassLen

	DefaultCapturePoll = 10 * time.Millisecond
)

type CaptureConfig struct {
	ClockDiv   int
	SampleRate int
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{ClockDiv: ADCClockDiv, SampleRate: SampleRateHz}
}

type CapturePeripheral interface {
	// Arm disables pulls on the sense input, programs the sample rate,
	// drains stale samples and points the ring-filling transfer at ring.
	Arm(ring *RingBuffer, cfg CaptureConfig) error
	// Start begins free-running conversion.  Also used to restart a
	// transfer that stopped.
	Start() error
	IsRunning() bool
}

// BlockSink receives each block synchronously.  The block is only valid
// for the duration of the call and may be modified.
type BlockSink func(block *Block)

type CaptureController struct {
	logger   *log.Logger
	dev      CapturePeripheral
	frontend *ReceiverFrontend
	cfg      CaptureConfig
	sink     BlockSink
	poll     time.Duration

	ring     RingBuffer
	block    Block
	current  int // Read cursor, in blocks.
	restarts atomic.Int64
	stats    *CaptureStats
}

func NewCaptureController(logger *log.Logger, dev CapturePeripheral, cfg CaptureConfig, sink BlockSink) *CaptureController {
	return &CaptureController{ //nolint:exhaustruct
		logger: logger,
		dev:    dev,
		cfg:    cfg,
		sink:   sink,
		poll:   DefaultCapturePoll,
	}
}

// SetFrontend attaches the receiver power/oscillator control.
func (c *CaptureController) SetFrontend(f *ReceiverFrontend) {
	c.frontend = f
}

func (c *CaptureController) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.poll = d
	}
}

func (c *CaptureController) SetStats(s *CaptureStats) {
	c.stats = s
}

// Ring is exposed for peripherals that need to be handed it directly.
func (c *CaptureController) Ring() *RingBuffer {
	return &c.ring
}

// Restarts may be read from any task.
func (c *CaptureController) Restarts() int {
	return int(c.restarts.Load())
}

// Init powers the receiver, arms the peripheral and starts conversion.
func (c *CaptureController) Init() error {
	if c.frontend != nil {
		if err := c.frontend.Enable(); err != nil {
			return fmt.Errorf("receiver front end: %w", err)
		}
	}

	c.ring.Reset()
	c.current = 0

	if err := c.dev.Arm(&c.ring, c.cfg); err != nil {
		return fmt.Errorf("arm capture: %w", err)
	}

	if err := c.dev.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	c.logger.Info("capture running", "rate", c.cfg.SampleRate, "clkdiv", c.cfg.ClockDiv,
		"block", BlockSize, "ring_blocks", RingBlocks)

	return nil
}

// Poll does one pass of the capture loop.  It reports how many blocks were
// delivered and whether the transfer was restarted, in which case the
// caller should poll again straight away.  Blocks completed before a
// transfer stopped are delivered before it is restarted.
func (c *CaptureController) Poll() (int, bool) {
	var running = c.dev.IsRunning()
	var delivered = c.deliver()

	if running {
		if c.stats != nil {
			c.stats.Add(delivered, false)
		}

		return delivered, false
	}

	var restarts = c.restarts.Add(1)

	if c.stats != nil {
		c.stats.Add(delivered, true)
	}

	// A failed restart waits for the next poll rather than spinning.
	if err := c.dev.Start(); err != nil {
		c.logger.Debug("capture restart failed", "err", err, "restarts", restarts)

		return delivered, false
	}

	c.logger.Debug("capture restarted", "restarts", restarts)

	return delivered, true
}

// deliver hands every complete block behind the write cursor to the sink.
func (c *CaptureController) deliver() int {
	var newest = c.ring.NewestBlock()
	var delivered = 0

	for c.current != newest {
		c.ring.CopyBlock(c.current, &c.block)
		c.current = (c.current + 1) % RingBlocks
		c.sink(&c.block)
		delivered++
	}

	return delivered
}

// Run is the capture task body.
func (c *CaptureController) Run(ctx context.Context, clk Clock) error {
	if err := c.Init(); err != nil {
		return err
	}

	defer c.shutdown()

	for {
		var _, restarted = c.Poll()
		if restarted {
			if ctx.Err() != nil {
				return nil
			}

			continue
		}

		if err := clk.Sleep(ctx, c.poll); err != nil {
			return nil //nolint:nilerr
		}
	}
}

func (c *CaptureController) shutdown() {
	if c.frontend == nil {
		return
	}

	if err := c.frontend.Disable(); err != nil {
		c.logger.Warn("receiver front end shutdown", "err", err)
	}
}

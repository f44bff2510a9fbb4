package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	The transmit and switch tasks.
 *
 * Description:	The switch task turns switch events into the transmit
 *		enable flag.  The transmit task walks the script table
 *		over and over while the flag is set, playing the
 *		scripts for its region with a short pause between them.
 *
 *		The flag is looked at before each script, so turning the
 *		switch off stops transmission after the current script.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultScriptPause = 25 * time.Millisecond
	DefaultIdleSleep   = 50 * time.Millisecond
)

type TxTask struct {
	logger    *log.Logger
	player    *TxScriptPlayer
	table     []IrScript
	region    Region
	enabled   *atomic.Bool
	indicator Indicator
	diag      *DiagSink
	clk       Clock

	Pause     time.Duration
	IdleSleep time.Duration

	played atomic.Uint64
}

func NewTxTask(logger *log.Logger, player *TxScriptPlayer, table []IrScript, region Region,
	enabled *atomic.Bool, indicator Indicator, diag *DiagSink, clk Clock,
) *TxTask {
	return &TxTask{ //nolint:exhaustruct
		logger:    logger,
		player:    player,
		table:     table,
		region:    region,
		enabled:   enabled,
		indicator: indicator,
		diag:      diag,
		clk:       clk,
		Pause:     DefaultScriptPause,
		IdleSleep: DefaultIdleSleep,
	}
}

// Played counts scripts played since start.
func (t *TxTask) Played() uint64 {
	return t.played.Load()
}

func (t *TxTask) setColor(c RGB) {
	if t.indicator == nil {
		return
	}

	if err := t.indicator.SetRGB(c); err != nil {
		t.logger.Debug("indicator", "err", err)
	}
}

// Run is the task body.  It returns when ctx is done.
func (t *TxTask) Run(ctx context.Context) error {
	if len(ScriptsForRegion(t.table, t.region)) == 0 {
		t.logger.Warn("no scripts for region", "region", t.region)
	}

	for ctx.Err() == nil {
		if !t.enabled.Load() {
			t.setColor(ColorIdle)

			if err := t.clk.Sleep(ctx, t.IdleSleep); err != nil {
				return nil //nolint:nilerr
			}

			continue
		}

		if t.Pass(ctx) == 0 {
			if err := t.clk.Sleep(ctx, t.IdleSleep); err != nil {
				return nil //nolint:nilerr
			}
		}
	}

	return nil
}

// Pass walks the table once and returns how many scripts it played.  It
// stops early if the flag is cleared or ctx is done, but never in the
// middle of a script.
func (t *TxTask) Pass(ctx context.Context) int {
	var n = 0

	for i := range t.table {
		var script = &t.table[i]

		if script.Region != t.region {
			continue
		}

		if !t.enabled.Load() || ctx.Err() != nil {
			return n
		}

		if t.diag != nil {
			t.diag.Script(i, script)
		}

		t.setColor(ColorBusy)

		if err := t.player.Play(ctx, script); err != nil {
			t.logger.Error("script failed", "index", i, "name", script.Name, "err", err)
		}

		n++
		t.played.Add(1)
		t.setColor(ColorIdle)

		if err := t.clk.Sleep(ctx, t.Pause); err != nil {
			return n
		}
	}

	return n
}

// RunSwitchTask copies switch positions into enabled until ctx is done.
func RunSwitchTask(ctx context.Context, logger *log.Logger, src SwitchSource, enabled *atomic.Bool, diag *DiagSink) error {
	for {
		var evt, err = src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		if diag != nil {
			diag.Switch(evt)
		}

		logger.Debug("switch", "num", evt.Num, "on", evt.On)

		enabled.Store(evt.On)
	}
}

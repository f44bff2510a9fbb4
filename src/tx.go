package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Play one IR script on the transmit LED.
 *
 * Description:	A script with no carrier drives the pin directly: on is
 *		high, off is low.  Otherwise a PWM at the carrier
 *		frequency is set up with 24 steps per period and the
 *		duty switched between half (on) and nothing (off).
 *
 *		Code durations are added to an absolute deadline rather
 *		than slept one by one, so scheduling jitter on one code
 *		is taken back on the next instead of accumulating.
 *
 *		Whatever happens, the pin ends up as a pulled down
 *		input so the LED cannot be left on.
 *
 *		Once started, a script is played to the end.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

const (
	SysClockHz = 125_000_000

	// Carrier PWM: counter wraps after 24 steps, half of them on.
	CarrierSteps = 24
	CarrierWrap  = CarrierSteps - 1
	TxDutyOn     = 12
	TxDutyOff    = 0

	// The divider is 8.4 fixed point, 1.0 to 255 + 15/16.
	dividerFracBits = 4
	minDivider16    = 1 << dividerFracBits
	maxDivider16    = 256<<dividerFracBits - 1
)

var ErrCarrierRange = errors.New("carrier frequency out of range")

// CarrierDivider is the PWM clock divider for a carrier, in 16ths.
type CarrierDivider struct {
	Div16 uint32
	Wrap  uint32
}

// CarrierDividerFor picks the nearest divider for freq Hz.
func CarrierDividerFor(freq uint32) (CarrierDivider, error) {
	if freq == 0 {
		return CarrierDivider{}, fmt.Errorf("%w: 0 Hz", ErrCarrierRange) //nolint:exhaustruct
	}

	var div = float64(SysClockHz) / CarrierSteps / float64(freq)
	var div16 = math.Round(div * (1 << dividerFracBits))

	if div16 < minDivider16 || div16 > maxDivider16 {
		return CarrierDivider{}, fmt.Errorf("%w: %d Hz", ErrCarrierRange, freq) //nolint:exhaustruct
	}

	return CarrierDivider{Div16: uint32(div16), Wrap: CarrierWrap}, nil
}

// Frequency is what the hardware will actually produce.
func (d CarrierDivider) Frequency() float64 {
	return float64(SysClockHz) * (1 << dividerFracBits) / float64(d.Div16) / float64(d.Wrap+1)
}

func (d CarrierDivider) Period() time.Duration {
	return periodOf(d.Frequency())
}

// TxOutput is the transmit pin.
type TxOutput interface {
	// ConfigureDirect makes the pin a plain output, low.
	ConfigureDirect() error
	SetLevel(on bool) error

	// ConfigureCarrier starts the carrier PWM with duty TxDutyOff.
	ConfigureCarrier(div CarrierDivider) error
	// SetDuty takes a level from 0 to Wrap+1.
	SetDuty(level uint32) error
	DisableCarrier() error

	// Release leaves the pin an input with the pull down on.
	Release() error
}

type TxScriptPlayer struct {
	logger *log.Logger
	out    TxOutput
	clk    Clock
}

func NewTxScriptPlayer(logger *log.Logger, out TxOutput, clk Clock) *TxScriptPlayer {
	return &TxScriptPlayer{logger: logger, out: out, clk: clk}
}

// Play plays script to completion.  Cancelling ctx has no effect once
// Play has been called.
func (p *TxScriptPlayer) Play(ctx context.Context, script *IrScript) (err error) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if rerr := p.out.Release(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release transmit pin: %w", rerr))
		}
	}()

	if script.Carrier == 0 {
		return p.playDirect(ctx, script)
	}

	return p.playCarrier(ctx, script)
}

func (p *TxScriptPlayer) playDirect(ctx context.Context, script *IrScript) error {
	if err := p.out.ConfigureDirect(); err != nil {
		return err
	}

	var deadline = p.clk.Now()

	for _, code := range script.Codes {
		if err := p.out.SetLevel(code.On); err != nil {
			return err
		}

		deadline = deadline.Add(code.Duration())

		if err := p.clk.SleepUntil(ctx, deadline); err != nil {
			return err
		}
	}

	return p.out.SetLevel(false)
}

func (p *TxScriptPlayer) playCarrier(ctx context.Context, script *IrScript) error {
	var div, err = CarrierDividerFor(script.Carrier)
	if err != nil {
		return err
	}

	p.logger.Debug("carrier", "requested", script.Carrier, "actual", fmt.Sprintf("%.1f", div.Frequency()),
		"div", float64(div.Div16)/(1<<dividerFracBits))

	if err := p.out.ConfigureCarrier(div); err != nil {
		return err
	}

	var deadline = p.clk.Now()

	for _, code := range script.Codes {
		if err := p.out.SetDuty(IfThenElse[uint32](code.On, TxDutyOn, TxDutyOff)); err != nil {
			return err
		}

		deadline = deadline.Add(code.Duration())

		if err := p.clk.SleepUntil(ctx, deadline); err != nil {
			return err
		}
	}

	return p.out.DisableCarrier()
}

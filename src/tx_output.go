package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Transmit pin backends.
 *
 * Description:	GPIOTxOutput drives the LED through a GPIO line for
 *		direct scripts and through a PWM channel for carrier
 *		scripts.  On boards where both reach the LED driver,
 *		the line is left as a pulled down input while the PWM
 *		is in use, and vice versa.
 *
 *		TxRecorder keeps a timeline of what the pin did, against
 *		a Clock.  The dry run mode, the beacon generator and the
 *		tests use it.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

var errNoCarrier = errors.New("no carrier PWM channel configured")

type GPIOTxOutput struct {
	spec   LineSpec
	line   gpioLine
	pwm    pwmChannel
	period time.Duration
	active bool // Carrier enabled.
}

// OpenGPIOTxOutput requests the line, released.  carrier may be
// unconnected, in which case carrier scripts fail.
func OpenGPIOTxOutput(spec LineSpec, carrier PWMSpec) (*GPIOTxOutput, error) {
	var line, err = requestLine(spec.Chip, spec.Line,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithConsumer("irblaster-tx"))
	if err != nil {
		return nil, fmt.Errorf("request transmit line %s: %w", spec, err)
	}

	var o = &GPIOTxOutput{spec: spec, line: line} //nolint:exhaustruct

	if carrier.Connected() {
		var pwm, perr = OpenSysfsPWM(carrier)
		if perr != nil {
			_ = line.Close()

			return nil, fmt.Errorf("carrier: %w", perr)
		}

		o.pwm = pwm
	}

	return o, nil
}

func (o *GPIOTxOutput) ConfigureDirect() error {
	return o.line.Reconfigure(gpiocdev.AsOutput(levelFor(false, o.spec.Invert)))
}

func (o *GPIOTxOutput) SetLevel(on bool) error {
	return o.line.SetValue(levelFor(on, o.spec.Invert))
}

func (o *GPIOTxOutput) ConfigureCarrier(div CarrierDivider) error {
	if o.pwm == nil {
		return errNoCarrier
	}

	o.period = div.Period()

	if err := o.pwm.Configure(o.period, 0); err != nil {
		return err
	}

	o.active = true

	return o.pwm.Enable(true)
}

func (o *GPIOTxOutput) SetDuty(level uint32) error {
	if o.pwm == nil {
		return errNoCarrier
	}

	return o.pwm.SetDuty(o.period * time.Duration(level) / CarrierSteps)
}

func (o *GPIOTxOutput) DisableCarrier() error {
	if o.pwm == nil || !o.active {
		return nil
	}

	o.active = false

	return errors.Join(o.pwm.SetDuty(0), o.pwm.Enable(false))
}

func (o *GPIOTxOutput) Release() error {
	// A carrier left running by an error path is stopped too.
	var err = o.DisableCarrier()

	return errors.Join(err, o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown))
}

func (o *GPIOTxOutput) Close() error {
	var err = o.Release()

	if o.pwm != nil {
		err = errors.Join(err, o.pwm.Close())
	}

	return errors.Join(err, o.line.Close())
}

type TxMode int

const (
	TxReleased TxMode = iota
	TxDirect
	TxCarrier
)

func (m TxMode) String() string {
	switch m {
	case TxReleased:
		return "released"
	case TxDirect:
		return "direct"
	case TxCarrier:
		return "carrier"
	default:
		return "unknown"
	}
}

// TxEvent is the pin state from At (since the recorder started) until
// the next event.
type TxEvent struct {
	At      time.Duration
	Mode    TxMode
	Level   bool    // Direct mode.
	Duty    uint32  // Carrier mode, 0 to CarrierSteps.
	Carrier float64 // Hz actually produced.
}

// Lit reports whether the LED is emitting at all.
func (e TxEvent) Lit() bool {
	switch e.Mode {
	case TxDirect:
		return e.Level
	case TxCarrier:
		return e.Duty > 0
	default:
		return false
	}
}

type TxRecorder struct {
	clk   Clock
	start time.Time

	mu     sync.Mutex
	state  TxEvent
	events []TxEvent
}

func NewTxRecorder(clk Clock) *TxRecorder {
	return &TxRecorder{clk: clk, start: clk.Now()} //nolint:exhaustruct
}

func (r *TxRecorder) record(update func(e *TxEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	update(&r.state)
	r.state.At = r.clk.Now().Sub(r.start)

	// Same instant: the later state wins.
	if n := len(r.events); n > 0 && r.events[n-1].At == r.state.At {
		r.events[n-1] = r.state

		return
	}

	r.events = append(r.events, r.state)
}

func (r *TxRecorder) ConfigureDirect() error {
	r.record(func(e *TxEvent) {
		*e = TxEvent{Mode: TxDirect} //nolint:exhaustruct
	})

	return nil
}

func (r *TxRecorder) SetLevel(on bool) error {
	r.record(func(e *TxEvent) { e.Level = on })

	return nil
}

func (r *TxRecorder) ConfigureCarrier(div CarrierDivider) error {
	r.record(func(e *TxEvent) {
		*e = TxEvent{Mode: TxCarrier, Carrier: div.Frequency()} //nolint:exhaustruct
	})

	return nil
}

func (r *TxRecorder) SetDuty(level uint32) error {
	r.record(func(e *TxEvent) { e.Duty = level })

	return nil
}

func (r *TxRecorder) DisableCarrier() error {
	r.record(func(e *TxEvent) { e.Duty = 0 })

	return nil
}

func (r *TxRecorder) Release() error {
	r.record(func(e *TxEvent) {
		*e = TxEvent{Mode: TxReleased} //nolint:exhaustruct
	})

	return nil
}

// Events returns a copy of the timeline.
func (r *TxRecorder) Events() []TxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]TxEvent(nil), r.events...)
}

// State is the current pin state.
func (r *TxRecorder) State() TxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Elapsed is the time since the recorder was created.
func (r *TxRecorder) Elapsed() time.Duration {
	return r.clk.Now().Sub(r.start)
}

// Reset forgets the timeline recorded so far.  The current state is kept
// and becomes the first event.
func (r *TxRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.At = r.clk.Now().Sub(r.start)
	r.events = append(r.events[:0], r.state)
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Power up the photodiode amplifier before capturing.
 *
 * Description:	The receiver board has an active low enable and a charge
 *		pump that needs a 50 kHz square wave.  Either can be
 *		left unconnected.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"time"
)

const (
	PumpFrequencyHz = 50_000
	PumpDutyPercent = 50
)

// pwmChannel is what the front end, buzzer and carrier need from a PWM.
type pwmChannel interface {
	Configure(period, duty time.Duration) error
	SetDuty(duty time.Duration) error
	Period() time.Duration
	Enable(on bool) error
	Close() error
}

type ReceiverFrontend struct {
	enable *OutputLine
	pump   pwmChannel
}

// NewReceiverFrontend takes either part as nil.
func NewReceiverFrontend(enable *OutputLine, pump pwmChannel) *ReceiverFrontend {
	return &ReceiverFrontend{enable: enable, pump: pump}
}

// OpenReceiverFrontend requests the hardware named in cfg.
func OpenReceiverFrontend(cfg ReceiveConfig) (*ReceiverFrontend, error) {
	var f = new(ReceiverFrontend)

	if cfg.Enable.Connected() {
		var line, err = OpenOutputLine(cfg.Enable, "irblaster-rx-enable")
		if err != nil {
			return nil, err
		}

		f.enable = line
	}

	if cfg.Pump.Connected() {
		var pwm, err = OpenSysfsPWM(cfg.Pump)
		if err != nil {
			_ = f.enable.Close()

			return nil, fmt.Errorf("charge pump: %w", err)
		}

		f.pump = pwm
	}

	return f, nil
}

func (f *ReceiverFrontend) Enable() error {
	if f.pump != nil {
		var period = periodOf(PumpFrequencyHz)

		if err := f.pump.Configure(period, period*PumpDutyPercent/100); err != nil {
			return err
		}

		if err := f.pump.Enable(true); err != nil {
			return err
		}
	}

	return f.enable.Set(true)
}

func (f *ReceiverFrontend) Disable() error {
	var err = f.enable.Set(false)

	if f.pump != nil {
		err = errors.Join(err, f.pump.Enable(false))
	}

	return err
}

func (f *ReceiverFrontend) Close() error {
	var err = f.Disable()

	if f.pump != nil {
		err = errors.Join(err, f.pump.Close())
	}

	return errors.Join(err, f.enable.Close())
}

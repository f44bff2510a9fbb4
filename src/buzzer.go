package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Buzzer feedback while a beacon is seen.
 *
 * Description:	The buzzer (a QMB-09B-05) peaks near 2.7 kHz.  It is
 *		driven by a PWM left running at that frequency, with the
 *		duty switched between 5 % and nothing.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
)

const (
	// 125 MHz / 45 / 1000.
	BuzzerFrequencyHz  = float64(SysClockHz) / 45 / 1000
	BuzzerDutyPermille = 50
)

type Buzzer struct {
	pwm pwmChannel
	on  bool
}

// NewBuzzer starts the PWM silent.
func NewBuzzer(pwm pwmChannel) (*Buzzer, error) {
	var period = periodOf(BuzzerFrequencyHz)

	if err := pwm.Configure(period, 0); err != nil {
		return nil, err
	}

	if err := pwm.Enable(true); err != nil {
		return nil, err
	}

	return &Buzzer{pwm: pwm, on: false}, nil
}

func OpenBuzzer(spec PWMSpec) (*Buzzer, error) {
	var pwm, err = OpenSysfsPWM(spec)
	if err != nil {
		return nil, err
	}

	return NewBuzzer(pwm)
}

// Sound turns the tone on or off.  Repeating the current state does
// nothing.
func (b *Buzzer) Sound(on bool) error {
	if b == nil || on == b.on {
		return nil
	}

	var duty = IfThenElse(on, b.pwm.Period()*BuzzerDutyPermille/1000, 0)

	if err := b.pwm.SetDuty(duty); err != nil {
		return err
	}

	b.on = on

	return nil
}

func (b *Buzzer) Close() error {
	if b == nil {
		return nil
	}

	return errors.Join(b.pwm.SetDuty(0), b.pwm.Close())
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	PWM channels through /sys/class/pwm.
 *
 * Description:	Used for the IR carrier, the buzzer and the receiver's
 *		charge pump oscillator.  The kernel interface takes the
 *		period and duty in nanoseconds; the duty must never
 *		exceed the period, so the order of writes matters when
 *		the period shrinks.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// PWMSpec names one channel.  An empty Chip means not connected.
type PWMSpec struct {
	Chip    string `yaml:"chip"` // e.g. /sys/class/pwm/pwmchip0
	Channel int    `yaml:"channel"`
}

func (s PWMSpec) Connected() bool {
	return s.Chip != ""
}

type SysfsPWM struct {
	dir    string
	period time.Duration
	duty   time.Duration
}

// How long to wait for the kernel to create the channel after export.
const pwmExportWait = 500 * time.Millisecond

func OpenSysfsPWM(spec PWMSpec) (*SysfsPWM, error) {
	var dir = filepath.Join(spec.Chip, "pwm"+strconv.Itoa(spec.Channel))

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		var export = filepath.Join(spec.Chip, "export")
		if err := os.WriteFile(export, []byte(strconv.Itoa(spec.Channel)), 0); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", spec.Channel, err)
		}

		var deadline = time.Now().Add(pwmExportWait)
		for {
			if _, err := os.Stat(dir); err == nil {
				break
			}

			if time.Now().After(deadline) {
				return nil, fmt.Errorf("pwm channel %s did not appear", dir)
			}

			time.Sleep(10 * time.Millisecond)
		}
	}

	var p = &SysfsPWM{dir: dir, period: 0, duty: 0}

	return p, nil
}

func (p *SysfsPWM) write(attr string, value string) error {
	if err := os.WriteFile(filepath.Join(p.dir, attr), []byte(value), 0); err != nil {
		return fmt.Errorf("pwm %s: %w", attr, err)
	}

	return nil
}

func nanos(d time.Duration) string {
	return strconv.FormatInt(d.Nanoseconds(), 10)
}

// Configure sets period and duty.
func (p *SysfsPWM) Configure(period, duty time.Duration) error {
	duty = min(duty, period)

	// Shrink the duty first if it would not fit the new period.
	if p.duty > period {
		if err := p.write("duty_cycle", "0"); err != nil {
			return err
		}

		p.duty = 0
	}

	if err := p.write("period", nanos(period)); err != nil {
		return err
	}

	p.period = period

	return p.SetDuty(duty)
}

func (p *SysfsPWM) SetDuty(duty time.Duration) error {
	duty = min(duty, p.period)

	if err := p.write("duty_cycle", nanos(duty)); err != nil {
		return err
	}

	p.duty = duty

	return nil
}

func (p *SysfsPWM) Period() time.Duration {
	return p.period
}

func (p *SysfsPWM) Enable(on bool) error {
	return p.write("enable", IfThenElse(on, "1", "0"))
}

// Close disables the output.  The channel stays exported.
func (p *SysfsPWM) Close() error {
	return p.Enable(false)
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Status colour.
 *
 * Description:	The board had one RGB LED: dim red while booting, dim
 *		green when idle, blue while a script plays.  Here it can
 *		be three GPIO lines (any channel above zero is lit) or
 *		just a log line when the colour changes.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

var (
	ColorBoot = RGB{R: 3, G: 0, B: 0}
	ColorIdle = RGB{R: 0, G: 3, B: 0}
	ColorBusy = RGB{R: 0, G: 0, B: 7}
)

type Indicator interface {
	SetRGB(c RGB) error
}

// LogIndicator logs colour changes at debug level.
type LogIndicator struct {
	logger *log.Logger

	mu   sync.Mutex
	last RGB
	set  bool
}

func NewLogIndicator(logger *log.Logger) *LogIndicator {
	return &LogIndicator{logger: logger} //nolint:exhaustruct
}

func (l *LogIndicator) SetRGB(c RGB) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.set && l.last == c {
		return nil
	}

	l.last = c
	l.set = true
	l.logger.Debug("indicator", "color", c)

	return nil
}

// Color is the last colour set.
func (l *LogIndicator) Color() RGB {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.last
}

type IndicatorConfig struct {
	Red   LineSpec `yaml:"red"`
	Green LineSpec `yaml:"green"`
	Blue  LineSpec `yaml:"blue"`
}

// GPIOIndicator drives one line per channel.  Unconnected channels are
// skipped.
type GPIOIndicator struct {
	r, g, b *OutputLine
}

func OpenGPIOIndicator(cfg IndicatorConfig) (*GPIOIndicator, error) {
	var ind = new(GPIOIndicator)

	var open = func(spec LineSpec, name string) (*OutputLine, error) {
		if !spec.Connected() {
			return nil, nil //nolint:nilnil
		}

		return OpenOutputLine(spec, "irblaster-led-"+name)
	}

	var err error

	if ind.r, err = open(cfg.Red, "red"); err != nil {
		return nil, err
	}

	if ind.g, err = open(cfg.Green, "green"); err != nil {
		_ = ind.Close()

		return nil, err
	}

	if ind.b, err = open(cfg.Blue, "blue"); err != nil {
		_ = ind.Close()

		return nil, err
	}

	return ind, nil
}

func (g *GPIOIndicator) SetRGB(c RGB) error {
	return errors.Join(g.r.Set(c.R > 0), g.g.Set(c.G > 0), g.b.Set(c.B > 0))
}

func (g *GPIOIndicator) Close() error {
	return errors.Join(g.r.Close(), g.g.Close(), g.b.Close())
}

// multiIndicator shows the colour on every indicator.
type multiIndicator []Indicator

func (m multiIndicator) SetRGB(c RGB) error {
	var errs []error
	for _, ind := range m {
		errs = append(errs, ind.SetRGB(c))
	}

	return errors.Join(errs...)
}

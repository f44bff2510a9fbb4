package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	GPIO output lines: transmit LED, receiver enable,
 *		indicator.
 *
 * Description:	Lines are requested through the GPIO character device.
 *		Each line can be inverted so that "active" does not have
 *		to mean "high" on every board.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// The part of *gpiocdev.Line we use.  Tests substitute their own.
type gpioLine interface {
	SetValue(value int) error
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

// LineSpec names one line.  A negative Line means not connected.
type LineSpec struct {
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
	Invert bool   `yaml:"invert"`
}

func (s LineSpec) Connected() bool {
	return s.Line >= 0
}

func (s LineSpec) String() string {
	return fmt.Sprintf("%s:%d", s.Chip, s.Line)
}

func DisconnectedLine() LineSpec {
	return LineSpec{Chip: "gpiochip0", Line: -1, Invert: false}
}

var requestLine = func(chip string, offset int, options ...gpiocdev.LineReqOption) (gpioLine, error) {
	return gpiocdev.RequestLine(chip, offset, options...)
}

type OutputLine struct {
	spec LineSpec
	line gpioLine
}

// OpenOutputLine requests the line as an output, initially inactive.
func OpenOutputLine(spec LineSpec, consumer string) (*OutputLine, error) {
	var line, err = requestLine(spec.Chip, spec.Line,
		gpiocdev.AsOutput(levelFor(false, spec.Invert)),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request %s line %s: %w", consumer, spec, err)
	}

	return &OutputLine{spec: spec, line: line}, nil
}

func levelFor(active bool, invert bool) int {
	if active != invert {
		return 1
	}

	return 0
}

// Set drives the line active or inactive.  A closed line is ignored.
func (o *OutputLine) Set(active bool) error {
	if o == nil || o.line == nil {
		return nil
	}

	return o.line.SetValue(levelFor(active, o.spec.Invert))
}

func (o *OutputLine) Close() error {
	if o == nil || o.line == nil {
		return nil
	}

	var err = o.line.Close()
	o.line = nil

	return err
}

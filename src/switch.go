package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Read the enable switch.
 *
 * Description:	The switch is a GPIO input watched for both edges with
 *		the kernel doing the debouncing.  Edge events arrive on
 *		a gpiocdev goroutine and are queued for the switch
 *		task; if the task falls behind, the oldest news is the
 *		least useful so new events are dropped only when the
 *		queue is full.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const (
	DefaultSwitchDebounce = 10 * time.Millisecond

	switchQueueLen = 16
)

// SwitchEvent is one change of a switch.  On is the new position.
type SwitchEvent struct {
	Num int
	On  bool
}

type SwitchSource interface {
	// Read blocks until the next event.
	Read(ctx context.Context) (SwitchEvent, error)
}

type SwitchConfig struct {
	Line     LineSpec      `yaml:"line"`
	Pull     string        `yaml:"pull"` // up, down or none.
	Debounce time.Duration `yaml:"debounce"`
}

// GPIOSwitch is one switch on one line.
type GPIOSwitch struct {
	num    int
	line   gpioLine
	events chan SwitchEvent
}

// requestEventLine is requestLine for inputs with an event handler.  It is
// separate so tests can deliver edges themselves.
var requestEventLine = func(chip string, offset int, handler func(gpiocdev.LineEvent), options ...gpiocdev.LineReqOption) (gpioLine, error) {
	options = append(options, gpiocdev.WithEventHandler(handler))

	return gpiocdev.RequestLine(chip, offset, options...)
}

func OpenGPIOSwitch(num int, cfg SwitchConfig) (*GPIOSwitch, error) {
	var s = &GPIOSwitch{num: num, line: nil, events: make(chan SwitchEvent, switchQueueLen)}

	var options = []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("irblaster-switch"),
	}

	if cfg.Debounce > 0 {
		options = append(options, gpiocdev.WithDebounce(cfg.Debounce))
	}

	if cfg.Line.Invert {
		options = append(options, gpiocdev.AsActiveLow)
	}

	switch cfg.Pull {
	case "up":
		options = append(options, gpiocdev.WithPullUp)
	case "down":
		options = append(options, gpiocdev.WithPullDown)
	case "", "none":
	default:
		return nil, fmt.Errorf("switch pull %q: want up, down or none", cfg.Pull)
	}

	var line, err = requestEventLine(cfg.Line.Chip, cfg.Line.Line, s.handle, options...)
	if err != nil {
		return nil, fmt.Errorf("request switch line %s: %w", cfg.Line, err)
	}

	s.line = line

	return s, nil
}

// handle runs on the gpiocdev event goroutine.
func (s *GPIOSwitch) handle(evt gpiocdev.LineEvent) {
	s.push(SwitchEvent{Num: s.num, On: evt.Type == gpiocdev.LineEventRisingEdge})
}

func (s *GPIOSwitch) push(evt SwitchEvent) {
	select {
	case s.events <- evt:
	default:
	}
}

func (s *GPIOSwitch) Read(ctx context.Context) (SwitchEvent, error) {
	select {
	case <-ctx.Done():
		return SwitchEvent{}, ctx.Err() //nolint:exhaustruct
	case evt := <-s.events:
		return evt, nil
	}
}

func (s *GPIOSwitch) Close() error {
	return s.line.Close()
}

// ScriptedSwitch replays a fixed list of events, each after a delay, then
// blocks.  Used for dry runs and tests.
type ScriptedSwitch struct {
	clk    Clock
	events []SwitchEvent
	delays []time.Duration
}

func NewScriptedSwitch(clk Clock) *ScriptedSwitch {
	return &ScriptedSwitch{clk: clk, events: nil, delays: nil}
}

// After queues evt to be read delay after the previous one.
func (s *ScriptedSwitch) After(delay time.Duration, evt SwitchEvent) *ScriptedSwitch {
	s.events = append(s.events, evt)
	s.delays = append(s.delays, delay)

	return s
}

func (s *ScriptedSwitch) Read(ctx context.Context) (SwitchEvent, error) {
	if len(s.events) == 0 {
		<-ctx.Done()

		return SwitchEvent{}, ctx.Err() //nolint:exhaustruct
	}

	if err := s.clk.Sleep(ctx, s.delays[0]); err != nil {
		return SwitchEvent{}, err //nolint:exhaustruct
	}

	var evt = s.events[0]
	s.events, s.delays = s.events[1:], s.delays[1:]

	return evt, nil
}

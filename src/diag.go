package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Diagnostic text output.
 *
 * Description:	One line per received block (the energy bar), one per
 *		switch change and one per script played.  Lines can be
 *		prefixed with a strftime time stamp and go to any number
 *		of writers.
 *
 *		Slow writers (serial ports, network clients) get a
 *		queue and their own goroutine; a full queue drops the
 *		line rather than stall the capture task.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

const DefaultDiagQueue = 256

type diagWriter struct {
	name  string
	w     io.Writer
	queue chan string // nil for synchronous writers.
}

type DiagSink struct {
	logger *log.Logger
	clk    Clock
	stamp  *strftime.Strftime

	mu      sync.Mutex
	writers []*diagWriter
	wg      sync.WaitGroup
	closed  bool
	dropped atomic.Uint64
}

// NewDiagSink makes a sink with no writers.  An empty timestampFormat
// means no time stamps.
func NewDiagSink(logger *log.Logger, clk Clock, timestampFormat string) (*DiagSink, error) {
	var d = &DiagSink{logger: logger, clk: clk} //nolint:exhaustruct

	if timestampFormat != "" {
		var stamp, err = strftime.New(timestampFormat)
		if err != nil {
			return nil, fmt.Errorf("timestamp format %q: %w", timestampFormat, err)
		}

		d.stamp = stamp
	}

	return d, nil
}

// AddWriter writes lines to w from the caller's goroutine.
func (d *DiagSink) AddWriter(name string, w io.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writers = append(d.writers, &diagWriter{name: name, w: w, queue: nil})
}

// AddQueuedWriter writes lines to w from a goroutine of its own, dropping
// lines when more than queue are waiting.
func (d *DiagSink) AddQueuedWriter(name string, w io.Writer, queue int) {
	var dw = &diagWriter{name: name, w: w, queue: make(chan string, max(queue, 1))}

	d.mu.Lock()
	d.writers = append(d.writers, dw)
	d.mu.Unlock()

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		var failed = false

		for line := range dw.queue {
			if _, err := io.WriteString(dw.w, line); err != nil && !failed {
				d.logger.Warn("diagnostic output failed", "writer", dw.name, "err", err)
				failed = true
			}
		}
	}()
}

func (d *DiagSink) Printf(format string, a ...any) {
	var line = fmt.Sprintf(format, a...)
	if d.stamp != nil {
		line = d.stamp.FormatString(d.clk.Now()) + line
	}

	line += "\n"

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	for _, dw := range d.writers {
		if dw.queue == nil {
			_, _ = io.WriteString(dw.w, line)

			continue
		}

		select {
		case dw.queue <- line:
		default:
			d.dropped.Add(1)
		}
	}
}

// Block shows one block's energy as a bar.
func (d *DiagSink) Block(e *Energy) {
	d.Printf("%s", e.Render())
}

func (d *DiagSink) Switch(evt SwitchEvent) {
	d.Printf("sw: num=%d, sw=%d", evt.Num, IfThenElse(evt.On, 1, 0))
}

// Script announces table entry index about to be played.
func (d *DiagSink) Script(index int, script *IrScript) {
	d.Printf("tx: ir_script_%03d (freq=%d)", index, script.Carrier)
}

// Dropped is the number of lines lost to full queues.
func (d *DiagSink) Dropped() uint64 {
	return d.dropped.Load()
}

// Close flushes the queued writers.  Later lines are discarded.
func (d *DiagSink) Close() {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true

	for _, dw := range d.writers {
		if dw.queue != nil {
			close(dw.queue)
		}
	}

	d.mu.Unlock()

	d.wg.Wait()
}

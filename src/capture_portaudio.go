package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Capture the photodiode through a sound card.
 *
 * Description:	A 192 kHz capable sound card input can stand in for the
 *		ADC.  A reader goroutine plays the part of the DMA
 *		channel, writing every buffer into the ring.  When it
 *		exits the capture counts as stopped and the controller
 *		restarts it.
 *
 *		Input overflows lose samples but are not fatal, the
 *		same as a ring overrun.
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// inputStream is the part of *portaudio.Stream we use.
type inputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// openInputStream initialises PortAudio and opens a mono input stream that
// reads into buf.  terminateAudio undoes the initialisation.
var openInputStream = func(rate int, buf []int16) (inputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	var stream, err = portaudio.OpenDefaultStream(1, 0, float64(rate), len(buf), buf)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("open input stream at %d Hz: %w", rate, err)
	}

	return stream, nil
}

var terminateAudio = portaudio.Terminate

type PortAudioCapture struct {
	logger *log.Logger

	mu       sync.Mutex
	stream   inputStream
	buf      []int16
	ring     *RingBuffer
	running  atomic.Bool
	stopping atomic.Bool
	readers  sync.WaitGroup
}

func NewPortAudioCapture(logger *log.Logger) *PortAudioCapture {
	return &PortAudioCapture{logger: logger} //nolint:exhaustruct
}

func (p *PortAudioCapture) Arm(ring *RingBuffer, cfg CaptureConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		p.buf = make([]int16, BlockSize)

		var stream, err = openInputStream(cfg.SampleRate, p.buf)
		if err != nil {
			return err
		}

		p.stream = stream
		p.stopping.Store(false)
	}

	p.ring = ring

	return nil
}

func (p *PortAudioCapture) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || p.ring == nil {
		return errNotArmed
	}

	if p.running.Load() {
		return nil
	}

	// The previous reader, if any, has returned but may not have
	// finished unwinding.
	p.readers.Wait()

	// Harmless if it was never started.
	_ = p.stream.Stop()

	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}

	p.running.Store(true)
	p.readers.Add(1)

	go p.reader(p.stream, p.ring)

	return nil
}

func (p *PortAudioCapture) IsRunning() bool {
	return p.running.Load()
}

// reader copies buffers into the ring until the stream fails or Close
// asks it to stop.  A read in progress is always allowed to finish: the
// stream must not be stopped underneath it.
func (p *PortAudioCapture) reader(stream inputStream, ring *RingBuffer) {
	defer p.readers.Done()
	defer p.running.Store(false)

	for !p.stopping.Load() {
		var err = stream.Read()

		if errors.Is(err, portaudio.InputOverflowed) {
			p.logger.Debug("sound card input overflowed")
		} else if err != nil {
			p.logger.Warn("sound card read failed", "err", err)

			return
		}

		ring.Write(p.buf)
	}
}

// Close waits for the reader to finish its last buffer, then stops the
// stream and releases PortAudio.
func (p *PortAudioCapture) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	p.stopping.Store(true)
	p.readers.Wait()

	var err = errors.Join(p.stream.Stop(), p.stream.Close(), terminateAudio())
	p.stream = nil

	return err
}

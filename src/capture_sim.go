package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Capture peripheral without hardware.
 *
 * Description:	SimCapture copies samples from a SampleSource into the
 *		ring, either when told to (Fill, used by tests and the
 *		offline tools) or paced at the sample rate on a clock
 *		(Run, used by the daemon).
 *
 *		Raw capture files are signed 16 bit little endian
 *		samples, nothing else.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var ErrSourceExhausted = errors.New("sample source exhausted")

var errNotArmed = errors.New("capture not armed")

// SampleSource produces raw samples.  io.EOF ends the stream.
type SampleSource interface {
	ReadSamples(p []int16) (int, error)
}

type SimCapture struct {
	mu        sync.Mutex
	src       SampleSource
	ring      *RingBuffer
	running   atomic.Bool
	exhausted bool
	buf       []int16
}

func NewSimCapture(src SampleSource) *SimCapture {
	return &SimCapture{src: src, buf: make([]int16, BlockSize)} //nolint:exhaustruct
}

// Arm ignores the clock settings: the samples come at whatever rate they
// were recorded.
func (s *SimCapture) Arm(ring *RingBuffer, _ CaptureConfig) error {
	if s.src == nil {
		return errors.New("no sample source")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring = ring
	s.running.Store(false)

	return nil
}

func (s *SimCapture) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ring == nil {
		return errNotArmed
	}

	if s.exhausted {
		return ErrSourceExhausted
	}

	s.running.Store(true)

	return nil
}

func (s *SimCapture) IsRunning() bool {
	return s.running.Load()
}

// Stall stops the transfer, as if the DMA channel had gone idle.
func (s *SimCapture) Stall() {
	s.running.Store(false)
}

// Fill moves up to n samples from the source into the ring.  Nothing is
// moved while stalled.  At the end of the source the capture stops and
// ErrSourceExhausted is returned along with the samples that did make it.
func (s *SimCapture) Fill(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return 0, nil
	}

	var total = 0

	for total < n {
		var want = min(n-total, len(s.buf))
		var got, err = s.src.ReadSamples(s.buf[:want])

		s.ring.Write(s.buf[:got])
		total += got

		if errors.Is(err, io.EOF) {
			s.exhausted = true
			s.running.Store(false)

			return total, ErrSourceExhausted
		}

		if err != nil {
			s.running.Store(false)

			return total, fmt.Errorf("sample source: %w", err)
		}

		if got == 0 {
			break
		}
	}

	return total, nil
}

// Run feeds chunk samples at a time, paced to rate samples a second.
// It returns when the source is exhausted or ctx is cancelled.  The rate
// is passed in because Run may start before the controller arms us.
func (s *SimCapture) Run(ctx context.Context, clk Clock, chunk int, rate int) error {
	if rate <= 0 {
		rate = SampleRateHz
	}

	var period = time.Duration(chunk) * time.Second / time.Duration(rate)
	var deadline = clk.Now()

	for {
		var _, err = s.Fill(chunk)
		if errors.Is(err, ErrSourceExhausted) {
			return nil
		}

		if err != nil {
			return err
		}

		deadline = deadline.Add(period)

		if err := clk.SleepUntil(ctx, deadline); err != nil {
			return nil //nolint:nilerr
		}
	}
}

// FileSource reads raw int16 little endian samples.  With loop set and a
// seekable reader it starts over at the end instead of returning io.EOF.
type FileSource struct {
	r    io.Reader
	loop bool
	raw  []byte
}

func NewFileSource(r io.Reader, loop bool) *FileSource {
	return &FileSource{r: r, loop: loop, raw: nil}
}

func (f *FileSource) ReadSamples(p []int16) (int, error) {
	if cap(f.raw) < 2*len(p) {
		f.raw = make([]byte, 2*len(p))
	}

	var raw = f.raw[:2*len(p)]
	var n, err = io.ReadFull(f.r, raw)

	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	var count = n / 2
	for i := range count {
		p[i] = int16(binary.LittleEndian.Uint16(raw[2*i:])) //nolint:gosec
	}

	if errors.Is(err, io.EOF) && f.loop {
		if seeker, ok := f.r.(io.Seeker); ok {
			if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
				return count, fmt.Errorf("rewind: %w", seekErr)
			}

			return count, nil
		}
	}

	return count, err
}

// WriteSamples writes raw int16 little endian samples, the format
// FileSource reads.
func WriteSamples(w io.Writer, p []int16) error {
	return binary.Write(w, binary.LittleEndian, p)
}

package irblaster

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInputStream takes a little while over each Read, like a sound card
// waiting for a buffer, and notes any Stop or Close during one.
type fakeInputStream struct {
	buf      []int16
	reading  atomic.Bool
	reads    atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Bool
	failNext atomic.Bool
}

func (f *fakeInputStream) Start() error {
	return nil
}

func (f *fakeInputStream) Read() error {
	f.reading.Store(true)
	defer f.reading.Store(false)

	if f.closed.Load() {
		f.overlap.Store(true)
	}

	time.Sleep(2 * time.Millisecond)

	for i := range f.buf {
		f.buf[i] = 7
	}

	f.reads.Add(1)

	if f.failNext.CompareAndSwap(true, false) {
		return errors.New("device unplugged")
	}

	return nil
}

func (f *fakeInputStream) Stop() error {
	if f.reading.Load() {
		f.overlap.Store(true)
	}

	return nil
}

func (f *fakeInputStream) Close() error {
	if f.reading.Load() {
		f.overlap.Store(true)
	}

	f.closed.Store(true)

	return nil
}

func setupFakeAudio(t *testing.T) (*fakeInputStream, *atomic.Bool) {
	t.Helper()

	var stream = new(fakeInputStream)
	var terminated = new(atomic.Bool)

	var oldOpen, oldTerminate = openInputStream, terminateAudio

	openInputStream = func(_ int, buf []int16) (inputStream, error) {
		stream.buf = buf

		return stream, nil
	}
	terminateAudio = func() error {
		terminated.Store(true)

		return nil
	}

	t.Cleanup(func() {
		openInputStream, terminateAudio = oldOpen, oldTerminate
	})

	return stream, terminated
}

func TestPortAudioCapture_CloseWaitsForReader(t *testing.T) {
	var stream, terminated = setupFakeAudio(t)

	var delivered atomic.Int32

	var pa = NewPortAudioCapture(testLogger())
	var ctl = NewCaptureController(testLogger(), pa, DefaultCaptureConfig(), func(b *Block) {
		assert.Equal(t, int16(7), b[0])
		delivered.Add(1)
	})

	require.NoError(t, ctl.Init())

	assert.Eventually(t, func() bool {
		ctl.Poll()

		return delivered.Load() >= 2
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, pa.Close())

	assert.False(t, stream.overlap.Load(), "stream stopped or closed during a read")
	assert.True(t, stream.closed.Load())
	assert.True(t, terminated.Load())
	assert.False(t, pa.IsRunning())

	var reads = stream.reads.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reads, stream.reads.Load(), "no reads after Close")

	// Closing twice is harmless.
	assert.NoError(t, pa.Close())
}

func TestPortAudioCapture_RestartAfterReadError(t *testing.T) {
	var stream, _ = setupFakeAudio(t)
	stream.failNext.Store(true)

	var pa = NewPortAudioCapture(testLogger())
	var ctl = NewCaptureController(testLogger(), pa, DefaultCaptureConfig(), func(*Block) {})

	require.NoError(t, ctl.Init())

	assert.Eventually(t, func() bool { return !pa.IsRunning() }, 5*time.Second, time.Millisecond)

	var _, restarted = ctl.Poll()
	assert.True(t, restarted)
	assert.Equal(t, 1, ctl.Restarts())
	assert.True(t, pa.IsRunning())

	require.NoError(t, pa.Close())
	assert.False(t, stream.overlap.Load())
}

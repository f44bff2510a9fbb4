package irblaster

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockNumberSource fills every sample of block n with n, and stops after
// limit samples if limit is positive.
type blockNumberSource struct {
	n     int
	limit int
}

func (s *blockNumberSource) ReadSamples(p []int16) (int, error) {
	for i := range p {
		if s.limit > 0 && s.n >= s.limit {
			return i, io.EOF
		}

		p[i] = int16(s.n / BlockSize) //nolint:gosec
		s.n++
	}

	return len(p), nil
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel}) //nolint:exhaustruct
}

func newTestCapture(t *testing.T, src SampleSource) (*CaptureController, *SimCapture, *[]int16) {
	t.Helper()

	var got []int16
	var sim = NewSimCapture(src)

	var ctl = NewCaptureController(testLogger(), sim, DefaultCaptureConfig(), func(b *Block) {
		for _, v := range b {
			if v != b[0] {
				t.Errorf("block %d is torn: found %d", b[0], v)

				break
			}
		}

		got = append(got, b[0])
	})

	require.NoError(t, ctl.Init())

	return ctl, sim, &got
}

func TestCapture_DeliversInOrderExactlyOnce(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, new(blockNumberSource))

	const blocks = 3*RingBlocks + 5

	for range blocks {
		var _, err = sim.Fill(BlockSize)
		require.NoError(t, err)

		var n, restarted = ctl.Poll()
		assert.Equal(t, 1, n)
		assert.False(t, restarted)
	}

	require.Len(t, *got, blocks)

	for i, v := range *got {
		assert.Equal(t, int16(i), v) //nolint:gosec
	}

	// Nothing new, nothing delivered.
	var n, _ = ctl.Poll()
	assert.Equal(t, 0, n)
}

func TestCapture_SeveralBlocksPerPoll(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, new(blockNumberSource))

	var _, err = sim.Fill(5 * BlockSize)
	require.NoError(t, err)

	var n, _ = ctl.Poll()
	assert.Equal(t, 5, n)
	assert.Equal(t, []int16{0, 1, 2, 3, 4}, *got)
}

// Falling a whole lap behind loses the overwritten blocks without a word.
func TestCapture_OverrunIsSilent(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, new(blockNumberSource))

	var _, err = sim.Fill((RingBlocks + 1) * BlockSize)
	require.NoError(t, err)

	var n, restarted = ctl.Poll()
	assert.Equal(t, 1, n)
	assert.False(t, restarted)

	// Slot 0 now holds the seventeenth block.
	assert.Equal(t, []int16{RingBlocks}, *got)
	assert.Equal(t, 0, ctl.Restarts())
}

func TestCapture_StallRestarts(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, new(blockNumberSource))

	sim.Stall()
	assert.False(t, sim.IsRunning())

	// Nothing is captured while stalled.
	var filled, _ = sim.Fill(BlockSize)
	assert.Equal(t, 0, filled)

	var n, restarted = ctl.Poll()
	assert.Equal(t, 0, n)
	assert.True(t, restarted)
	assert.Equal(t, 1, ctl.Restarts())
	assert.True(t, sim.IsRunning())

	var _, err = sim.Fill(BlockSize)
	require.NoError(t, err)

	n, restarted = ctl.Poll()
	assert.Equal(t, 1, n)
	assert.False(t, restarted)
	assert.Equal(t, []int16{0}, *got)
}

func TestCapture_FailedRestart(t *testing.T) {
	var ctl, sim, _ = newTestCapture(t, &blockNumberSource{n: 0, limit: BlockSize / 2})

	var filled, err = sim.Fill(BlockSize)
	require.ErrorIs(t, err, ErrSourceExhausted)
	assert.Equal(t, BlockSize/2, filled)

	var n, restarted = ctl.Poll()
	assert.Equal(t, 0, n)
	assert.False(t, restarted, "a failed restart is not reported as a restart")
	assert.Equal(t, 1, ctl.Restarts())
}

// Blocks completed before the source ran dry are still delivered, even
// though the transfer cannot be restarted.
func TestCapture_DrainsBeforeRestart(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, &blockNumberSource{n: 0, limit: 5 * BlockSize / 2})

	var _, err = sim.Fill(3 * BlockSize)
	require.ErrorIs(t, err, ErrSourceExhausted)
	assert.False(t, sim.IsRunning())

	var n, restarted = ctl.Poll()
	assert.Equal(t, 2, n)
	assert.False(t, restarted)
	assert.Equal(t, []int16{0, 1}, *got)
	assert.Equal(t, 1, ctl.Restarts())

	n, _ = ctl.Poll()
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, ctl.Restarts())
}

func TestCapture_StallDeliversPendingBlocks(t *testing.T) {
	var ctl, sim, got = newTestCapture(t, new(blockNumberSource))

	var _, err = sim.Fill(2 * BlockSize)
	require.NoError(t, err)
	sim.Stall()

	var n, restarted = ctl.Poll()
	assert.Equal(t, 2, n)
	assert.True(t, restarted)
	assert.Equal(t, []int16{0, 1}, *got)
}

// The stats task reads the restart count and presence while the capture
// task runs.  Run with -race.
func TestCapture_CountersReadFromAnotherTask(t *testing.T) {
	var presence = NewPresenceDetector(PresenceConfig{Threshold: 0, On: 1, Off: 0}, nil)

	var sim = NewSimCapture(new(blockNumberSource))
	var ctl = NewCaptureController(testLogger(), sim, DefaultCaptureConfig(), func(b *Block) {
		var e Energy
		e[0] = b[0]
		presence.Add(&e)
	})
	ctl.SetPollInterval(time.Millisecond)

	var ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var runErr error

	wg.Add(2)

	go func() {
		defer wg.Done()

		runErr = ctl.Run(ctx, SystemClock{})
	}()

	go func() {
		defer wg.Done()

		for ctx.Err() == nil {
			_, _ = sim.Fill(BlockSize)
			sim.Stall()
			time.Sleep(time.Millisecond)
		}
	}()

	var restarts = 0

	for ctx.Err() == nil {
		restarts = max(restarts, ctl.Restarts())
		_ = presence.Present()
	}

	wg.Wait()

	require.NoError(t, runErr)
	assert.Positive(t, ctl.Restarts())
	assert.GreaterOrEqual(t, ctl.Restarts(), restarts)
	assert.True(t, presence.Present())
}

func TestSimCapture_RunPacesAtGivenRate(t *testing.T) {
	var start = time.Unix(0, 0)

	for _, tc := range []struct {
		rate int
		want time.Duration
	}{
		{1000, time.Second},
		{0, 10 * (100 * time.Second / SampleRateHz)},
	} {
		var _, sim, got = newTestCapture(t, &blockNumberSource{n: 0, limit: 1000})
		var clk = NewVirtualClock(start)

		require.NoError(t, sim.Run(context.Background(), clk, 100, tc.rate))

		assert.Equal(t, tc.want, clk.Now().Sub(start), "rate %d", tc.rate)
		assert.Empty(t, *got, "nothing polled")
	}
}

func TestCapture_RunStopsWithContext(t *testing.T) {
	var sim = NewSimCapture(new(blockNumberSource))
	var ctl = NewCaptureController(testLogger(), sim, DefaultCaptureConfig(), func(*Block) {})
	ctl.SetPollInterval(time.Millisecond)

	var ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, ctl.Run(ctx, SystemClock{}))
}

func TestCapture_RunEnablesFrontend(t *testing.T) {
	var lines = setupMockLines(t)

	var enable, err = OpenOutputLine(LineSpec{Chip: "gpiochip0", Line: 3, Invert: true}, "test")
	require.NoError(t, err)

	var pump = new(fakePWM)

	var sim = NewSimCapture(new(blockNumberSource))
	var ctl = NewCaptureController(testLogger(), sim, DefaultCaptureConfig(), func(*Block) {})
	ctl.SetFrontend(NewReceiverFrontend(enable, pump))
	ctl.SetPollInterval(time.Millisecond)

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, ctl.Run(ctx, SystemClock{}))

	// Active low: enabled at start, released on the way out.
	var values = (*lines)[0].values
	require.GreaterOrEqual(t, len(values), 2)
	assert.Equal(t, 0, values[0])
	assert.Equal(t, 1, values[len(values)-1])

	assert.Equal(t, periodOf(PumpFrequencyHz), pump.period)
	assert.False(t, pump.enabled)
}

func TestFileSource_RoundTrip(t *testing.T) {
	var buf = new(sampleBuffer)
	require.NoError(t, WriteSamples(buf, []int16{1, -2, 300, -32768, 32767}))

	var src = NewFileSource(buf, false)
	var p = make([]int16, 8)

	var n, err = src.ReadSamples(p)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []int16{1, -2, 300, -32768, 32767}, p[:n])
}

// sampleBuffer is a bytes.Buffer that can rewind, for the loop test.
type sampleBuffer struct {
	data []byte
	off  int
}

func (b *sampleBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)

	return len(p), nil
}

func (b *sampleBuffer) Read(p []byte) (int, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}

	var n = copy(p, b.data[b.off:])
	b.off += n

	return n, nil
}

func (b *sampleBuffer) Seek(offset int64, _ int) (int64, error) {
	b.off = int(offset)

	return offset, nil
}

func TestFileSource_Loop(t *testing.T) {
	var buf = new(sampleBuffer)
	require.NoError(t, WriteSamples(buf, []int16{1, 2, 3}))

	var src = NewFileSource(buf, true)
	var p = make([]int16, 2)

	var n, err = src.ReadSamples(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, p[:n])

	// Short read at the end, then round again.
	n, err = src.ReadSamples(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{3}, p[:n])

	n, err = src.ReadSamples(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, p[:n])
}

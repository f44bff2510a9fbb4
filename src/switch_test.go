package irblaster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"
)

// setupMockEventLine replaces requestEventLine and hands back the handler
// the switch installed, so a test can deliver edges.
func setupMockEventLine(t *testing.T) (*func(gpiocdev.LineEvent), *mockGPIOLine) {
	t.Helper()

	var handler func(gpiocdev.LineEvent)
	var line = new(mockGPIOLine)
	var saved = requestEventLine

	requestEventLine = func(_ string, _ int, h func(gpiocdev.LineEvent), _ ...gpiocdev.LineReqOption) (gpioLine, error) {
		handler = h

		return line, nil
	}

	t.Cleanup(func() {
		requestEventLine = saved
	})

	return &handler, line
}

func edge(rising bool) gpiocdev.LineEvent {
	return gpiocdev.LineEvent{ //nolint:exhaustruct
		Type: IfThenElse(rising, gpiocdev.LineEventRisingEdge, gpiocdev.LineEventFallingEdge),
	}
}

func TestGPIOSwitch_Edges(t *testing.T) {
	var handler, line = setupMockEventLine(t)

	var sw, err = OpenGPIOSwitch(2, DefaultConfig().Switch)
	require.NoError(t, err)
	require.NotNil(t, *handler)

	(*handler)(edge(true))
	(*handler)(edge(false))

	var ctx = context.Background()

	var evt, rerr = sw.Read(ctx)
	require.NoError(t, rerr)
	assert.Equal(t, SwitchEvent{Num: 2, On: true}, evt)

	evt, rerr = sw.Read(ctx)
	require.NoError(t, rerr)
	assert.Equal(t, SwitchEvent{Num: 2, On: false}, evt)

	require.NoError(t, sw.Close())
	assert.True(t, line.closed)
}

func TestGPIOSwitch_QueueFullDrops(t *testing.T) {
	var handler, _ = setupMockEventLine(t)

	var sw, err = OpenGPIOSwitch(0, DefaultConfig().Switch)
	require.NoError(t, err)

	for range switchQueueLen + 5 {
		(*handler)(edge(true))
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var n = 0
	for {
		if _, err := sw.Read(ctx); err != nil {
			assert.ErrorIs(t, err, context.DeadlineExceeded)

			break
		}

		n++
	}

	assert.Equal(t, switchQueueLen, n)
}

func TestGPIOSwitch_BadPull(t *testing.T) {
	setupMockEventLine(t)

	var cfg = DefaultConfig().Switch
	cfg.Pull = "sideways"

	var _, err = OpenGPIOSwitch(0, cfg)
	assert.Error(t, err)
}

func TestScriptedSwitch(t *testing.T) {
	var clk = NewVirtualClock(time.Unix(0, 0))
	var sw = NewScriptedSwitch(clk).
		After(10*time.Millisecond, SwitchEvent{Num: 0, On: true}).
		After(5*time.Millisecond, SwitchEvent{Num: 0, On: false})

	var ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var evt, err = sw.Read(ctx)
	require.NoError(t, err)
	assert.True(t, evt.On)
	assert.Equal(t, time.Unix(0, 0).Add(10*time.Millisecond), clk.Now())

	evt, err = sw.Read(ctx)
	require.NoError(t, err)
	assert.False(t, evt.On)
	assert.Equal(t, time.Unix(0, 0).Add(15*time.Millisecond), clk.Now())

	// Nothing left: blocks until the context ends.
	_, err = sw.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

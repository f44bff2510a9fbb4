package irblaster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"
)

// mockGPIOLine is a test double for gpioLine that records calls
// without requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIOLine struct {
	value        int
	values       []int
	reconfigured int
	closed       bool
}

func (m *mockGPIOLine) SetValue(v int) error {
	m.value = v
	m.values = append(m.values, v)

	return nil
}

func (m *mockGPIOLine) Reconfigure(_ ...gpiocdev.LineConfigOption) error {
	m.reconfigured++

	return nil
}

func (m *mockGPIOLine) Close() error {
	m.closed = true

	return nil
}

// setupMockLines replaces requestLine so every request gets a fresh mock,
// returned in request order.  The test's Cleanup restores the real one.
func setupMockLines(t *testing.T) *[]*mockGPIOLine {
	t.Helper()

	var lines []*mockGPIOLine
	var saved = requestLine

	requestLine = func(_ string, _ int, _ ...gpiocdev.LineReqOption) (gpioLine, error) {
		var m = new(mockGPIOLine)
		lines = append(lines, m)

		return m, nil
	}

	t.Cleanup(func() {
		requestLine = saved
	})

	return &lines
}

// TestOutputLine_Activate verifies that active drives the line high.
func TestOutputLine_Activate(t *testing.T) {
	var lines = setupMockLines(t)

	var o, err = OpenOutputLine(LineSpec{Chip: "gpiochip0", Line: 17, Invert: false}, "test")
	require.NoError(t, err)

	require.NoError(t, o.Set(true))

	assert.Equal(t, 1, (*lines)[0].value, "line should be high when active")
}

// TestOutputLine_Deactivate verifies that inactive drives the line low.
func TestOutputLine_Deactivate(t *testing.T) {
	var lines = setupMockLines(t)

	var o, err = OpenOutputLine(LineSpec{Chip: "gpiochip0", Line: 17, Invert: false}, "test")
	require.NoError(t, err)

	require.NoError(t, o.Set(false))

	assert.Equal(t, 0, (*lines)[0].value, "line should be low when inactive")
}

// TestOutputLine_Invert verifies that Invert flips both levels.
func TestOutputLine_Invert(t *testing.T) {
	var lines = setupMockLines(t)

	var o, err = OpenOutputLine(LineSpec{Chip: "gpiochip0", Line: 4, Invert: true}, "test")
	require.NoError(t, err)

	require.NoError(t, o.Set(true))
	assert.Equal(t, 0, (*lines)[0].value, "inverted line should be low when active")

	require.NoError(t, o.Set(false))
	assert.Equal(t, 1, (*lines)[0].value, "inverted line should be high when inactive")
}

// TestOutputLine_Nil verifies that a missing line is silently ignored.
func TestOutputLine_Nil(t *testing.T) {
	var o *OutputLine

	require.NotPanics(t, func() {
		assert.NoError(t, o.Set(true))
		assert.NoError(t, o.Close())
	})
}

// TestOutputLine_Close verifies that Close closes the handle exactly once.
func TestOutputLine_Close(t *testing.T) {
	var lines = setupMockLines(t)

	var o, err = OpenOutputLine(LineSpec{Chip: "gpiochip0", Line: 5, Invert: false}, "test")
	require.NoError(t, err)

	require.NoError(t, o.Close())
	assert.True(t, (*lines)[0].closed)

	// Second close and later sets are no-ops.
	require.NoError(t, o.Close())
	require.NoError(t, o.Set(true))
	assert.Empty(t, (*lines)[0].values)
}

func TestOpenOutputLine_Error(t *testing.T) {
	var saved = requestLine
	t.Cleanup(func() { requestLine = saved })

	requestLine = func(_ string, _ int, _ ...gpiocdev.LineReqOption) (gpioLine, error) {
		return nil, errors.New("no such chip")
	}

	var _, err = OpenOutputLine(LineSpec{Chip: "gpiochip9", Line: 1, Invert: false}, "tx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpiochip9:1")
}

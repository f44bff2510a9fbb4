package irblaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceDetector_Hysteresis(t *testing.T) {
	var lit, dark Energy
	lit[10] = 100

	var changes []bool
	var p = NewPresenceDetector(DefaultPresenceConfig(), func(present bool) {
		changes = append(changes, present)
	})

	// Three lit blocks are not enough.
	for range 3 {
		assert.False(t, p.Add(&lit))
	}

	assert.True(t, p.Add(&lit))
	assert.Equal(t, 4, p.Score())

	// Dark blocks do not drop it until at most one lit block remains in
	// the window.
	for range 30 {
		assert.True(t, p.Add(&dark))
	}

	assert.Equal(t, 2, p.Score())
	assert.False(t, p.Add(&dark))
	assert.Equal(t, 1, p.Score())

	assert.Equal(t, []bool{true, false}, changes)
}

func TestPresenceDetector_Flicker(t *testing.T) {
	var lit, dark Energy
	lit[0] = 100

	var p = NewPresenceDetector(DefaultPresenceConfig(), nil)

	// One lit block in four keeps the score between off and on.
	for range 3 {
		p.Add(&lit)
		p.Add(&dark)
		p.Add(&dark)
		p.Add(&dark)
	}

	assert.False(t, p.Present())
	assert.Equal(t, 3, p.Score())
}

package irblaster

/*-------------------------------------------------------------------
 *
 * Purpose:	Decide whether a beacon is in view, with hysteresis.
 *
 * Description:	A single block showing energy is not much evidence: a
 *		lamp switching on does that too.  We keep a running
 *		score of the last 32 blocks, one bit each, and declare
 *		presence when enough of them are set.  It is dropped
 *		only when few are, so a marginal signal does not make
 *		the state flap.
 *
 *		Each block is about 5.4 ms so the window is about 170 ms.
 *
 *--------------------------------------------------------------------*/

import (
	"math/bits"
	"sync/atomic"
)

type PresenceConfig struct {
	// Energy above Threshold marks a block as showing the beacon.
	Threshold int16 `yaml:"threshold"`

	// Blocks out of the last 32 needed to turn on, and at or below
	// which to turn off.
	On  int `yaml:"on"`
	Off int `yaml:"off"`
}

func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		Threshold: DefaultPresenceThreshold,
		On:        4,
		Off:       1,
	}
}

type PresenceDetector struct {
	cfg      PresenceConfig
	score    uint32
	present  atomic.Bool // Read by other tasks.
	onChange func(present bool)
}

// NewPresenceDetector calls onChange, if not nil, on every transition.
func NewPresenceDetector(cfg PresenceConfig, onChange func(present bool)) *PresenceDetector {
	return &PresenceDetector{cfg: cfg, onChange: onChange} //nolint:exhaustruct
}

// Add scores one block and reports whether the beacon is now present.
func (p *PresenceDetector) Add(e *Energy) bool {
	p.score <<= 1
	if e.Present(p.cfg.Threshold) {
		p.score |= 1
	}

	var s = bits.OnesCount32(p.score)

	var present = p.present.Load()

	if s >= p.cfg.On && !present {
		present = true
		p.changed(present)
	} else if s <= p.cfg.Off && present {
		present = false
		p.changed(present)
	}

	return present
}

func (p *PresenceDetector) changed(present bool) {
	p.present.Store(present)

	if p.onChange != nil {
		p.onChange(present)
	}
}

// Present may be called from any task.
func (p *PresenceDetector) Present() bool {
	return p.present.Load()
}

// Score is the number of recent blocks that showed the beacon.
func (p *PresenceDetector) Score() int {
	return bits.OnesCount32(p.score)
}

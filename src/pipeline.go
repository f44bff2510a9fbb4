package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Reduce one block of raw photodiode samples to a short
 *		vector of IR band energy.
 *
 * Description:	Five stages, all in place on the block:
 *
 *		1. DC removal, 5-tap high pass, rectify, 4-sample box.
 *		2. Decimate by 2, second 4-sample box.
 *		3. Decimate by 2, 11-tap FIR low pass.
 *		4. Decimate by 4, second (faster) DC removal.
 *
 *		1024 samples in, 64 out.  Nothing is reset between
 *		blocks; the trackers and histories follow the stream.
 *
 *		Each stage writes back into the int16 block, truncating
 *		like the firmware this was measured against.
 *
 *----------------------------------------------------------------*/

const (
	EnergySize = BlockSize / (stage2Decimation * stage3Decimation * stage4Decimation)

	stage2Decimation = 2
	stage3Decimation = 2
	stage4Decimation = 4

	// DC trackers keep the level scaled up by 2^dcScaleShift.
	dcScaleShift = 8

	// Weight (2^n - 1) / 2^n per sample.
	dc1WeightShift = 10 // 1023/1024, about one block.
	dc2WeightShift = 7  // 127/128 at the final rate.

	// 51/256 approximates 1/5.
	highPassNum = 51
	highPassDen = 256
	highPassLen = 5

	boxLen = 4
)

// Energy is relative IR band energy for the time covered by one block.
type Energy [EnergySize]int16

type HighPassMode int

const (
	// HighPassMovingAverage subtracts a true 5-sample moving average.
	HighPassMovingAverage HighPassMode = iota

	// HighPassLegacy reproduces the filter first shipped on the board,
	// whose history chain never advances past the previous sample: only
	// the current and previous inputs contribute to the subtracted sum.
	HighPassLegacy
)

func (m HighPassMode) String() string {
	switch m {
	case HighPassMovingAverage:
		return "moving-average"
	case HighPassLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// DCTracker is a first order IIR average used to estimate a drifting offset.
type DCTracker struct {
	acc         int64
	weightShift uint
	scaleShift  uint
}

func NewDCTracker(weightShift, scaleShift uint) DCTracker {
	return DCTracker{acc: 0, weightShift: weightShift, scaleShift: scaleShift}
}

// Update folds in one sample and returns the tracked level.
func (d *DCTracker) Update(x int32) int32 {
	var keep = int64(1)<<d.weightShift - 1
	d.acc = (d.acc*keep + int64(x)<<d.scaleShift) >> d.weightShift

	return int32(d.acc >> d.scaleShift)
}

func (d *DCTracker) Level() int32 {
	return int32(d.acc >> d.scaleShift)
}

type highPass5 struct {
	mode HighPassMode
	hist [highPassLen]int32
	pos  int
}

func (h *highPass5) add(x int32) int32 {
	var sum int32

	if h.mode == HighPassLegacy {
		sum = x + h.hist[0]
		h.hist[0] = x
	} else {
		h.hist[h.pos] = x
		h.pos = (h.pos + 1) % highPassLen

		for _, v := range h.hist {
			sum += v
		}
	}

	return x - (sum*highPassNum)/highPassDen
}

// Unweighted average of the last boxLen values.
type boxFilter struct {
	hist [boxLen]int32
	pos  int
}

func (b *boxFilter) add(x int32) int32 {
	b.hist[b.pos] = x
	b.pos = (b.pos + 1) % boxLen

	var sum int32
	for _, v := range b.hist {
		sum += v
	}

	return sum / boxLen
}

type Pipeline struct {
	dc1 DCTracker
	hp  highPass5
	lp1 boxFilter
	lp2 boxFilter
	fir *FixedFIR
	dc2 DCTracker
}

func NewPipeline(mode HighPassMode) *Pipeline {
	return &Pipeline{ //nolint:exhaustruct
		dc1: NewDCTracker(dc1WeightShift, dcScaleShift),
		hp:  highPass5{mode: mode}, //nolint:exhaustruct
		fir: NewFixedFIR(LowPass6k6),
		dc2: NewDCTracker(dc2WeightShift, dcScaleShift),
	}
}

// Process runs all stages over block, overwriting it, and returns the
// energy vector (also left in the first EnergySize slots of block).
func (p *Pipeline) Process(block *Block) Energy {
	p.stage1(block[:])

	var n = p.stage2(block[:])
	n = p.stage3(block[:n])
	n = p.stage4(block[:n])

	var e Energy
	copy(e[:], block[:n])

	return e
}

func (p *Pipeline) stage1(s []int16) {
	for i := range s {
		var raw = int32(s[i])

		// Common emitter: more light, lower voltage.
		var tmp = p.dc1.Update(raw) - raw

		tmp = p.hp.add(tmp)

		// Envelope.
		if tmp < 0 {
			tmp = -tmp
		}

		s[i] = int16(p.lp1.add(tmp)) //nolint:gosec
	}
}

// Each stageN returns the number of samples left at the front of s.

func (p *Pipeline) stage2(s []int16) int {
	var n = len(s) / stage2Decimation

	for i := range n {
		var tmp = int32(s[2*i]) + int32(s[2*i+1])
		s[i] = int16(p.lp2.add(tmp)) //nolint:gosec
	}

	return n
}

func (p *Pipeline) stage3(s []int16) int {
	var n = len(s) / stage3Decimation

	for i := range n {
		var tmp = int32(s[2*i]) + int32(s[2*i+1])
		s[i] = int16(p.fir.Add(tmp)) //nolint:gosec
	}

	return n
}

func (p *Pipeline) stage4(s []int16) int {
	var n = len(s) / stage4Decimation

	for i := range n {
		var ii = i * stage4Decimation
		var tmp = int32(s[ii]) + int32(s[ii+1]) + int32(s[ii+2]) + int32(s[ii+3])

		tmp -= p.dc2.Update(tmp)
		s[i] = int16(tmp) //nolint:gosec
	}

	return n
}

const (
	barHigh = 30
	barLow  = 15

	// DefaultPresenceThreshold matches the level the buzzer reacted to.
	DefaultPresenceThreshold = barLow
)

// Present reports whether any sub-interval rose above threshold.
func (e *Energy) Present(threshold int16) bool {
	for _, v := range e {
		if v > threshold {
			return true
		}
	}

	return false
}

// Peak is the largest value in the vector.
func (e *Energy) Peak() int16 {
	var peak = e[0]
	for _, v := range e[1:] {
		peak = max(peak, v)
	}

	return peak
}

// Render draws the vector as one line, one character per sub-interval.
func (e *Energy) Render() string {
	var line [EnergySize]byte

	for i, v := range e {
		switch {
		case v > barHigh:
			line[i] = '#'
		case v > barLow:
			line[i] = '-'
		default:
			line[i] = ' '
		}
	}

	return string(line[:])
}

package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Sample ring filled by the capture peripheral.
 *
 * Description:	The ring is RingBlocks blocks laid out back to back.
 *		The producer side stands in for the DMA channel: it
 *		writes at the cursor and wraps at the power of two
 *		boundary, never waiting for the consumer.
 *
 *		The write cursor counts samples since the ring was
 *		armed.  Only its low bits matter to the reader, which
 *		is why a consumer that falls a whole lap behind cannot
 *		tell and simply loses the overwritten blocks.
 *
 *----------------------------------------------------------------*/

import (
	"sync"
	"sync/atomic"
)

const (
	BlockSize   = 1024
	RingBlocks  = 16
	RingSamples = BlockSize * RingBlocks

	ringMask = RingSamples - 1
)

// Block is the unit handed from capture to the pipeline.
type Block [BlockSize]int16

type RingBuffer struct {
	mu      sync.Mutex
	samples [RingSamples]int16
	cursor  atomic.Uint64
}

// Reset rewinds the write cursor, as re-arming the transfer would.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cursor.Store(0)
}

// Write stores samples at the write cursor, wrapping as needed, then
// advances the cursor.
func (r *RingBuffer) Write(p []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pos = int(r.cursor.Load() & ringMask)

	for len(p) > 0 {
		var n = copy(r.samples[pos:], p)
		p = p[n:]
		r.cursor.Add(uint64(n))
		pos = (pos + n) & ringMask
	}
}

// WriteCursor is the number of samples written since the last Reset.
func (r *RingBuffer) WriteCursor() uint64 {
	return r.cursor.Load()
}

// NewestBlock is the index of the block currently being filled.
// Every block before it, back to the read cursor, is complete.
func (r *RingBuffer) NewestBlock() int {
	return int((r.cursor.Load() & ringMask) / BlockSize)
}

// CopyBlock copies block idx out of the ring.
func (r *RingBuffer) CopyBlock(idx int, dst *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var start = (idx % RingBlocks) * BlockSize
	copy(dst[:], r.samples[start:start+BlockSize])
}

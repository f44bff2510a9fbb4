package irblaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func blockOf(v int16) []int16 {
	var b = make([]int16, BlockSize)
	for i := range b {
		b[i] = v
	}

	return b
}

func TestRingBuffer_NewestBlock(t *testing.T) {
	var r RingBuffer

	assert.Equal(t, 0, r.NewestBlock())

	r.Write(blockOf(7))
	assert.Equal(t, 1, r.NewestBlock())
	assert.Equal(t, uint64(BlockSize), r.WriteCursor())

	// Half a block does not complete it.
	r.Write(blockOf(8)[:BlockSize/2])
	assert.Equal(t, 1, r.NewestBlock())
}

func TestRingBuffer_Wrap(t *testing.T) {
	var r RingBuffer

	for i := range RingBlocks + 1 {
		r.Write(blockOf(int16(i)))
	}

	assert.Equal(t, 1, r.NewestBlock())

	var b Block

	// The first lap's block 0 has been overwritten.
	r.CopyBlock(0, &b)
	assert.Equal(t, int16(RingBlocks), b[0])
	assert.Equal(t, int16(RingBlocks), b[BlockSize-1])

	r.CopyBlock(1, &b)
	assert.Equal(t, int16(1), b[0])
}

func TestRingBuffer_WriteAcrossEnd(t *testing.T) {
	var r RingBuffer

	r.Write(make([]int16, RingSamples-10))
	r.Write(blockOf(3)[:20])

	var b Block
	r.CopyBlock(RingBlocks-1, &b)
	assert.Equal(t, int16(3), b[BlockSize-1])

	r.CopyBlock(0, &b)
	assert.Equal(t, int16(3), b[9])
	assert.Equal(t, int16(0), b[10])
}

func TestRingBuffer_Reset(t *testing.T) {
	var r RingBuffer

	r.Write(blockOf(1))
	r.Reset()

	assert.Equal(t, uint64(0), r.WriteCursor())
	assert.Equal(t, 0, r.NewestBlock())
}

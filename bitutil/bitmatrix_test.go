package bitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitMatrixGetSet(t *testing.T) {
	bm := NewBitMatrixWithSize(10, 5)
	bm.Set(3, 2)
	assert.True(t, bm.Get(3, 2))
	assert.False(t, bm.Get(3, 3))
}

func TestBitMatrixFlip(t *testing.T) {
	bm := NewBitMatrixWithSize(4, 4)
	bm.Flip(1, 1)
	assert.True(t, bm.Get(1, 1))
	bm.Flip(1, 1)
	assert.False(t, bm.Get(1, 1))
}

func TestBitMatrixUnset(t *testing.T) {
	bm := NewBitMatrixWithSize(4, 4)
	bm.Set(2, 2)
	bm.Unset(2, 2)
	assert.False(t, bm.Get(2, 2))
}

func TestBitMatrixSetRegion(t *testing.T) {
	bm := NewBitMatrixWithSize(10, 10)
	bm.SetRegion(2, 2, 3, 3)
	for y := 2; y < 5; y++ {
		for x := 2; x < 5; x++ {
			assert.True(t, bm.Get(x, y), "(%d,%d)", x, y)
		}
	}
	assert.False(t, bm.Get(1, 1))
	assert.False(t, bm.Get(5, 5))
}

func TestBitMatrixRow(t *testing.T) {
	bm := NewBitMatrixWithSize(40, 3)
	bm.Set(0, 1)
	bm.Set(39, 1)
	row := bm.Row(1, nil)
	assert.True(t, row.Get(0))
	assert.True(t, row.Get(39))
	assert.False(t, row.Get(20))
}

func TestBitMatrixClone(t *testing.T) {
	bm := NewBitMatrixWithSize(5, 5)
	bm.Set(1, 1)
	clone := bm.Clone()
	clone.Set(2, 2)
	assert.False(t, bm.Get(2, 2))
	assert.True(t, clone.Get(1, 1))
}

func TestBitMatrixEquals(t *testing.T) {
	a := NewBitMatrixWithSize(4, 4)
	b := NewBitMatrixWithSize(4, 4)
	a.Set(1, 1)
	assert.False(t, a.Equals(b))
	b.Set(1, 1)
	assert.True(t, a.Equals(b))
}

package binarizer

import (
	"testing"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pixels []byte
	w, h   int
}

func (f *fakeSource) Row(y int, row []byte) []byte {
	if row == nil || len(row) < f.w {
		row = make([]byte, f.w)
	}
	copy(row, f.pixels[y*f.w:(y+1)*f.w])
	return row
}
func (f *fakeSource) Matrix() []byte { return f.pixels }
func (f *fakeSource) Width() int     { return f.w }
func (f *fakeSource) Height() int    { return f.h }

func uniform(w, h int, value byte) *fakeSource {
	px := make([]byte, w*h)
	for i := range px {
		px[i] = value
	}
	return &fakeSource{pixels: px, w: w, h: h}
}

func TestThresholdUnimodalFails(t *testing.T) {
	src := uniform(100, 100, 128)
	_, err := NewBinaryMatrix(src)
	require.ErrorIs(t, err, screencamera.ErrThresholdUnresolvable)
}

func TestThresholdBimodalInRange(t *testing.T) {
	w, h := 100, 100
	px := make([]byte, w*h)
	for i := range px {
		if i%5 < 3 {
			px[i] = 30
		} else {
			px[i] = 210
		}
	}
	src := &fakeSource{pixels: px, w: w, h: h}
	m, err := NewBinaryMatrix(src)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Threshold(), 100)
	assert.LessOrEqual(t, m.Threshold(), 140)
}

// TestThresholdSwapsWhenDominantPeakIsBrighter exercises the branch where
// the tallest histogram bucket (firstPeak, by raw count) sits at a higher
// gray level than the distance-weighted secondPeak, forcing the
// firstPeak/secondPeak swap before the valley search runs. 60% of the
// sampled pixels are bright (210), 40% dark (30), so the swap fires and the
// valley search must still land between the two peaks.
func TestThresholdSwapsWhenDominantPeakIsBrighter(t *testing.T) {
	w, h := 100, 100
	px := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Columns 20..79 are the histogram's sampled central range
			// (left=w/5=20, right=4w/5=80); 36 of those 60 columns bright,
			// 24 dark, giving counts[210]=144 > counts[30]=96 across the
			// four sampled rows.
			if x >= 20 && x < 56 {
				px[y*w+x] = 210
			} else if x >= 56 && x < 80 {
				px[y*w+x] = 30
			} else {
				px[y*w+x] = 210
			}
		}
	}
	src := &fakeSource{pixels: px, w: w, h: h}
	m, err := NewBinaryMatrix(src)
	require.NoError(t, err)
	assert.Equal(t, 90, m.Threshold())
}

func TestThresholdGetPixelEquals(t *testing.T) {
	w, h := 100, 100
	px := make([]byte, w*h)
	for i := range px {
		if i%5 < 3 {
			px[i] = 30
		} else {
			px[i] = 210
		}
	}
	src := &fakeSource{pixels: px, w: w, h: h}
	m, err := NewBinaryMatrix(src)
	require.NoError(t, err)
	assert.True(t, m.PixelEquals(0, 0, m.Get(0, 0)))
}

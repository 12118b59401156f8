// Package binarizer computes a per-frame global binarization threshold and
// locates the barcode's outer quadrilateral in the resulting bitmap.
package binarizer

import (
	screencamera "github.com/zhantong1994/screencamera"
)

const (
	histogramBuckets = 256
	peakSeparation   = 16
)

// BinaryMatrix wraps a LuminanceSource with a single global threshold and
// the eight pixel coordinates of the barcode's outer quadrilateral. It is
// built once per frame; the threshold is fixed at construction, and
// FindBorder fills in Borders afterwards.
type BinaryMatrix struct {
	source    screencamera.LuminanceSource
	threshold int

	// Borders holds (x0,y0,x1,y1,x2,y2,x3,y3) for TL, TR, BR, BL once
	// FindBorder has populated it. Nil until then.
	Borders []int
}

// NewBinaryMatrix computes the global threshold for source's central region
// and returns the wrapping BinaryMatrix. It does not locate borders; call
// FindBorder separately.
func NewBinaryMatrix(source screencamera.LuminanceSource) (*BinaryMatrix, error) {
	threshold, err := computeThreshold(source)
	if err != nil {
		return nil, err
	}
	return &BinaryMatrix{source: source, threshold: threshold}, nil
}

// Threshold returns the computed global threshold.
func (m *BinaryMatrix) Threshold() int { return m.threshold }

// Width returns the underlying plane's width.
func (m *BinaryMatrix) Width() int { return m.source.Width() }

// Height returns the underlying plane's height.
func (m *BinaryMatrix) Height() int { return m.source.Height() }

// GetGray returns the raw luminance byte at (x, y).
func (m *BinaryMatrix) GetGray(x, y int) byte {
	row := m.source.Row(y, nil)
	return row[x]
}

// Get returns true (1) if the pixel at (x, y) is brighter than the
// threshold, false (0 / black) otherwise.
func (m *BinaryMatrix) Get(x, y int) bool {
	return int(m.GetGray(x, y)) > m.threshold
}

// PixelEquals reports whether Get(x, y) equals v.
func (m *BinaryMatrix) PixelEquals(x, y int, v bool) bool {
	return m.Get(x, y) == v
}

// IsBlack reports whether the pixel at (x, y) is below threshold. Grid
// sampling and border finding both read cells through this, not Get, since
// the barcode's ink is dark-on-light.
func (m *BinaryMatrix) IsBlack(x, y int) bool {
	return !m.Get(x, y)
}

// computeThreshold builds a 256-bin histogram over the central 60% width and
// four scan rows at height h*i/5 for i in {1,2,3,4}, then locates the valley
// between the two dominant peaks. Grounded on the original screen-to-camera
// receiver's BiMatrix.getThreshold valley-scoring formula, which biases the
// valley toward the darker peak while rewarding depth.
func computeThreshold(source screencamera.LuminanceSource) (int, error) {
	width := source.Width()
	height := source.Height()

	var counts [histogramBuckets]int
	left := width / 5
	right := (width * 4) / 5
	var row []byte
	for i := 1; i <= 4; i++ {
		y := height * i / 5
		row = source.Row(y, row)
		for x := left; x < right; x++ {
			counts[row[x]]++
		}
	}

	firstPeak := 0
	firstPeakCount := 0
	for x := 0; x < histogramBuckets; x++ {
		if counts[x] > firstPeakCount {
			firstPeak = x
			firstPeakCount = counts[x]
		}
	}

	secondPeak := firstPeak
	secondPeakScore := 0
	for x := 0; x < histogramBuckets; x++ {
		dist := x - firstPeak
		score := counts[x] * dist * dist
		if score > secondPeakScore {
			secondPeak = x
			secondPeakScore = score
		}
	}

	if abs(secondPeak-firstPeak) <= peakSeparation {
		return 0, screencamera.ErrThresholdUnresolvable
	}

	if firstPeak > secondPeak {
		firstPeak, secondPeak = secondPeak, firstPeak
	}

	bestValley := -1
	bestValleyScore := 0
	found := false
	for x := firstPeak + 1; x < secondPeak; x++ {
		fromFirst := x - firstPeak
		toSecond := secondPeak - x
		score := fromFirst * toSecond * toSecond * (firstPeakCount - counts[x])
		if !found || score > bestValleyScore {
			bestValley = x
			bestValleyScore = score
			found = true
		}
	}
	if !found {
		return 0, screencamera.ErrThresholdUnresolvable
	}
	return bestValley, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package transform

import (
	"github.com/zhantong1994/screencamera/bitutil"
)

// CellSource is anything a logical barcode grid can be sampled against: a
// binarized frame exposing which pixels are ink (black).
type CellSource interface {
	IsBlack(x, y int) bool
	Width() int
	Height() int
}

// SampleGrid reads a dimX x dimY logical barcode grid out of source through
// the quad-to-quad transform mapping the unit-square-scaled logical grid to
// the detected quadrilateral corners (p1..p4, TL/TR/BR/BL order in both the
// logical and pixel spaces). For cell (cx, cy) the sample point in logical
// coordinates is (cx+0.5, cy+0.5); all dimX points of a row are transformed
// in one batch before any lookup happens.
//
// There is no bounds nudging: transformed coordinates are converted to
// integers and, when that lands outside source's bounds, the cell is left
// unset (white) without a lookup rather than clamped to the nearest edge.
func SampleGrid(source CellSource, dimX, dimY int,
	p1ToX, p1ToY, p2ToX, p2ToY, p3ToX, p3ToY, p4ToX, p4ToY float64,
	p1FromX, p1FromY, p2FromX, p2FromY, p3FromX, p3FromY, p4FromX, p4FromY float64,
) *bitutil.BitMatrix {
	t := QuadrilateralToQuadrilateral(
		p1ToX, p1ToY, p2ToX, p2ToY, p3ToX, p3ToY, p4ToX, p4ToY,
		p1FromX, p1FromY, p2FromX, p2FromY, p3FromX, p3FromY, p4FromX, p4FromY)
	return SampleGridTransform(source, dimX, dimY, t)
}

// SampleGridTransform samples using a pre-computed transform.
func SampleGridTransform(source CellSource, dimX, dimY int, t *PerspectiveTransform) *bitutil.BitMatrix {
	bits := bitutil.NewBitMatrixWithSize(dimX, dimY)
	points := make([]float64, 2*dimX)
	width := source.Width()
	height := source.Height()
	for y := 0; y < dimY; y++ {
		yVal := float64(y) + 0.5
		for x := 0; x < len(points); x += 2 {
			points[x] = float64(x/2) + 0.5
			points[x+1] = yVal
		}
		t.TransformPoints(points)
		for x := 0; x < len(points); x += 2 {
			ix := int(points[x])
			iy := int(points[x+1])
			if ix < 0 || ix >= width || iy < 0 || iy >= height {
				continue
			}
			if source.IsBlack(ix, iy) {
				bits.Set(x/2, y)
			}
		}
	}
	return bits
}

// SampleRow samples one row of the logical grid and packs it MSB-first into
// a BitArray of dimX bits.
func SampleRow(source CellSource, dimX, dimY, row int, t *PerspectiveTransform) *bitutil.BitArray {
	points := make([]float64, 2*dimX)
	yVal := float64(row) + 0.5
	for x := 0; x < len(points); x += 2 {
		points[x] = float64(x/2) + 0.5
		points[x+1] = yVal
	}
	t.TransformPoints(points)

	out := bitutil.NewBitArray(dimX)
	width := source.Width()
	height := source.Height()
	for x := 0; x < len(points); x += 2 {
		ix := int(points[x])
		iy := int(points[x+1])
		if ix < 0 || ix >= width || iy < 0 || iy >= height {
			continue
		}
		if source.IsBlack(ix, iy) {
			out.Set(x / 2)
		}
	}
	return out
}

// SampleGridOffset samples a dimX x dimY sub-region of a larger logical
// square through t, where the sub-region's own (0,0) cell sits at
// (offsetX, offsetY) in t's logical coordinate space. This is how the
// payload content grid (nested inside the black/vary border rings) is read
// from a transform built against the barcode's full outer square rather
// than reconstructing a separate transform per ring.
func SampleGridOffset(source CellSource, dimX, dimY int, offsetX, offsetY float64, t *PerspectiveTransform) *bitutil.BitMatrix {
	bits := bitutil.NewBitMatrixWithSize(dimX, dimY)
	points := make([]float64, 2*dimX)
	width := source.Width()
	height := source.Height()
	for y := 0; y < dimY; y++ {
		yVal := offsetY + float64(y) + 0.5
		for x := 0; x < len(points); x += 2 {
			points[x] = offsetX + float64(x/2) + 0.5
			points[x+1] = yVal
		}
		t.TransformPoints(points)
		for x := 0; x < len(points); x += 2 {
			ix := int(points[x])
			iy := int(points[x+1])
			if ix < 0 || ix >= width || iy < 0 || iy >= height {
				continue
			}
			if source.IsBlack(ix, iy) {
				bits.Set(x/2, y)
			}
		}
	}
	return bits
}

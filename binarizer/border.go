package binarizer

import (
	"math"
	"sort"

	screencamera "github.com/zhantong1994/screencamera"
)

// initSize is the starting search window for the white-rectangle expansion.
const initSize = 10

// point is an (x, y) pixel coordinate used while walking the border.
type point struct{ x, y float64 }

// FindBorder locates the barcode's outer black quadrilateral inside m and
// populates m.Borders as (x0,y0,x1,y1,x2,y2,x3,y3) in TL, TR, BR, BL order.
//
// Grounded on the white-rectangle expansion used by ZXing's Data Matrix
// detector: expand outward from the image center along each of the four
// edges until each meets a black pixel, then walk the four corner diagonals
// to find the precise black pixel where each edge pair intersects. Unlike
// the Data Matrix finder pattern (two solid edges, two alternating clock
// tracks), this border is a uniform black ring, so there is no solid/clock
// side classification step: the four corners found by the expansion are
// simply sorted into TL/TR/BR/BL order around their centroid.
func FindBorder(m *BinaryMatrix) error {
	w := m.Width()
	h := m.Height()

	halfsize := initSize / 2
	cx, cy := w/2, h/2
	left, right := cx-halfsize, cx+halfsize
	up, down := cy-halfsize, cy+halfsize
	if up < 0 || left < 0 || down >= h || right >= w {
		return screencamera.ErrBorderNotFound
	}

	containsBlack := func(a, b, fixed int, horizontal bool) bool {
		if horizontal {
			for x := a; x <= b; x++ {
				if m.IsBlack(x, fixed) {
					return true
				}
			}
		} else {
			for y := a; y <= b; y++ {
				if m.IsBlack(fixed, y) {
					return true
				}
			}
		}
		return false
	}

	sizeExceeded := false
	foundRight, foundBottom, foundLeft, foundTop := false, false, false, false
	progressed := true
	for progressed {
		progressed = false

		notWhite := true
		for (notWhite || !foundRight) && right < w {
			notWhite = containsBlack(up, down, right, false)
			if notWhite {
				right++
				progressed = true
				foundRight = true
			} else if !foundRight {
				right++
			}
		}
		if right >= w {
			sizeExceeded = true
			break
		}

		notWhite = true
		for (notWhite || !foundBottom) && down < h {
			notWhite = containsBlack(left, right, down, true)
			if notWhite {
				down++
				progressed = true
				foundBottom = true
			} else if !foundBottom {
				down++
			}
		}
		if down >= h {
			sizeExceeded = true
			break
		}

		notWhite = true
		for (notWhite || !foundLeft) && left >= 0 {
			notWhite = containsBlack(up, down, left, false)
			if notWhite {
				left--
				progressed = true
				foundLeft = true
			} else if !foundLeft {
				left--
			}
		}
		if left < 0 {
			sizeExceeded = true
			break
		}

		notWhite = true
		for (notWhite || !foundTop) && up >= 0 {
			notWhite = containsBlack(left, right, up, true)
			if notWhite {
				up--
				progressed = true
				foundTop = true
			} else if !foundTop {
				up--
			}
		}
		if up < 0 {
			sizeExceeded = true
			break
		}
	}

	if sizeExceeded || !foundRight || !foundBottom || !foundLeft || !foundTop {
		return screencamera.ErrBorderNotFound
	}

	maxSize := right - left

	blackOnSegment := func(aX, aY, bX, bY float64) (point, bool) {
		dist := roundHalfAway(distance(aX, aY, bX, bY))
		if dist < 1 {
			return point{}, false
		}
		xStep := (bX - aX) / float64(dist)
		yStep := (bY - aY) / float64(dist)
		for i := 0; i < dist; i++ {
			px := roundHalfAway(aX + float64(i)*xStep)
			py := roundHalfAway(aY + float64(i)*yStep)
			if px >= 0 && px < w && py >= 0 && py < h && m.IsBlack(px, py) {
				return point{float64(px), float64(py)}, true
			}
		}
		return point{}, false
	}

	var corners [4]point
	var found [4]bool

	for i := 1; !found[0] && i < maxSize; i++ {
		corners[0], found[0] = blackOnSegment(float64(left), float64(down-i), float64(left+i), float64(down))
	}
	for i := 1; !found[1] && i < maxSize; i++ {
		corners[1], found[1] = blackOnSegment(float64(left), float64(up+i), float64(left+i), float64(up))
	}
	for i := 1; !found[2] && i < maxSize; i++ {
		corners[2], found[2] = blackOnSegment(float64(right), float64(up+i), float64(right-i), float64(up))
	}
	for i := 1; !found[3] && i < maxSize; i++ {
		corners[3], found[3] = blackOnSegment(float64(right), float64(down-i), float64(right-i), float64(down))
	}
	if !found[0] || !found[1] || !found[2] || !found[3] {
		return screencamera.ErrBorderNotFound
	}

	ordered := orderCorners(corners[:])
	m.Borders = make([]int, 8)
	for i, p := range ordered {
		m.Borders[2*i] = int(p.x)
		m.Borders[2*i+1] = int(p.y)
	}
	return nil
}

// orderCorners sorts four quadrilateral corners into TL, TR, BR, BL order by
// walking them clockwise around their centroid, starting from the one
// closest to the top-left (minimal x+y).
func orderCorners(pts []point) []point {
	var cx, cy float64
	for _, p := range pts {
		cx += p.x
		cy += p.y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	type withAngle struct {
		p     point
		angle float64
	}
	withAngles := make([]withAngle, len(pts))
	for i, p := range pts {
		withAngles[i] = withAngle{p, math.Atan2(p.y-cy, p.x-cx)}
	}
	sort.Slice(withAngles, func(i, j int) bool { return withAngles[i].angle < withAngles[j].angle })

	startIdx := 0
	best := math.MaxFloat64
	for i, wa := range withAngles {
		score := wa.p.x + wa.p.y
		if score < best {
			best = score
			startIdx = i
		}
	}

	ordered := make([]point, len(pts))
	for i := range pts {
		ordered[i] = withAngles[(startIdx+i)%len(pts)].p
	}
	return ordered
}

func roundHalfAway(d float64) int {
	if d < 0 {
		return int(d - 0.5)
	}
	return int(d + 0.5)
}

func distance(aX, aY, bX, bY float64) float64 {
	dx := aX - bX
	dy := aY - bY
	return math.Sqrt(dx*dx + dy*dy)
}

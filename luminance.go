package screencamera

// LuminanceSource provides access to greyscale luminance values for an
// immutable width x height plane, row-major, top-left origin. A Frame's
// pixels are wrapped in one of these before binarization.
type LuminanceSource interface {
	// Row returns a row of luminance data. If row is non-nil and large enough,
	// it should be reused.
	Row(y int, row []byte) []byte

	// Matrix returns the entire luminance matrix.
	Matrix() []byte

	// Width returns the width of the image.
	Width() int

	// Height returns the height of the image.
	Height() int
}

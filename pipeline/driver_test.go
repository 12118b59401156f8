package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/zhantong1994/screencamera/binarizer"
	"github.com/zhantong1994/screencamera/bitutil"
	"github.com/zhantong1994/screencamera/config"
	"github.com/zhantong1994/screencamera/fountain"
	"github.com/zhantong1994/screencamera/header"
	"github.com/zhantong1994/screencamera/reedsolomon"
)

func testGeometry() config.Geometry {
	return config.Geometry{
		FrameBlackLength: 2,
		ContentLength:    32,
		ECNum:            1,
		ECByteNum:        8,
		ECLength:         64,
		NumSourceBlocks:  1,
	}
}

// encodeReading builds one full content-grid byte slice (header slot +
// RS-coded fountain packet) the way the transmitter side would, so
// tryReading can be exercised without ever rendering or sampling pixels.
func encodeReading(t *testing.T, geo config.Geometry, fileByteLength uint32, esi uint32, payload []byte) []byte {
	t.Helper()
	symbolSize := geo.SymbolSize()
	require.Equal(t, symbolSize, len(fountain.EncodePacketHeader(0, esi))+len(payload))

	n := symbolSize + geo.ECByteNum
	toEncode := make([]int, n)
	packetBytes := append(fountain.EncodePacketHeader(0, esi), payload...)
	for i, b := range packetBytes {
		toEncode[i] = int(b)
	}
	reedsolomon.NewEncoder(reedsolomon.DataMatrixField256).Encode(toEncode, geo.ECByteNum)

	headerBytes := header.Encode(fileByteLength)
	out := make([]byte, 8+n)
	copy(out, headerBytes[:])
	for i, v := range toEncode {
		out[8+i] = byte(v)
	}
	return out
}

func TestTryReadingResolvesHeaderThenFeedsFountain(t *testing.T) {
	geo := testGeometry()
	transferLength := 200
	symbolSize := geo.SymbolSize()

	d := New(Options{Geometry: geo})

	esi := uint32(0)
	payload := make([]byte, symbolSize-len(fountain.EncodePacketHeader(0, esi)))
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := encodeReading(t, geo, uint32(transferLength), esi, payload)

	require.Equal(t, AwaitingHeader, d.stage)
	ok := d.tryReading(raw)
	assert.True(t, ok)
	assert.Equal(t, Accumulating, d.stage)
	assert.NotNil(t, d.decoder)
}

func TestTryReadingRetriesOnZeroLengthHeader(t *testing.T) {
	geo := testGeometry()
	d := New(Options{Geometry: geo})

	raw := make([]byte, 8+geo.SymbolSize()+geo.ECByteNum)
	headerBytes := header.Encode(0)
	copy(raw, headerBytes[:])

	ok := d.tryReading(raw)
	assert.False(t, ok)
	assert.Equal(t, AwaitingHeader, d.stage)
}

func TestTryReadingRejectsCorruptedHeaderCRC(t *testing.T) {
	geo := testGeometry()
	d := New(Options{Geometry: geo})

	raw := make([]byte, 8+geo.SymbolSize()+geo.ECByteNum)
	headerBytes := header.Encode(500)
	headerBytes[4] ^= 0xFF // corrupt the CRC byte
	copy(raw, headerBytes[:])

	ok := d.tryReading(raw)
	assert.False(t, ok)
	assert.Equal(t, AwaitingHeader, d.stage)
}

func TestDriverReconstructsFileAcrossReadings(t *testing.T) {
	geo := testGeometry()
	symbolSize := geo.SymbolSize()
	payloadLen := symbolSize - len(fountain.EncodePacketHeader(0, 0))
	transferLength := payloadLen * 2 // exactly two source symbols

	full := make([]byte, transferLength)
	for i := range full {
		full[i] = byte(i * 7)
	}

	d := New(Options{Geometry: geo})

	raw0 := encodeReading(t, geo, uint32(transferLength), 0, full[:payloadLen])
	require.True(t, d.tryReading(raw0))
	require.False(t, d.decoder.IsComplete())

	raw1 := encodeReading(t, geo, uint32(transferLength), 1, full[payloadLen:])
	require.True(t, d.tryReading(raw1))
	require.True(t, d.decoder.IsComplete())

	assert.Equal(t, full, d.decoder.DataBytes())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "AwaitingHeader", AwaitingHeader.String())
	assert.Equal(t, "Accumulating", Accumulating.String())
	assert.Equal(t, "Complete", Complete.String())
}

func TestBitsToBytesPacksRowMajorMSBFirst(t *testing.T) {
	bits := bitutil.NewBitMatrixWithSize(8, 2)
	bits.Set(0, 0) // MSB of first byte
	bits.Set(7, 0) // LSB of first byte
	bits.Set(1, 1) // second bit of second byte

	out := bitsToBytes(bits)
	require.Len(t, out, 2)
	assert.Equal(t, byte(0x81), out[0])
	assert.Equal(t, byte(0x40), out[1])
}

func TestReversedSourceFlipsPolarity(t *testing.T) {
	w, h := 100, 100
	px := make([]byte, w*h)
	for i := range px {
		if i%5 < 3 {
			px[i] = 30
		} else {
			px[i] = 210
		}
	}
	src := &fixedLuminanceSource{pixels: px, w: w, h: h}
	m, err := binarizer.NewBinaryMatrix(src)
	require.NoError(t, err)

	rs := reversedSource{m}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, !m.IsBlack(x, y), rs.IsBlack(x, y))
		}
	}
	assert.Equal(t, m.Width(), rs.Width())
	assert.Equal(t, m.Height(), rs.Height())
}

// renderBarcodeFrame paints raw (a content-grid byte slice laid out the way
// bitsToBytes packs one) into a pixel frame: a solid FrameBlackLength-cell
// black ring around the ContentLength x ContentLength payload grid, on a
// white quiet zone, at cellPx pixels per cell. This is what a real camera
// frame looks like before binarization, letting a test drive processFrame
// through actual pixel data instead of a hand-built byte slice.
func renderBarcodeFrame(geo config.Geometry, raw []byte, cellPx, marginPx int) screencamera.Frame {
	total := geo.BarCodeWidth()
	offset := geo.FrameBlackLength + geo.FrameVaryLength + geo.FrameVaryTwoLength
	size := marginPx*2 + total*cellPx
	px := make([]byte, size*size)
	for i := range px {
		px[i] = 230
	}
	for cy := 0; cy < total; cy++ {
		for cx := 0; cx < total; cx++ {
			black := cx < geo.FrameBlackLength || cx >= total-geo.FrameBlackLength ||
				cy < geo.FrameBlackLength || cy >= total-geo.FrameBlackLength
			if !black {
				lx, ly := cx-offset, cy-offset
				bit := ly*geo.ContentLength + lx
				black = raw[bit/8]>>(7-uint(bit%8))&1 == 1
			}
			val := byte(230)
			if black {
				val = 20
			}
			for dy := 0; dy < cellPx; dy++ {
				py := marginPx + cy*cellPx + dy
				base := py*size + marginPx + cx*cellPx
				for dx := 0; dx < cellPx; dx++ {
					px[base+dx] = val
				}
			}
		}
	}
	return screencamera.Frame{Pixels: px, Width: size, Height: size}
}

// TestProcessFrameDecodesRealPixels is the one true end-to-end test: it
// renders an actual pixel frame (quiet zone, black border ring, sampled
// content grid) and drives it through processFrame, exercising
// binarization, border-finding, perspective sampling, Reed-Solomon
// correction and fountain decoding against real pixels rather than a
// hand-built byte slice. The fountain payload is all zero, so apart from
// the header bits in the first two content rows (next to the top of the
// ring) the content interior renders solid white; FindBorder's center-outward expansion assumes a clear run from
// the frame's center out to the ring, and a noisy interior could trip it
// into stopping on a content bit instead of the true border.
func TestProcessFrameDecodesRealPixels(t *testing.T) {
	geo := testGeometry()
	transferLength := 60
	payload := make([]byte, geo.SymbolSize()-fountain.PacketHeaderSize)
	raw := encodeReading(t, geo, uint32(transferLength), 0, payload)

	frame := renderBarcodeFrame(geo, raw, 10, 120)

	d := New(Options{Geometry: geo})
	done, err := d.processFrame(frame)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, Complete, d.stage)
	assert.Equal(t, payload[:transferLength], d.decoder.DataBytes())
}

type fixedLuminanceSource struct {
	pixels []byte
	w, h   int
}

func (f *fixedLuminanceSource) Row(y int, row []byte) []byte {
	if row == nil || len(row) < f.w {
		row = make([]byte, f.w)
	}
	copy(row, f.pixels[y*f.w:(y+1)*f.w])
	return row
}
func (f *fixedLuminanceSource) Matrix() []byte { return f.pixels }
func (f *fixedLuminanceSource) Width() int     { return f.w }
func (f *fixedLuminanceSource) Height() int    { return f.h }

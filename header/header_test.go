package header

import (
	"testing"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	enc := Encode(12345)
	assert.Equal(t, [5]byte{0x00, 0x00, 0x30, 0x39, enc[4]}, enc)

	rec, err := Decode(enc[:])
	require.NoError(t, err)
	assert.Equal(t, uint32(12345), rec.Length)
	assert.Equal(t, enc[4], rec.CRC)
}

func TestHeaderCRCMismatch(t *testing.T) {
	enc := Encode(12345)
	enc[4] ^= 0x01
	_, err := Decode(enc[:])
	require.ErrorIs(t, err, screencamera.ErrHeaderCRCMismatch)
}

func TestHeaderBitFlipAlwaysDetected(t *testing.T) {
	enc := Encode(0xDEADBEEF)
	for bit := 0; bit < 40; bit++ {
		flipped := enc
		byteIdx := bit / 8
		flipped[byteIdx] ^= 1 << (7 - uint(bit%8))
		_, err := Decode(flipped[:])
		assert.Error(t, err, "bit %d flip should be detected", bit)
	}
}

func TestZeroLengthIsRetrySentinel(t *testing.T) {
	enc := Encode(0)
	rec, err := Decode(enc[:])
	require.NoError(t, err)
	assert.Equal(t, uint32(0), rec.Length)
}

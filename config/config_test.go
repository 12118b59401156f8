package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadJSON(t *testing.T, doc string) Geometry {
	v := viper.New()
	v.SetConfigType("json")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	g, err := FromViper(v)
	require.NoError(t, err)
	return g
}

func TestLoadRecognizesAllKeys(t *testing.T) {
	g := loadJSON(t, `{
		"borderLength": 2,
		"paddingLength": 1,
		"metaLength": 1,
		"mainWidth": 40,
		"mainHeight": 40,
		"fps": 15,
		"distance": 30,
		"hints": {"ecNum": "3", "ecLength": "32", "numSourceBlocks": "2"}
	}`)
	assert.Equal(t, 2, g.FrameBlackLength)
	assert.Equal(t, 1, g.FrameVaryLength)
	assert.Equal(t, 1, g.FrameVaryTwoLength)
	assert.Equal(t, 40, g.ContentLength)
	assert.Equal(t, 3, g.ECNum)
	assert.Equal(t, 32, g.ECLength)
	assert.Equal(t, 12, g.ECByteNum)
	assert.Equal(t, 2, g.NumSourceBlocks)
	assert.Equal(t, 2*(2+1+1)+40, g.BarCodeWidth())
}

func TestLoadDefaultsECParamsWhenHintsMissing(t *testing.T) {
	g := loadJSON(t, `{
		"borderLength": 1,
		"paddingLength": 1,
		"metaLength": 1,
		"mainWidth": 32,
		"mainHeight": 32,
		"fps": 10,
		"distance": 20,
		"hints": {}
	}`)
	assert.Equal(t, defaultECNum, g.ECNum)
	assert.Equal(t, defaultECLength, g.ECLength)
	assert.Equal(t, defaultECNum*defaultECLength/8, g.ECByteNum)
	assert.Equal(t, defaultNumSourceBlocks, g.NumSourceBlocks)
}

// TestECByteNumIsAlwaysSelfConsistent checks, for the default-derived
// Geometry, that the header slot, SymbolSize() and ECByteNum exactly fill
// the content grid, guarding against regressions where ECByteNum could
// diverge from ecNum*ecLength/8 and make every frame look like a short
// reading (8+SymbolSize()+ECByteNum would then exceed the content grid
// size computed from the same mismatched parameters).
func TestECByteNumIsAlwaysSelfConsistent(t *testing.T) {
	g := loadJSON(t, `{
		"borderLength": 1,
		"paddingLength": 1,
		"metaLength": 1,
		"mainWidth": 32,
		"mainHeight": 32,
		"fps": 10,
		"distance": 20,
		"hints": {}
	}`)
	require.Equal(t, g.ContentLength*g.ContentLength/8, 8+g.SymbolSize()+g.ECByteNum)
}

func TestLoadRejectsMismatchedDimensions(t *testing.T) {
	v := viper.New()
	v.SetConfigType("json")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`{
		"borderLength": 1, "paddingLength": 1, "metaLength": 1,
		"mainWidth": 32, "mainHeight": 40, "fps": 10, "distance": 20, "hints": {}
	}`)))
	_, err := FromViper(v)
	assert.Error(t, err)
}

// Package config loads the barcode geometry and codec parameters an
// external collaborator supplies as a JSON document, validating it into an
// immutable Geometry the rest of the pipeline shares for the life of
// the process.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	screencamera "github.com/zhantong1994/screencamera"
)

// Geometry is the process-wide, immutable-after-load barcode layout and
// Reed-Solomon codec configuration.
type Geometry struct {
	// Ring widths, in cells, from outermost to innermost: the solid black
	// frame, then two alternating/varying rings nested inside it.
	FrameBlackLength   int `mapstructure:"borderLength"`
	FrameVaryLength    int `mapstructure:"paddingLength"`
	FrameVaryTwoLength int `mapstructure:"metaLength"`

	// ContentLength is the side length, in cells, of the inner payload grid.
	ContentLength int

	MainWidth  int `mapstructure:"mainWidth"`
	MainHeight int `mapstructure:"mainHeight"`

	FPS      int `mapstructure:"fps"`
	Distance int `mapstructure:"distance"`

	Hints map[string]string `mapstructure:"hints"`

	// Reed-Solomon parameters. ECNum and ECLength are read from Hints
	// (falling back to defaults) since they are codec-specific parameters
	// the spec routes through the free-form hints map. ECByteNum is always
	// derived as ECNum*ECLength/8 (the number of RS parity bytes the wire
	// format actually carries per spec.md's wire-format bullet: "ecNum
	// parity blocks of ecLength bits each"); it is never read independently,
	// so it can never disagree with the parity size the content grid and
	// SymbolSize formula assume.
	ECNum     int
	ECByteNum int
	ECLength  int

	NumSourceBlocks int
}

const (
	defaultECNum           = 1
	defaultECLength        = 64
	defaultNumSourceBlocks = 1
)

// BarCodeWidth returns 2*(frameBlackLength+frameVaryLength+frameVaryTwoLength) + contentLength,
// the barcode's total side length in cells.
func (g Geometry) BarCodeWidth() int {
	return 2*(g.FrameBlackLength+g.FrameVaryLength+g.FrameVaryTwoLength) + g.ContentLength
}

// Load reads and validates a barcode geometry document from path using
// viper, recognizing exactly the keys borderLength, paddingLength,
// metaLength, mainWidth, mainHeight, fps, distance, hints.
func Load(path string) (Geometry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", screencamera.ErrConfigInvalid, err)
	}
	return FromViper(v)
}

// FromViper builds a Geometry from an already-populated viper instance,
// letting callers merge env vars or flags on top of the JSON document
// before validation.
func FromViper(v *viper.Viper) (Geometry, error) {
	g := Geometry{
		FrameBlackLength:   v.GetInt("borderLength"),
		FrameVaryLength:    v.GetInt("paddingLength"),
		FrameVaryTwoLength: v.GetInt("metaLength"),
		MainWidth:          v.GetInt("mainWidth"),
		MainHeight:         v.GetInt("mainHeight"),
		FPS:                v.GetInt("fps"),
		Distance:           v.GetInt("distance"),
		Hints:              v.GetStringMapString("hints"),
	}
	g.ContentLength = g.MainWidth

	g.ECNum = hintInt(g.Hints, "ecNum", defaultECNum)
	g.ECLength = hintInt(g.Hints, "ecLength", defaultECLength)
	g.ECByteNum = g.ECNum * g.ECLength / 8
	g.NumSourceBlocks = hintInt(g.Hints, "numSourceBlocks", defaultNumSourceBlocks)

	if err := g.validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func hintInt(hints map[string]string, key string, fallback int) int {
	raw, ok := hints[key]
	if !ok {
		// viper lower-cases the keys of maps it reads from a document.
		raw, ok = hints[strings.ToLower(key)]
	}
	if ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func (g Geometry) validate() error {
	if g.MainWidth <= 0 || g.MainHeight <= 0 {
		return fmt.Errorf("%w: mainWidth/mainHeight must be positive", screencamera.ErrConfigInvalid)
	}
	if g.MainWidth != g.MainHeight {
		return fmt.Errorf("%w: mainWidth and mainHeight must match (square content grid)", screencamera.ErrConfigInvalid)
	}
	if g.FrameBlackLength < 0 || g.FrameVaryLength < 0 || g.FrameVaryTwoLength < 0 {
		return fmt.Errorf("%w: frame ring lengths must be nonnegative", screencamera.ErrConfigInvalid)
	}
	if g.ECNum <= 0 {
		return fmt.Errorf("%w: ecNum must be positive", screencamera.ErrConfigInvalid)
	}
	if g.ECLength <= 0 || g.ECLength%8 != 0 {
		return fmt.Errorf("%w: ecLength must be a positive multiple of 8", screencamera.ErrConfigInvalid)
	}
	if g.ECByteNum <= 0 || g.ECByteNum >= 256 {
		return fmt.Errorf("%w: ecNum*ecLength/8 (ecByteNum) out of range", screencamera.ErrConfigInvalid)
	}
	if g.NumSourceBlocks < 1 {
		return fmt.Errorf("%w: numSourceBlocks must be at least 1", screencamera.ErrConfigInvalid)
	}
	return nil
}

// SymbolSize returns the fountain decoder's per-symbol payload size:
// the contentLength^2/8 bytes of the grid, minus the 8-byte header slot and
// the ECByteNum Reed-Solomon parity bytes.
func (g Geometry) SymbolSize() int {
	totalBytes := g.ContentLength * g.ContentLength / 8
	return totalBytes - g.ECByteNum - 8
}

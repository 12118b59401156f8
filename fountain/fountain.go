// Package fountain implements a RaptorQ-style rateless decoder: encoding
// symbols accumulate into a GF(2) system of equations per source block
// until each block's rank reaches its symbol count, at which point the
// block (and eventually the whole transfer) is solved.
//
// There is no real Go RaptorQ implementation to ground this package's
// internals on; it follows the external contract observed from the
// original receiver's use of the Java OpenRQ library (FECParameters,
// SourceBlockDecoder, per-block status reporting) rather than RFC 6330's
// internal symbol-combination algorithm.
package fountain

import (
	"encoding/binary"

	screencamera "github.com/zhantong1994/screencamera"
)

// Packet is one recovered encoding symbol: a source block number, an
// encoding symbol ID (its position among that block's source+repair
// symbols), and the symbol payload.
type Packet struct {
	SourceBlockNumber byte
	EncodingSymbolID  uint32 // 24-bit
	Payload           []byte
}

// PacketHeaderSize is the wire size of a Packet's self-describing header: 1
// byte source block number + 3 bytes encoding symbol ID. Callers sizing a
// Decoder from a wire symbol budget that includes this header (as the
// geometry's RS data-region size does) must subtract it first.
const PacketHeaderSize = 4

// ParsePacket decodes a Packet from a Reed-Solomon-corrected payload whose
// leading PacketHeaderSize bytes are the source block number and a 24-bit
// big-endian encoding symbol ID.
func ParsePacket(raw []byte) (Packet, error) {
	if len(raw) <= PacketHeaderSize {
		return Packet{}, screencamera.ErrFountainPacketMalformed
	}
	esi := uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	payload := make([]byte, len(raw)-PacketHeaderSize)
	copy(payload, raw[PacketHeaderSize:])
	return Packet{SourceBlockNumber: raw[0], EncodingSymbolID: esi, Payload: payload}, nil
}

// EncodePacketHeader is the inverse of the header half of ParsePacket, used
// by test fixtures and the transmitter-side tooling this package does not
// otherwise need.
func EncodePacketHeader(sourceBlockNumber byte, esi uint32) []byte {
	return []byte{sourceBlockNumber, byte(esi >> 16), byte(esi >> 8), byte(esi)}
}

// BlockStatus reports one source block's decoding progress.
type BlockStatus struct {
	SourceBlockNumber int
	SymbolCount       int
	Rank              int
	Complete          bool
}

// Decoder accumulates encoding packets for a single file transfer across
// one or more source blocks until every block is solved.
type Decoder struct {
	transferLength int
	symbolSize     int
	blocks         []*blockDecoder
}

// New creates a Decoder for a transfer of transferLength bytes split into
// numSourceBlocks blocks, each made of symbolSize-byte symbols. This
// mirrors FECParameters construction in the original receiver: block sizes
// are as equal as possible, with the first transferLength%numSourceBlocks
// blocks one byte longer than the rest.
func New(transferLength, symbolSize, numSourceBlocks int) *Decoder {
	if numSourceBlocks < 1 {
		numSourceBlocks = 1
	}
	d := &Decoder{transferLength: transferLength, symbolSize: symbolSize}
	base := transferLength / numSourceBlocks
	remainder := transferLength % numSourceBlocks
	offset := 0
	for i := 0; i < numSourceBlocks; i++ {
		blockLen := base
		if i < remainder {
			blockLen++
		}
		symbolCount := (blockLen + symbolSize - 1) / symbolSize
		if symbolCount < 1 {
			symbolCount = 1
		}
		d.blocks = append(d.blocks, newBlockDecoder(i, symbolCount, symbolSize, blockLen, offset))
		offset += blockLen
	}
	return d
}

// Put routes packet to its source block's sub-decoder. A malformed packet
// (wrong payload size, out-of-range block number) is rejected without
// disturbing decoder state.
func (d *Decoder) Put(p Packet) error {
	idx := int(p.SourceBlockNumber)
	if idx < 0 || idx >= len(d.blocks) {
		return screencamera.ErrFountainPacketMalformed
	}
	return d.blocks[idx].put(p)
}

// IsComplete reports whether every source block has reached full rank.
func (d *Decoder) IsComplete() bool {
	for _, b := range d.blocks {
		if !b.complete() {
			return false
		}
	}
	return true
}

// DataBytes materializes the reconstructed transfer. Only valid once
// IsComplete returns true.
func (d *Decoder) DataBytes() []byte {
	out := make([]byte, 0, d.transferLength)
	for _, b := range d.blocks {
		out = append(out, b.bytes()...)
	}
	if len(out) > d.transferLength {
		out = out[:d.transferLength]
	}
	return out
}

// SourceBlockStates reports each block's current rank and completion.
func (d *Decoder) SourceBlockStates() []BlockStatus {
	states := make([]BlockStatus, len(d.blocks))
	for i, b := range d.blocks {
		states[i] = BlockStatus{
			SourceBlockNumber: i,
			SymbolCount:       b.symbolCount,
			Rank:              b.rank,
			Complete:          b.complete(),
		}
	}
	return states
}

// blockDecoder solves one source block's system of equations: each
// accepted packet contributes a row over GF(2) whose coefficients name
// which source symbols it XORs together, reduced online against the rows
// already accepted (forward elimination as each row arrives, so the
// decoder can report completion the instant rank == symbolCount without a
// separate solve pass).
type blockDecoder struct {
	index       int
	symbolCount int
	symbolSize  int
	blockLen    int
	offset      int
	rank        int

	// pivotCoeffs[i]/pivotData[i] are the reduced row whose leading
	// coefficient is at symbol i, or nil if no row has pivoted there yet.
	pivotCoeffs [][]bool
	pivotData   [][]byte
	seen        map[uint32]bool
}

func newBlockDecoder(index, symbolCount, symbolSize, blockLen, offset int) *blockDecoder {
	return &blockDecoder{
		index:       index,
		symbolCount: symbolCount,
		symbolSize:  symbolSize,
		blockLen:    blockLen,
		offset:      offset,
		pivotCoeffs: make([][]bool, symbolCount),
		pivotData:   make([][]byte, symbolCount),
		seen:        make(map[uint32]bool),
	}
}

func (b *blockDecoder) complete() bool { return b.rank >= b.symbolCount }

func (b *blockDecoder) put(p Packet) error {
	if b.complete() {
		return nil
	}
	if len(p.Payload) != b.symbolSize {
		return screencamera.ErrFountainPacketMalformed
	}
	if b.seen[p.EncodingSymbolID] {
		return nil
	}
	b.seen[p.EncodingSymbolID] = true

	coeffs := symbolCoefficients(p.EncodingSymbolID, b.symbolCount)
	data := make([]byte, b.symbolSize)
	copy(data, p.Payload)

	// Reduce against existing pivots.
	for i := 0; i < b.symbolCount; i++ {
		if coeffs[i] && b.pivotCoeffs[i] != nil {
			xorRow(coeffs, b.pivotCoeffs[i])
			xorBytes(data, b.pivotData[i])
		}
	}

	pivot := -1
	for i := 0; i < b.symbolCount; i++ {
		if coeffs[i] {
			pivot = i
			break
		}
	}
	if pivot < 0 {
		// Row reduced to zero: redundant symbol, not new information.
		return nil
	}

	// Back-substitute into existing pivot rows that still reference this
	// new pivot column, keeping the system in reduced row-echelon form so
	// DataBytes never needs a separate solve pass.
	for i := 0; i < b.symbolCount; i++ {
		if b.pivotCoeffs[i] != nil && b.pivotCoeffs[i][pivot] {
			xorRow(b.pivotCoeffs[i], coeffs)
			xorBytes(b.pivotData[i], data)
		}
	}

	b.pivotCoeffs[pivot] = coeffs
	b.pivotData[pivot] = data
	b.rank++
	return nil
}

func (b *blockDecoder) bytes() []byte {
	out := make([]byte, 0, b.symbolCount*b.symbolSize)
	for i := 0; i < b.symbolCount; i++ {
		if b.pivotData[i] == nil {
			out = append(out, make([]byte, b.symbolSize)...)
			continue
		}
		out = append(out, b.pivotData[i]...)
	}
	if len(out) > b.blockLen {
		out = out[:b.blockLen]
	}
	return out
}

func xorRow(dst, src []bool) {
	for i := range dst {
		if src[i] {
			dst[i] = !dst[i]
		}
	}
}

func xorBytes(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// symbolCoefficients returns which of the block's symbolCount source
// symbols encoding symbol esi XORs together. ESIs below symbolCount are
// systematic (the source symbol itself, matching OpenRQ's systematic
// source block layout); ESIs at or above symbolCount are repair symbols
// combining a small deterministic subset of source symbols, chosen by a
// seeded generator so encoder and decoder agree without any coordination
// beyond the ESI itself.
func symbolCoefficients(esi uint32, symbolCount int) []bool {
	coeffs := make([]bool, symbolCount)
	if int(esi) < symbolCount {
		coeffs[esi] = true
		return coeffs
	}
	degree := 2 + int(esi)%3
	state := seedFromESI(esi)
	chosen := make(map[int]bool, degree)
	for len(chosen) < degree && len(chosen) < symbolCount {
		state = nextState(state)
		pos := int(state % uint64(symbolCount))
		chosen[pos] = true
	}
	for pos := range chosen {
		coeffs[pos] = true
	}
	return coeffs
}

func seedFromESI(esi uint32) uint64 {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], esi)
	var h uint64 = 1469598103934665603
	for _, b := range buf {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

func nextState(s uint64) uint64 {
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	return s
}

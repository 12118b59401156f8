// Package header extracts and validates the 5-byte length+CRC header that
// opens every sampled barcode's payload grid.
package header

import (
	screencamera "github.com/zhantong1994/screencamera"
)

// Record is the decoded header: the transmitted file's total byte length
// and the CRC-8 that protected it on the wire.
type Record struct {
	Length uint32
	CRC    byte
}

// crcTable is the CRC-8/ITU-T table (polynomial 0x07, no reflection).
var crcTable [256]byte

func init() {
	const poly = 0x07
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for b := 0; b < 8; b++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CRC8 computes the CRC-8/ITU-T checksum over data: polynomial 0x07,
// initial value 0x00, no reflection in or out, no final XOR. No third-party
// library in the reachable ecosystem implements this exact CRC-8 variant;
// the table-driven construction follows the standard bit-at-a-time
// table-generation idiom used throughout the Go ecosystem (e.g. hash/crc32).
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crcTable[crc^b]
	}
	return crc
}

// Decode reads the first 5 bytes of sampled payload as a length+CRC header.
// length == 0 means "not yet available" (the screen was between
// transmissions) rather than a zero-byte file; callers should retry on the
// next frame rather than treat it as ErrHeaderCRCMismatch.
func Decode(bytes5 []byte) (Record, error) {
	lengthBytes := bytes5[:4]
	length := uint32(lengthBytes[0])<<24 | uint32(lengthBytes[1])<<16 | uint32(lengthBytes[2])<<8 | uint32(lengthBytes[3])
	crc := bytes5[4]
	if CRC8(lengthBytes) != crc {
		return Record{}, screencamera.ErrHeaderCRCMismatch
	}
	return Record{Length: length, CRC: crc}, nil
}

// Encode packs length and its CRC-8 into a 5-byte header, the inverse of
// Decode. Used by tests and by the fountain-packet synthesizer in
// integration tests.
func Encode(length uint32) [5]byte {
	var out [5]byte
	out[0] = byte(length >> 24)
	out[1] = byte(length >> 16)
	out[2] = byte(length >> 8)
	out[3] = byte(length)
	out[4] = CRC8(out[:4])
	return out
}

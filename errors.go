package screencamera

import "errors"

// Sentinel errors for the per-frame pipeline stages. Every stage error is
// frame-local: the driver logs it and drops the frame without changing
// state, except ErrQueueInterrupted (clean exit) and ErrConfigInvalid
// (fatal, surfaced before the driver ever starts).
var (
	// ErrThresholdUnresolvable is returned when a luminance histogram has
	// no resolvable valley between two dominant peaks.
	ErrThresholdUnresolvable = errors.New("screencamera: threshold unresolvable")

	// ErrBorderNotFound is returned when the border finder cannot isolate
	// four corners of the outer barcode frame.
	ErrBorderNotFound = errors.New("screencamera: border not found")

	// ErrHeaderCRCMismatch is returned when the sampled header's CRC-8
	// does not match its length field.
	ErrHeaderCRCMismatch = errors.New("screencamera: header crc mismatch")

	// ErrReedSolomonUncorrectable is returned when the Reed-Solomon
	// decoder's error locator has the wrong degree or locates roots
	// outside the codeword length.
	ErrReedSolomonUncorrectable = errors.New("screencamera: reed-solomon uncorrectable")

	// ErrFountainPacketMalformed is returned when a Reed-Solomon-corrected
	// payload cannot be parsed as a fountain encoding packet.
	ErrFountainPacketMalformed = errors.New("screencamera: fountain packet malformed")

	// ErrQueueInterrupted is returned when the frame queue's blocking
	// receive is cancelled.
	ErrQueueInterrupted = errors.New("screencamera: queue interrupted")

	// ErrConfigInvalid is returned when the loaded configuration fails
	// validation.
	ErrConfigInvalid = errors.New("screencamera: config invalid")
)

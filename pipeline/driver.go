// Package pipeline drives the frame-by-frame receive loop: binarize,
// locate the barcode, sample its content grid twice (normal and
// reverse-polarity), Reed-Solomon correct each reading, and feed the
// recovered bytes to a fountain decoder until the transmitted file is
// fully reconstructed.
package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/zhantong1994/screencamera/binarizer"
	"github.com/zhantong1994/screencamera/config"
	"github.com/zhantong1994/screencamera/fountain"
	"github.com/zhantong1994/screencamera/header"
	"github.com/zhantong1994/screencamera/reedsolomon"
	"github.com/zhantong1994/screencamera/transform"
)

// Stage is one of the three pipeline driver states.
type Stage int

const (
	AwaitingHeader Stage = iota
	Accumulating
	Complete
)

func (s Stage) String() string {
	switch s {
	case AwaitingHeader:
		return "AwaitingHeader"
	case Accumulating:
		return "Accumulating"
	case Complete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Status is pushed to the progress callback once per frame and mirrors
// what a status HTTP surface would report.
type Status struct {
	SessionID        uuid.UUID
	CurrentIndex     int
	LastSuccessIndex int
	FrameTotal       int
	ProcessedCount   int
	Stage            Stage
	Blocks           []fountain.BlockStatus
}

// ProgressFunc receives one Status per frame consumed.
type ProgressFunc func(Status)

// StatusMessageFunc receives free-form status text (state transitions, the
// final SHA-1 digest), mirroring the original driver's console logging.
type StatusMessageFunc func(string)

// FileSink is invoked exactly once, on Complete, with the reconstructed
// bytes and a filename chosen by the driver's caller via Options.Filename.
type FileSink func(data []byte, filename string) error

// BinarizedFrameFunc receives the binarized image for a frame, indexed by
// Status.CurrentIndex, for inspection tooling that wants to see what the
// binarizer actually isolated. Called only for frames that pass
// binarization; never called for frames dropped at threshold/border stage.
type BinarizedFrameFunc func(index int, img *image.Gray)

var (
	framesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screencamera_frames_dropped_total",
			Help: "Frames dropped by the pipeline driver, by reason.",
		},
		[]string{"reason"},
	)
	frameProcessingSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screencamera_frame_processing_seconds",
			Help:    "Per-frame processing latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Options configures one Driver run.
type Options struct {
	Geometry    config.Geometry
	Filename    string
	Sink        FileSink
	OnProgress  ProgressFunc
	OnStatus    StatusMessageFunc
	OnBinarized BinarizedFrameFunc
	FrameTotal  int
	Logger      *slog.Logger
}

// Driver runs the AwaitingHeader -> Accumulating -> Complete state machine
// over a channel of frames, matching the original receiver's VideoToFile
// loop: every frame is sampled twice, once per bit polarity, and a failed
// reading at any stage simply drops that reading without disturbing state.
type Driver struct {
	opts Options
	log  *slog.Logger

	stage            Stage
	sessionID        uuid.UUID
	fileByteLength   uint32
	decoder          *fountain.Decoder
	currentIndex     int
	lastSuccessIndex int
	processedCount   int
}

// New constructs a Driver ready to run. opts.Geometry must already have
// passed validation (config.FromViper/Load do this).
func New(opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{opts: opts, log: opts.Logger, stage: AwaitingHeader}
}

// Run consumes frames until the file is reconstructed, ctx is cancelled, or
// frames is closed. It mirrors the original driver's blocking-queue loop;
// both cancellation and a closed channel end it with ErrQueueInterrupted.
func (d *Driver) Run(ctx context.Context, frames <-chan screencamera.Frame) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				d.log.Info("pipeline cancelled", "stage", d.stage.String())
				return screencamera.ErrQueueInterrupted
			case frame, ok := <-frames:
				if !ok {
					d.log.Info("frame channel closed", "stage", d.stage.String())
					return screencamera.ErrQueueInterrupted
				}
				done, err := d.processFrame(frame)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}
	})
	return eg.Wait()
}

func (d *Driver) processFrame(frame screencamera.Frame) (bool, error) {
	d.currentIndex++
	timer := prometheus.NewTimer(frameProcessingSeconds)
	defer timer.ObserveDuration()

	source := screencamera.NewFrameLuminanceSource(frame)
	matrix, err := binarizer.NewBinaryMatrix(source)
	if err != nil {
		d.drop("threshold_unresolvable", err)
		d.reportProgress()
		return false, nil
	}
	if err := binarizer.FindBorder(matrix); err != nil {
		d.drop("border_not_found", err)
		d.reportProgress()
		return false, nil
	}
	if d.opts.OnBinarized != nil {
		d.opts.OnBinarized(d.currentIndex, screencamera.BitMatrixToImage(matrix))
	}

	w := float64(d.opts.Geometry.BarCodeWidth())
	b := matrix.Borders
	t := transform.QuadrilateralToQuadrilateral(
		0, 0, w, 0, w, w, 0, w,
		float64(b[0]), float64(b[1]), float64(b[2]), float64(b[3]),
		float64(b[4]), float64(b[5]), float64(b[6]), float64(b[7]),
	)
	offset := float64(d.opts.Geometry.FrameBlackLength + d.opts.Geometry.FrameVaryLength + d.opts.Geometry.FrameVaryTwoLength)

	succeeded := false
	for reverse := 0; reverse < 2; reverse++ {
		var cells transform.CellSource = matrix
		if reverse == 1 {
			cells = reversedSource{matrix}
		}
		bits := transform.SampleGridOffset(cells, d.opts.Geometry.ContentLength, d.opts.Geometry.ContentLength, offset, offset, t)
		raw := bitsToBytes(bits)
		if d.tryReading(raw) {
			succeeded = true
		}
	}
	if succeeded {
		d.lastSuccessIndex = d.currentIndex
		d.processedCount++
	}
	d.reportProgress()

	if d.stage == Accumulating && d.decoder.IsComplete() {
		return d.complete()
	}
	return false, nil
}

// tryReading decodes one sampled reading's header (if not yet known),
// Reed-Solomon-corrects the payload region, and routes the recovered
// packet to the fountain decoder. Returns whether the reading yielded a
// usable packet.
func (d *Driver) tryReading(raw []byte) bool {
	if len(raw) < 8 {
		d.drop("short_reading", nil)
		return false
	}

	if d.stage == AwaitingHeader {
		rec, err := header.Decode(raw[:5])
		if err != nil {
			d.drop("header_crc_mismatch", err)
			return false
		}
		if rec.Length == 0 {
			d.drop("header_not_yet_available", nil)
			return false
		}
		d.beginAccumulating(rec.Length)
	}

	geo := d.opts.Geometry
	n := geo.SymbolSize() + geo.ECByteNum
	if len(raw) < 8+n {
		d.drop("short_reading", nil)
		return false
	}
	payload := make([]int, n)
	for i, v := range raw[8 : 8+n] {
		payload[i] = int(v)
	}

	corrected, err := reedsolomon.NewDecoder(reedsolomon.DataMatrixField256).Decode(payload, geo.ECByteNum)
	if err != nil {
		d.drop("reed_solomon_uncorrectable", err)
		return false
	}
	if corrected > 0 {
		d.log.Debug("reed-solomon corrected reading", "corrections", corrected, "session", d.sessionID)
	}

	packetBytes := make([]byte, geo.SymbolSize())
	for i := 0; i < geo.SymbolSize(); i++ {
		packetBytes[i] = byte(payload[i])
	}

	pkt, err := fountain.ParsePacket(packetBytes)
	if err != nil {
		d.drop("fountain_packet_malformed", err)
		return false
	}
	if err := d.decoder.Put(pkt); err != nil {
		d.drop("fountain_packet_malformed", err)
		return false
	}
	for _, bs := range d.decoder.SourceBlockStates() {
		d.log.Debug("source block state", "block", bs.SourceBlockNumber, "rank", bs.Rank, "symbols", bs.SymbolCount, "complete", bs.Complete, "session", d.sessionID)
	}
	return true
}

func (d *Driver) beginAccumulating(fileByteLength uint32) {
	d.sessionID = uuid.New()
	d.fileByteLength = fileByteLength
	geo := d.opts.Geometry
	d.decoder = fountain.New(int(fileByteLength), geo.SymbolSize()-fountain.PacketHeaderSize, geo.NumSourceBlocks)
	d.stage = Accumulating
	d.log.Info("header resolved, accumulating", "fileByteLength", fileByteLength, "session", d.sessionID)
	if d.opts.OnStatus != nil {
		d.opts.OnStatus(fmt.Sprintf("file length %d bytes, awaiting encoding packets", fileByteLength))
	}
}

func (d *Driver) complete() (bool, error) {
	data := d.decoder.DataBytes()
	digest := sha1.Sum(data)
	hexDigest := hex.EncodeToString(digest[:])
	d.stage = Complete
	d.log.Info("reconstruction complete", "sha1", hexDigest, "bytes", len(data), "session", d.sessionID)
	if d.opts.OnStatus != nil {
		d.opts.OnStatus("SHA-1 verification: " + hexDigest)
	}
	if d.opts.Sink != nil {
		if err := d.opts.Sink(data, d.opts.Filename); err != nil {
			return true, fmt.Errorf("screencamera: writing output: %w", err)
		}
	}
	d.reportProgress()
	return true, nil
}

func (d *Driver) drop(reason string, err error) {
	framesDropped.WithLabelValues(reason).Inc()
	if err != nil {
		d.log.Debug("dropped frame", "reason", reason, "error", err, "index", d.currentIndex)
	} else {
		d.log.Debug("dropped frame", "reason", reason, "index", d.currentIndex)
	}
}

func (d *Driver) reportProgress() {
	if d.opts.OnProgress == nil {
		return
	}
	var blocks []fountain.BlockStatus
	if d.decoder != nil {
		blocks = d.decoder.SourceBlockStates()
	}
	d.opts.OnProgress(Status{
		SessionID:        d.sessionID,
		CurrentIndex:     d.currentIndex,
		LastSuccessIndex: d.lastSuccessIndex,
		FrameTotal:       d.opts.FrameTotal,
		ProcessedCount:   d.processedCount,
		Stage:            d.stage,
		Blocks:           blocks,
	})
}

// reversedSource flips polarity on top of a BinaryMatrix's own IsBlack,
// realizing the second of the two per-frame readings the original driver
// takes by toggling a `reverse` flag between samplings.
type reversedSource struct {
	m *binarizer.BinaryMatrix
}

func (r reversedSource) IsBlack(x, y int) bool { return !r.m.IsBlack(x, y) }
func (r reversedSource) Width() int            { return r.m.Width() }
func (r reversedSource) Height() int           { return r.m.Height() }

// bitGrid is the subset of bitutil.BitMatrix's API bitsToBytes needs.
type bitGrid interface {
	Width() int
	Height() int
	Get(x, y int) bool
}

// bitsToBytes packs a row-major bit matrix MSB-first, 8 bits per byte,
// matching the wire format's content-grid packing.
func bitsToBytes(bits bitGrid) []byte {
	w, h := bits.Width(), bits.Height()
	total := w * h
	out := make([]byte, (total+7)/8)
	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bits.Get(x, y) {
				out[idx/8] |= 1 << uint(7-idx%8)
			}
			idx++
		}
	}
	return out
}

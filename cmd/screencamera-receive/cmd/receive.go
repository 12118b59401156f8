package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/zhantong1994/screencamera/pipeline"
)

var outputPath string

var receiveCmd = &cobra.Command{
	Use:   "receive [frame-image]...",
	Short: "Decode a sequence of frame images into the original file",
	Long: `receive reads each argument as an image file (PNG/JPEG) representing one
captured video frame, feeds them through the pipeline driver in argument
order, and writes the reconstructed file once the fountain decoder reports
completion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		geo, err := loadGeometry()
		if err != nil {
			return fmt.Errorf("loading geometry: %w", err)
		}

		frames := make(chan screencamera.Frame, 4)
		go func() {
			defer close(frames)
			for _, path := range args {
				frame, err := loadFrame(path)
				if err != nil {
					slog.Warn("skipping unreadable frame", "path", path, "error", err)
					continue
				}
				frames <- frame
			}
		}()

		driver := pipeline.New(pipeline.Options{
			Geometry:   geo,
			Filename:   outputPath,
			FrameTotal: len(args),
			Sink: func(data []byte, filename string) error {
				if filename == "" {
					filename = "output.bin"
				}
				return os.WriteFile(filename, data, 0o644)
			},
			OnStatus:    func(msg string) { fmt.Fprintln(cmd.OutOrStdout(), msg) },
			OnBinarized: newDebugSink(debugDir),
			OnProgress: func(st pipeline.Status) {
				slog.Debug("progress", "index", st.CurrentIndex, "lastSuccess", st.LastSuccessIndex, "stage", st.Stage.String())
			},
		})

		if err := driver.Run(context.Background(), frames); err != nil && err != screencamera.ErrQueueInterrupted {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVarP(&outputPath, "output", "o", "output.bin", "path to write the reconstructed file")
}

func loadFrame(path string) (screencamera.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return screencamera.Frame{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return screencamera.Frame{}, fmt.Errorf("decode image: %w", err)
	}
	var source screencamera.LuminanceSource
	if gray, ok := img.(*image.Gray); ok {
		// Already 8-bit greyscale: use the pixel data directly rather than
		// re-deriving luminance from RGB.
		source = screencamera.NewGrayImageLuminanceSource(gray)
	} else {
		source = screencamera.NewImageLuminanceSource(img)
	}
	return screencamera.Frame{
		Pixels: source.Matrix(),
		Width:  source.Width(),
		Height: source.Height(),
	}, nil
}

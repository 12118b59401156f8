package cmd

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/zhantong1994/screencamera/config"
	"github.com/zhantong1994/screencamera/pipeline"
)

var (
	cfgFile       string
	debugDir      string
	hintOverrides []string
)

var rootCmd = &cobra.Command{
	Use:   "screencamera-receive",
	Short: "Receive a screen-to-camera barcode transmission",
	Long: `screencamera-receive decodes a sequence of captured video frames, each
containing one two-dimensional barcode, back into the original file bytes.

Examples:
  screencamera-receive receive --config geometry.json frames/*.png
  screencamera-receive serve --config geometry.json --port 8080 frames/*.png`,
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "barcode geometry JSON config file (required)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&debugDir, "debug-dir", "", "if set, write each frame's binarized image here as <index>.png for inspection")
	rootCmd.PersistentFlags().StringArrayVar(&hintOverrides, "hint", nil, "override a config hints entry as key=value (may be repeated)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initLogging() {
	level := slog.LevelInfo
	switch viper.GetString("log_level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadGeometry reads the config file named by --config, then applies any
// --hint key=value overrides on top before validating, via config.FromViper
// (config.Load has no hook for flag overrides since it builds its own
// private viper.Viper internally).
func loadGeometry() (config.Geometry, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return config.Geometry{}, fmt.Errorf("%w: %v", screencamera.ErrConfigInvalid, err)
	}
	for _, kv := range hintOverrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return config.Geometry{}, fmt.Errorf("%w: --hint %q must be key=value", screencamera.ErrConfigInvalid, kv)
		}
		v.Set("hints."+key, value)
	}
	return config.FromViper(v)
}

// newDebugSink returns a pipeline.BinarizedFrameFunc that writes each
// frame's binarized image to dir as "<index>.png", or nil if dir is empty.
func newDebugSink(dir string) pipeline.BinarizedFrameFunc {
	if dir == "" {
		return nil
	}
	return func(index int, img *image.Gray) {
		path := filepath.Join(dir, fmt.Sprintf("%d.png", index))
		f, err := os.Create(path)
		if err != nil {
			slog.Warn("could not create debug frame file", "path", path, "error", err)
			return
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			slog.Warn("could not encode debug frame", "path", path, "error", err)
		}
	}
}

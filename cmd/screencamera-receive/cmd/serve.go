package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	screencamera "github.com/zhantong1994/screencamera"
	"github.com/zhantong1994/screencamera/pipeline"
	"github.com/zhantong1994/screencamera/statusserver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve [frame-image]...",
	Short: "Decode frames while exposing progress over HTTP",
	Long: `serve behaves like receive, but also starts a status HTTP server
exposing GET /status and GET /healthz so an external UI can poll
reconstruction progress instead of watching stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		geo, err := loadGeometry()
		if err != nil {
			return fmt.Errorf("loading geometry: %w", err)
		}

		status := statusserver.New()
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           status.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("status server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("status server error", "error", err)
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			slog.Info("received shutdown signal")
			cancel()
		}()

		frames := make(chan screencamera.Frame, 4)
		go func() {
			defer close(frames)
			for _, path := range args {
				frame, err := loadFrame(path)
				if err != nil {
					slog.Warn("skipping unreadable frame", "path", path, "error", err)
					continue
				}
				select {
				case frames <- frame:
				case <-ctx.Done():
					return
				}
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
			OnProgress:  status.Observe,
		})

		runErr := driver.Run(ctx, frames)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)

		if runErr != nil && runErr != screencamera.ErrQueueInterrupted {
			return runErr
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "status server port")
	serveCmd.Flags().StringVarP(&outputPath, "output", "o", "output.bin", "path to write the reconstructed file")
}

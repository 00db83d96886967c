package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/mixengine/pkg/backend/portaudiobackend"
	"github.com/drgolem/mixengine/pkg/engine"
	"github.com/drgolem/mixengine/pkg/source"
	"github.com/spf13/cobra"
)

var (
	mixDeviceIdx int
	mixFrames    int
	mixVerbose   bool
)

// mixCmd represents the mix command: every file argument becomes its own
// source, all rendered and summed together by one mixer, simultaneously.
var mixCmd = &cobra.Command{
	Use:   "mix <audio_file> [audio_file...]",
	Short: "Mix and play multiple audio files simultaneously",
	Long: `Plays every listed audio file at once through the real-time mixing
engine, each as its own source with independent volume.

Examples:
  # Mix two files together
  mixengine mix drums.wav bass.flac

  # Mix on a specific device
  mixengine mix -d 0 music/*.mp3`,
	Args: cobra.MinimumNArgs(1),
	Run:  runMix,
}

func init() {
	rootCmd.AddCommand(mixCmd)

	mixCmd.Flags().IntVarP(&mixDeviceIdx, "device", "d", 1, "Audio output device index")
	mixCmd.Flags().IntVarP(&mixFrames, "frames", "f", 512, "Audio frames per device callback")
	mixCmd.Flags().BoolVarP(&mixVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runMix(cmd *cobra.Command, args []string) {
	logLevel := slog.LevelInfo
	if mixVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	files := args

	cfg := engine.Config{
		SampleRate:      defaultEngineSampleRate,
		Channels:        defaultEngineChannels,
		FramesPerBuffer: mixFrames,
		DeviceIndex:     mixDeviceIdx,
	}

	slog.Info("Starting engine",
		"device_index", mixDeviceIdx,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frames_per_buffer", mixFrames,
		"file_count", len(files))

	h, err := engine.New(cfg, portaudiobackend.New(), logger)
	if err != nil {
		slog.Error("Failed to initialize engine", "error", err)
		os.Exit(1)
	}
	defer h.Close()

	ids := make([]string, 0, len(files))
	for i, fileName := range files {
		id := fmt.Sprintf("file-%d", i)
		slog.Info("Adding source", "id", id, "file", fileName)
		if _, err := h.AddFileSource(id, fileName, fileName); err != nil {
			slog.Error("Failed to open file, skipping", "file", fileName, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		slog.Error("No files could be opened")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Starting playback")
	if err := h.Play(); err != nil {
		slog.Error("Failed to start playback", "error", err)
		os.Exit(1)
	}

	statusDone := make(chan struct{})
	go monitorMix(h, ids, cfg.SampleRate, statusDone)

	done := make(chan struct{})
	go waitForAll(h, ids, done)

	select {
	case <-done:
		slog.Info("All sources completed")
	case sig := <-sigChan:
		slog.Info("Signal received, stopping playback", "signal", sig)
		if err := h.Stop(); err != nil {
			slog.Error("Failed to stop engine", "error", err)
		}
	}

	close(statusDone)
	slog.Info("Exiting")
}

// waitForAll closes done once every listed source has reached a terminal
// state: EndOfStream, Errored, or removed. Buffering/Playing/Paused all
// count as still running.
func waitForAll(h *engine.Handle, ids []string, done chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		anyRunning := false
		for _, id := range ids {
			s, ok := h.Source(id)
			if !ok {
				continue
			}
			switch s.State() {
			case source.StateEndOfStream, source.StateErrored, source.StateStopped:
			default:
				anyRunning = true
			}
			if anyRunning {
				break
			}
		}
		if !anyRunning {
			close(done)
			return
		}
	}
}

func monitorMix(h *engine.Handle, ids []string, sampleRate int, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, id := range ids {
				pos, err := h.Position(id)
				if err != nil {
					continue
				}
				dur, _ := h.Duration(id)
				slog.Info("Playback status",
					"source_id", id,
					"elapsed", formatDuration(time.Duration(float64(pos)/float64(sampleRate)*float64(time.Second))),
					"total", formatDuration(time.Duration(float64(dur)/float64(sampleRate)*float64(time.Second))))
			}
			for _, ev := range h.Errors() {
				slog.Warn("Source error", "source_id", ev.SourceID, "kind", ev.Kind, "error", ev.Err)
			}
		case <-done:
			return
		}
	}
}

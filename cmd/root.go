package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mixengine",
	Short: "Multi-source real-time audio mixing and playback engine",
	Long: `mixengine - a multi-source, real-time audio mixing and playback engine.

Features:
  - Lock-free SPSC queues feeding a real-time mixer callback
  - Per-source volume, tempo/pitch, and effect chains
  - Support for MP3, FLAC, and WAV source files
  - Sample rate and channel-layout adaptation per source
  - Thread-safe audio render path with pool-rented mixer scratch buffers
    (the device callback and the per-source stretch/resample stages
    allocate)

Commands:
  - play: Play one audio file through the mixing engine
  - mix: Mix and play several audio files simultaneously
  - transform: Convert audio files to different sample rates and WAV format`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// A program's main function calls it once; it exits with status 1 on error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/drgolem/mixengine/pkg/engine"
)

// monitorSource logs a registered source's playback position every 2
// seconds until done is closed, in the same periodic-status-line idiom
// the original single-file player used.
func monitorSource(h *engine.Handle, id, fileName string, sampleRate int, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pos, err := h.Position(id)
			if err != nil {
				return
			}
			dur, _ := h.Duration(id)

			elapsed := time.Duration(float64(pos) / float64(sampleRate) * float64(time.Second))
			total := time.Duration(float64(dur) / float64(sampleRate) * float64(time.Second))

			slog.Info("Playback status",
				"file", fileName,
				"elapsed", formatDuration(elapsed),
				"total", formatDuration(total))

			for _, ev := range h.Errors() {
				slog.Warn("Source error", "source_id", ev.SourceID, "kind", ev.Kind, "error", ev.Err)
			}
		case <-done:
			return
		}
	}
}

func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

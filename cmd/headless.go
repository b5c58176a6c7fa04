package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/icon"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/player"
	"github.com/sampletvinput/tvplay/style"
)

// headless prints player notifications as lines and reports the end of
// playback on done.
type headless struct {
	out  io.Writer
	done chan error
}

func newHeadless(out io.Writer) *headless {
	return &headless{out: out, done: make(chan error, 1)}
}

func (h *headless) finish(err error) {
	select {
	case h.done <- err:
	default:
	}
}

func (h *headless) printf(i icon.Icon, format string, args ...any) {
	_, _ = fmt.Fprintf(h.out, "%s %s\n", icon.Get(i), fmt.Sprintf(format, args...))
}

func (h *headless) OnStateChanged(playWhenReady bool, state player.PlaybackState) {
	log.Infof("state %s, play when ready %t", state, playWhenReady)

	switch state {
	case player.StateBuffering:
		h.printf(icon.Buffering, "buffering")
	case player.StateReady:
		if playWhenReady {
			h.printf(icon.Playing, "playing")
		} else {
			h.printf(icon.Paused, "paused")
		}
	case player.StateEnded:
		h.printf(icon.Ended, "ended")
		h.finish(nil)
	}
}

func (h *headless) OnError(err error) {
	h.finish(err)
}

func (h *headless) OnVideoSizeChanged(width, height, rotation int, ratio float32) {
	log.Infof("video size %dx%d, rotation %d, pixel ratio %.2f", width, height, rotation, ratio)
	h.printf(icon.Progress, "video %s", style.Fg(color.Cyan)(fmt.Sprintf("%dx%d", width, height)))
}

func (h *headless) OnMetadata(frames []player.MetadataFrame) {
	for _, f := range frames {
		h.printf(icon.Progress, "%s: %s", style.Faint(f.Key), f.Value)
	}
}

func (h *headless) OnStarted()   { log.Info("started") }
func (h *headless) OnPaused()    { log.Info("paused") }
func (h *headless) OnCompleted() { log.Info("completed") }

// diagnostics logs the player's internal errors and track information.
type diagnostics struct{}

func (diagnostics) OnRendererInitializationError(err error) {
	log.Errorf("renderer initialization: %s", err)
}

func (diagnostics) OnLoadError(err error) {
	log.Errorf("load: %s", err)
}

func (diagnostics) OnVideoFormatEnabled(f player.Format) {
	log.WithFields(log.LevelInfo, log.Fields{
		"id": f.ID, "mime": f.MimeType, "codecs": f.Codecs,
		"bitrate": f.Bitrate, "width": f.Width, "height": f.Height, "fps": f.FrameRate,
	}, "video format enabled")
}

func (diagnostics) OnAudioFormatEnabled(f player.Format) {
	log.WithFields(log.LevelInfo, log.Fields{
		"id": f.ID, "mime": f.MimeType, "codecs": f.Codecs,
		"bitrate": f.Bitrate, "language": f.Language,
	}, "audio format enabled")
}

func (diagnostics) OnLoadingChanged(loading bool) {
	log.Debugf("loading %t", loading)
}

func (diagnostics) OnBandwidthSample(elapsed time.Duration, bytes int64, estimate float64) {
	log.WithFields(log.LevelDebug, log.Fields{
		"elapsed": elapsed, "bytes": bytes, "estimate": fmt.Sprintf("%.0f kbit/s", estimate/1000),
	}, "bandwidth sample")
}

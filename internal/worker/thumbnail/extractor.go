// Package thumbnail grabs a still frame from a rendered video with ffmpeg.
package thumbnail

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scenecast/internal/pkg/logger"
)

// Offset is the timestamp, in seconds, of the extracted frame.
const Offset = "1"

type Extractor struct {
	ffmpeg string
	dir    string
	log    *logger.Logger
}

// New returns an Extractor writing into dir.
func New(ffmpegPath, dir string, log *logger.Logger) *Extractor {
	return &Extractor{ffmpeg: ffmpegPath, dir: dir, log: log.WithComponent("thumbnail")}
}

// Extract writes the frame at Offset of videoPath to dir/outputName,
// overwriting an existing file. It never fails the caller: on any problem it
// logs a warning and reports ok=false.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputName string) (path string, ok bool) {
	log := e.log.FromContext(ctx)
	out := filepath.Join(e.dir, filepath.Base(outputName))

	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-i", videoPath,
		"-ss", Offset,
		"-vframes", "1",
		"-y",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Warn("thumbnail extraction failed",
			"video", videoPath,
			"error", err.Error(),
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return "", false
	}
	if _, err := os.Stat(out); err != nil {
		log.Warn("thumbnail was not created", "video", videoPath, "path", out)
		return "", false
	}

	log.Info("thumbnail generated", "path", out)
	return out, true
}

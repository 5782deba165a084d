package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// MediaInfo is what a deck needs to know about an opened source.
type MediaInfo struct {
	// Duration in seconds.
	Duration float64
}

// MediaOpener opens a media source and reports its properties. Decoding,
// time-stretch resampling and the actual sample path are the opener's
// platform concern; the deck only tracks transport state against the
// reported duration.
type MediaOpener interface {
	Open(ctx context.Context, url string) (*MediaInfo, error)
}

// FFprobeOpener probes sources with ffprobe. It works for local paths and
// for anything ffprobe can fetch (http, etc.).
type FFprobeOpener struct {
	ffprobePath string
}

// NewFFprobeOpener creates an opener using the given ffprobe binary.
func NewFFprobeOpener(ffprobePath string) *FFprobeOpener {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeOpener{ffprobePath: ffprobePath}
}

// Open probes the source and returns its duration.
func (o *FFprobeOpener) Open(ctx context.Context, url string) (*MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		url,
	}

	cmd := exec.CommandContext(ctx, o.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w: %s", url, err, stderr.String())
	}

	var probeData struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", url, err)
	}
	if probeData.Format.Duration == "" {
		return nil, fmt.Errorf("duration not found in ffprobe output for %s", url)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q for %s: %w", probeData.Format.Duration, url, err)
	}

	return &MediaInfo{Duration: duration}, nil
}

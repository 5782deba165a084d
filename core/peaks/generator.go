package peaks

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"

	"FretLab/config"
	"FretLab/logger"
	"FretLab/model"
)

const (
	// decodeSampleRate is the rate the audio is resampled to before
	// summarizing. One mono channel at 44.1kHz keeps the chunk math simple.
	decodeSampleRate = 44100
	sampleBytes      = 4 // f32le
)

// Generator summarizes an audio stream into a fixed-resolution amplitude
// envelope by piping it through ffmpeg as raw mono float samples.
type Generator struct {
	ffmpegPath      string
	pointsPerSecond int
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		ffmpegPath:      cfg.FFmpegPath,
		pointsPerSecond: cfg.PeaksPointsPerSecond,
	}
}

// Generate decodes the audio read from r and returns its peak envelope. The
// source container format is whatever ffmpeg can sniff from the stream.
func (g *Generator) Generate(ctx context.Context, r io.Reader) (*model.PeakSummary, error) {
	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-i", "pipe:0",
		"-f", "f32le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", decodeSampleRate),
		"-v", "error",
		"pipe:1",
	)
	cmd.Stdin = r

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	summary, sumErr := Summarize(stdout, g.pointsPerSecond)

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	if sumErr != nil {
		return nil, sumErr
	}

	logger.Debug("generated peak envelope",
		logger.Int("points", len(summary.Data)),
		logger.Int("pointsPerSecond", summary.PointsPerSecond))
	return summary, nil
}

// Summarize folds a raw f32le mono sample stream into one peak per chunk,
// where a chunk is sampleRate/pointsPerSecond samples. The peak of a chunk
// is the maximum absolute sample value in it; a trailing partial chunk still
// yields a point.
func Summarize(r io.Reader, pointsPerSecond int) (*model.PeakSummary, error) {
	if pointsPerSecond <= 0 {
		return nil, fmt.Errorf("invalid pointsPerSecond: %d", pointsPerSecond)
	}
	chunkSamples := decodeSampleRate / pointsPerSecond
	if chunkSamples < 1 {
		return nil, fmt.Errorf("pointsPerSecond %d exceeds the decode rate %d", pointsPerSecond, decodeSampleRate)
	}

	var (
		data    []float64
		peak    float64
		inChunk int
		buf     = make([]byte, chunkSamples*sampleBytes)
		rem     []byte
	)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			raw := buf[:n]
			if len(rem) > 0 {
				raw = append(rem, raw...)
				rem = nil
			}
			// A read may split a float across its boundary; carry the tail.
			if cut := len(raw) % sampleBytes; cut != 0 {
				rem = append(rem, raw[len(raw)-cut:]...)
				raw = raw[:len(raw)-cut]
			}

			for i := 0; i+sampleBytes <= len(raw); i += sampleBytes {
				bits := binary.LittleEndian.Uint32(raw[i:])
				v := math.Abs(float64(math.Float32frombits(bits)))
				if v > peak {
					peak = v
				}
				inChunk++
				if inChunk == chunkSamples {
					data = append(data, peak)
					peak = 0
					inChunk = 0
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
	}

	if inChunk > 0 {
		data = append(data, peak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	return &model.PeakSummary{
		Data:            data,
		PointsPerSecond: pointsPerSecond,
	}, nil
}

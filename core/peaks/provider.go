package peaks

import (
	"context"
	"encoding/json"

	"FretLab/cache"
	"FretLab/logger"
	"FretLab/model"
	"FretLab/storage"
)

// Provider resolves a stem's peak envelope through cache, object storage and
// on-demand generation, in that order. It deliberately never returns an
// error: waveform peaks are a rendering optimization, and a session must
// open even when every tier fails. Callers treat nil as "no peaks".
type Provider struct {
	gen *Generator
}

func NewProvider(gen *Generator) *Provider {
	return &Provider{gen: gen}
}

// FetchPeaks returns the peak envelope for one lesson stem, or nil when it
// cannot be resolved.
func (p *Provider) FetchPeaks(ctx context.Context, lessonID, track string) *model.PeakSummary {
	if !model.ValidTrack(track) {
		logger.Warn("peak fetch for unknown track",
			logger.String("lessonId", lessonID),
			logger.String("track", track))
		return nil
	}

	if summary, err := cache.GetPeaks(ctx, lessonID, track); err == nil && summary != nil {
		return summary
	}

	if summary := p.fromStorage(ctx, lessonID, track); summary != nil {
		p.remember(ctx, lessonID, track, summary)
		return summary
	}

	summary := p.generate(ctx, lessonID, track)
	if summary == nil {
		return nil
	}
	p.remember(ctx, lessonID, track, summary)
	p.persist(ctx, lessonID, track, summary)
	return summary
}

// fromStorage loads a previously persisted envelope from object storage.
func (p *Provider) fromStorage(ctx context.Context, lessonID, track string) *model.PeakSummary {
	raw, err := storage.GetPeaks(ctx, lessonID, track)
	if err != nil {
		logger.Warn("peaks storage read failed",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.ErrorField(err))
		return nil
	}
	if raw == nil {
		return nil
	}

	var summary model.PeakSummary
	if err := json.Unmarshal(raw, &summary); err != nil || len(summary.Data) == 0 {
		logger.Warn("stored peaks are corrupt, regenerating",
			logger.String("lessonId", lessonID),
			logger.String("track", track))
		return nil
	}
	return &summary
}

// generate decodes the stem's audio straight out of object storage.
func (p *Provider) generate(ctx context.Context, lessonID, track string) *model.PeakSummary {
	obj, err := storage.GetAudio(ctx, lessonID, track)
	if err != nil {
		logger.Warn("audio fetch for peak generation failed",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.ErrorField(err))
		return nil
	}
	defer obj.Close()

	summary, err := p.gen.Generate(ctx, obj)
	if err != nil {
		logger.Error("peak generation failed",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.ErrorField(err))
		return nil
	}
	return summary
}

func (p *Provider) remember(ctx context.Context, lessonID, track string, summary *model.PeakSummary) {
	if err := cache.SetPeaks(ctx, lessonID, track, summary); err != nil {
		logger.Warn("peaks cache write failed",
			logger.String("lessonId", lessonID),
			logger.ErrorField(err))
	}
}

func (p *Provider) persist(ctx context.Context, lessonID, track string, summary *model.PeakSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := storage.UploadPeaks(ctx, lessonID, track, raw); err != nil {
		logger.Warn("peaks storage write failed",
			logger.String("lessonId", lessonID),
			logger.ErrorField(err))
	}
}

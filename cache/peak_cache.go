package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FretLab/db"
	"FretLab/logger"
	"FretLab/model"

	"github.com/redis/go-redis/v9"
)

// Peak summaries are small (a few hundred KB at 100 points/second) and
// immutable once generated, so they cache well. A miss is not an error:
// callers fall through to storage or on-demand generation.

const peakCacheTTL = 24 * time.Hour

func peakKey(lessonID, track string) string {
	return fmt.Sprintf("peaks:%s:%s", lessonID, track)
}

// SetPeaks stores a peak summary for a lesson stem.
func SetPeaks(ctx context.Context, lessonID, track string, peaks *model.PeakSummary) error {
	if peaks == nil {
		return nil
	}

	data, err := json.Marshal(peaks)
	if err != nil {
		return fmt.Errorf("failed to marshal peaks: %w", err)
	}

	key := peakKey(lessonID, track)
	if err := db.RedisClient.Set(ctx, key, data, peakCacheTTL).Err(); err != nil {
		logger.Error("failed to set peak cache",
			logger.String("key", key),
			logger.Int("dataSize", len(data)),
			logger.ErrorField(err))
		return err
	}

	logger.Debug("peak cache set",
		logger.String("key", key),
		logger.Int("points", len(peaks.Data)))
	return nil
}

// GetPeaks returns the cached peak summary, or (nil, nil) on a miss.
// Transient Redis failures are also reported as a miss so the caller can
// continue to storage.
func GetPeaks(ctx context.Context, lessonID, track string) (*model.PeakSummary, error) {
	key := peakKey(lessonID, track)

	data, err := db.RedisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			logger.Debug("peak cache miss", logger.String("key", key))
			return nil, nil
		}
		logger.Warn("failed to get peak cache, falling through to storage",
			logger.String("key", key),
			logger.ErrorField(err))
		return nil, nil
	}

	var peaks model.PeakSummary
	if err := json.Unmarshal(data, &peaks); err != nil {
		logger.Warn("corrupt peak cache entry, dropping",
			logger.String("key", key),
			logger.ErrorField(err))
		db.RedisClient.Del(ctx, key)
		return nil, nil
	}

	return &peaks, nil
}

// DeletePeaks removes cached peaks for a lesson, both stems.
func DeletePeaks(ctx context.Context, lessonID string) error {
	keys := []string{
		peakKey(lessonID, model.TrackGuitar),
		peakKey(lessonID, model.TrackVocals),
	}
	if err := db.RedisClient.Del(ctx, keys...).Err(); err != nil {
		logger.Error("failed to delete peak cache",
			logger.String("lessonId", lessonID),
			logger.ErrorField(err))
		return err
	}
	return nil
}

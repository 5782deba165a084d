package peaks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"FretLab/logger"
	"FretLab/model"
)

// HTTPProvider fetches peak envelopes from a remote peaks endpoint, for
// clients that embed the player core but keep their audio on another
// FretLab instance. Same contract as Provider: any failure is a nil result,
// never an error.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchPeaks GETs /api/lessons/{id}/peaks/{track} and parses the envelope.
// Non-2xx, transport errors and malformed bodies all resolve to nil.
func (p *HTTPProvider) FetchPeaks(ctx context.Context, lessonID, track string) *model.PeakSummary {
	url := fmt.Sprintf("%s/api/lessons/%s/peaks/%s", p.baseURL, lessonID, track)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Warn("remote peaks fetch failed",
			logger.String("url", url),
			logger.ErrorField(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("remote peaks unavailable",
			logger.String("url", url),
			logger.Int("status", resp.StatusCode))
		return nil
	}

	var summary model.PeakSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil || len(summary.Data) == 0 {
		logger.Warn("remote peaks response malformed", logger.String("url", url))
		return nil
	}
	return &summary
}

package model

// PeakSummary is a compact amplitude envelope of one audio stem, used to
// render a waveform without decoding the full file. Read-only once attached
// to a deck.
type PeakSummary struct {
	Data            []float64 `json:"data"`
	PointsPerSecond int       `json:"points_per_second"`
}

// Duration returns the audio duration implied by the peak count, in seconds.
func (p *PeakSummary) Duration() float64 {
	if p == nil || p.PointsPerSecond <= 0 {
		return 0
	}
	return float64(len(p.Data)) / float64(p.PointsPerSecond)
}

package model

import "time"

// PracticeLog is one practice-journal entry: what was practiced on a day,
// for how long, and how it felt.
type PracticeLog struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Date            string    `json:"date" gorm:"size:10;not null;index"` // YYYY-MM-DD
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes" gorm:"type:text"`
	Tags            TagList   `json:"tags" gorm:"type:json"`
	Sentiment       string    `json:"sentiment" gorm:"size:32"`
	CreatedAt       time.Time `json:"created_at"`
}

// HeatmapCell aggregates one practiced day for the activity heatmap.
type HeatmapCell struct {
	Date     string `json:"date"`
	Count    int    `json:"count"`
	Duration int    `json:"duration"`
}

// PracticeStats is the dashboard aggregate over the whole journal.
type PracticeStats struct {
	Heatmap      []HeatmapCell `json:"heatmap"`
	TotalMinutes int           `json:"total_minutes"`
	WeekMinutes  int           `json:"week_minutes"`
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TagList stores a list of tags as a JSON column so GORM can scan it
// without a join table.
type TagList []string

// Scan implements sql.Scanner.
func (t *TagList) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*t = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*t = nil
		return nil
	}
	return json.Unmarshal(bytes, t)
}

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Track types of the two stems derived from a lesson recording.
const (
	TrackGuitar = "guitar"
	TrackVocals = "vocals"
)

// ValidTrack reports whether t names a known stem.
func ValidTrack(t string) bool {
	return t == TrackGuitar || t == TrackVocals
}

// Lesson is one processed lesson recording: two stems plus review metadata.
// The separation pipeline that produces the stems lives outside this service;
// a Lesson row only appears once its stems exist in storage.
type Lesson struct {
	ID    string  `json:"id" gorm:"primaryKey;size:64"`
	Title string  `json:"title" gorm:"size:200;not null"`
	Memo  string  `json:"memo" gorm:"type:text"`
	Tags  TagList `json:"tags" gorm:"type:json"`
	// Transcript of the spoken explanation, produced by the external
	// transcription step. Lines carry timestamps the client can seek from.
	Transcript string    `json:"transcript,omitempty" gorm:"type:text"`
	Duration   float64   `json:"duration"` // seconds, from the guitar stem
	BPM        float64   `json:"bpm"`
	MusicKey   string    `json:"key" gorm:"column:music_key;size:16"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

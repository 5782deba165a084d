package model

import "time"

// Lick is a saved excerpt of a lesson: a committed [start,end) region with
// review metadata. Opening a lick re-creates the region on the player.
type Lick struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"` // uuid
	LessonID  string    `json:"lessonId" gorm:"index;size:64;not null"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Tags      TagList   `json:"tags" gorm:"type:json"`
	Start     float64   `json:"start" gorm:"not null"`
	End       float64   `json:"end" gorm:"not null"`
	Memo      string    `json:"memo" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

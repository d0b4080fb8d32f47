package model

import "time"

// Location is a named storage slot. Capacity is advisory only.
type Location struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"`
	Capacity  int       `gorm:"not null;default:1" json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

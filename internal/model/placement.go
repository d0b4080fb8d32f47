package model

import "time"

// Placement is an immutable record of where a machine was put, or, with a nil
// LocationID, that it was delivered out. ID is the store-assigned sequence used
// to break timestamp ties.
type Placement struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID  string    `gorm:"size:6;not null;index:idx_placements_machine_ts,priority:1" json:"machine_id"`
	LocationID *string   `gorm:"size:128" json:"location_id"`
	Timestamp  time.Time `gorm:"not null;index;index:idx_placements_machine_ts,priority:2" json:"timestamp"`
	UserEmail  string    `gorm:"size:320;not null" json:"user_email"`
}

// Delivered reports whether the placement records a delivery out of storage.
func (p Placement) Delivered() bool {
	return p.LocationID == nil
}

// Location returns the location id, or "" for a delivery.
func (p Placement) Location() string {
	if p.LocationID == nil {
		return ""
	}
	return *p.LocationID
}

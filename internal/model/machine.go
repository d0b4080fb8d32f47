package model

import "time"

// MachineStatus is the lifecycle state of a tracked machine.
type MachineStatus string

const (
	StatusInUse     MachineStatus = "in_use"
	StatusDelivered MachineStatus = "delivered"
)

// Machine is a physical machine identified by its CCxxxx label.
type Machine struct {
	ID        string        `gorm:"primaryKey;size:6" json:"id"`
	Status    MachineStatus `gorm:"size:16;not null;default:in_use" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

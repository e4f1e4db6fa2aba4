package model

import "time"

// EquipmentStatus describes the operational state of an equipment item.
type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "AVAILABLE"
	EquipmentInUse       EquipmentStatus = "IN_USE"
	EquipmentMaintenance EquipmentStatus = "MAINTENANCE"
)

// Equipment represents a reservable laboratory instrument.
type Equipment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:256;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Location    string          `gorm:"size:128" json:"location,omitempty"`
	Available   bool            `gorm:"not null" json:"available"`
	Status      EquipmentStatus `gorm:"size:16;not null;default:AVAILABLE" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Reservable reports whether new reservations may be submitted for the item.
func (e *Equipment) Reservable() bool {
	return e.Available && e.Status != EquipmentMaintenance
}

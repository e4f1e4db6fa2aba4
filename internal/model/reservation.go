package model

import (
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "PENDING"
	StatusApproved ReservationStatus = "APPROVED"
	StatusRejected ReservationStatus = "REJECTED"
	StatusOngoing  ReservationStatus = "ONGOING"
	StatusFinished ReservationStatus = "FINISHED"
)

// Statuses lists every recognized reservation status.
var Statuses = []ReservationStatus{StatusPending, StatusApproved, StatusRejected, StatusOngoing, StatusFinished}

// Valid reports whether s is one of the recognized statuses.
func (s ReservationStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Reservation is a time-bounded request to use an equipment item.
// Exactly one of UserID and TeamID is set.
type Reservation struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	EquipmentID    uint              `gorm:"index;not null" json:"equipmentId"`
	UserID         *uint             `gorm:"index" json:"userId,omitempty"`
	TeamID         *uint             `gorm:"index" json:"teamId,omitempty"`
	CreatedByID    uint              `gorm:"not null" json:"createdById"`
	StartDate      time.Time         `gorm:"not null;index" json:"startDate"`
	EndDate        time.Time         `gorm:"not null;index" json:"endDate"`
	Status         ReservationStatus `gorm:"size:16;not null;index;default:PENDING" json:"status"`
	Notes          string            `gorm:"type:text" json:"notes,omitempty"`
	ReminderSentAt *time.Time        `json:"-"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	// Associations
	Equipment *Equipment `gorm:"constraint:OnDelete:RESTRICT" json:"equipment,omitempty"`
	User      *User      `json:"user,omitempty"`
	Team      *Team      `json:"team,omitempty"`
}

// RecipientID returns the user who receives notifications about the reservation:
// the requesting user, or the leader of the requesting team.
func (r *Reservation) RecipientID() (uint, bool) {
	if r.UserID != nil {
		return *r.UserID, true
	}
	if r.Team != nil && r.Team.LeaderID != 0 {
		return r.Team.LeaderID, true
	}
	return 0, false
}

// EquipmentName returns the preloaded equipment name, or a fallback label.
func (r *Reservation) EquipmentName() string {
	if r.Equipment != nil && r.Equipment.Name != "" {
		return r.Equipment.Name
	}
	return "equipment"
}

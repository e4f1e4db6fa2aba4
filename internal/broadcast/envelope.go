package broadcast

import (
	"time"

	"lab-reservation-backend/internal/model"
)

// Envelope types delivered to stream clients.
const (
	TypeConnected         = "connected"
	TypeInitial           = "initial"
	TypeHeartbeat         = "heartbeat"
	TypeReservationUpdate = "reservationUpdate"
)

// Envelope is the JSON payload of one pushed event.
type Envelope struct {
	Type         string              `json:"type"`
	Reservation  *model.Reservation  `json:"reservation,omitempty"`
	Reservations []model.Reservation `json:"reservations,omitempty"`
	ClientID     string              `json:"clientId,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// ReservationUpdate wraps a changed reservation.
func ReservationUpdate(r *model.Reservation) Envelope {
	return Envelope{Type: TypeReservationUpdate, Reservation: r, Timestamp: time.Now().UTC()}
}

// Connected acknowledges a newly opened stream.
func Connected(clientID string) Envelope {
	return Envelope{Type: TypeConnected, ClientID: clientID, Timestamp: time.Now().UTC()}
}

// Initial carries the snapshot sent right after Connected.
func Initial(reservations []model.Reservation) Envelope {
	if reservations == nil {
		reservations = []model.Reservation{}
	}
	return Envelope{Type: TypeInitial, Reservations: reservations, Timestamp: time.Now().UTC()}
}

// Heartbeat keeps idle connections alive through proxies.
func Heartbeat() Envelope {
	return Envelope{Type: TypeHeartbeat, Timestamp: time.Now().UTC()}
}

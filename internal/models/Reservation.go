package models

import (
	"time"

	"gorm.io/gorm"
)

// ReservationStatus is persisted as a string.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"   // booked, awaiting host confirmation
	ReservationConfirmed ReservationStatus = "confirmed" // host confirmed, trip not started
	ReservationActive    ReservationStatus = "active"    // guest has the vehicle
	ReservationCompleted ReservationStatus = "completed" // trip finished
	ReservationCancelled ReservationStatus = "cancelled" // terminal from any non-completed state
)

// Reservation is a booked interval on one vehicle. Date semantics are
// half-open: [StartDate, EndDate) — a reservation ending on day D does not
// block one starting on day D.
type Reservation struct {
	gorm.Model
	VehicleID uint              `json:"vehicle_id" gorm:"index"`
	GuestID   uint              `json:"guest_id" gorm:"index"`
	StartDate time.Time         `json:"start_date" gorm:"index"`
	EndDate   time.Time         `json:"end_date"`
	Status    ReservationStatus `json:"status" gorm:"type:varchar(16);index"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

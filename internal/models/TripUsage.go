package models

import (
	"time"

	"gorm.io/gorm"
)

// TripUsage holds the odometer readings recorded at trip start and end.
// Pointers distinguish "not yet recorded" from a genuine zero reading.
type TripUsage struct {
	gorm.Model
	ReservationID uint `json:"reservation_id" gorm:"uniqueIndex"`
	VehicleID     uint `json:"vehicle_id" gorm:"index"`

	StartOdometerKm *int64     `json:"start_odometer_km,omitempty"`
	EndOdometerKm   *int64     `json:"end_odometer_km,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type ServiceRecord struct {
	gorm.Model
	VehicleID   uint      `json:"vehicle_id" gorm:"index"`
	ServiceType string    `json:"service_type"` // "oil_change", "tire_rotation", "brake_service", "inspection"
	Description string    `json:"description"`
	MileageKm   int64     `json:"mileage_km"`
	ServicedAt  time.Time `json:"serviced_at"`
	CostCents   int64     `json:"cost_cents"`

	// Set when the recorded mileage does not fit between two trips.
	Flagged  bool   `json:"flagged" gorm:"default:false"`
	FlagNote string `json:"flag_note,omitempty"`
}

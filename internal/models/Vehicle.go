// internal/models/vehicle.go
package models

import (
	"gorm.io/gorm"
)

type Vehicle struct {
	gorm.Model
	HostID       uint   `json:"host_id" gorm:"index"`
	Registration string `json:"registration" gorm:"uniqueIndex"`
	Make         string `json:"make"`
	VehicleModel string `json:"vehicle_model"`
	Year         int    `json:"year"`

	Active          bool  `json:"active" gorm:"default:true"`
	MaintenanceHold bool  `json:"maintenance_hold" gorm:"default:false"`
	MinTripDays     int   `json:"min_trip_days" gorm:"default:1"`
	OdometerKm      int64 `json:"odometer_km"`

	// Set when a damage claim takes the vehicle off the marketplace. Typed
	// field instead of a rules JSON blob so cancellation can check exactly
	// which claim caused the deactivation.
	DeactivatedByClaimID *uint `json:"deactivated_by_claim_id,omitempty" gorm:"index"`
}

// Package mileage validates odometer continuity across trips on one vehicle.
// Readings are recorded exactly as entered; anomalies are surfaced, never
// auto-corrected.
package mileage

import (
	"context"
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gari_rentals/internal/config"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/logger"
	"gari_rentals/internal/models"
)

type Phase string

const (
	PhaseStart Phase = "START"
	PhaseEnd   Phase = "END"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// Anomaly is returned alongside a successful write when the reading is
// suspicious. A nil anomaly means the reading is consistent.
type Anomaly struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Detail   string   `json:"detail"`
}

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordTripMileage records a start or end odometer reading for the trip
// belonging to a reservation.
//
// END readings below the trip's START are data-entry errors and the write is
// rejected outright. A START below the previous trip's END is recorded but
// surfaced as a CRITICAL anomaly (mileage moved backward); a positive gap is
// informational host usage between trips.
func (l *Ledger) RecordTripMileage(ctx context.Context, reservationID uint, odometerKm int64, phase Phase) (*Anomaly, error) {
	if odometerKm < 0 {
		return nil, fault.Validationf("odometer reading must not be negative, got %d", odometerKm)
	}
	if phase != PhaseStart && phase != PhaseEnd {
		return nil, fault.Validationf("phase must be START or END, got %q", phase)
	}

	var anomaly *Anomaly
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.First(&r, reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("reservation %d not found", reservationID)
			}
			return err
		}

		// The vehicle row lock serializes mileage writes per vehicle.
		var vehicle models.Vehicle
		if err := config.LockForUpdate(tx).First(&vehicle, r.VehicleID).Error; err != nil {
			return err
		}

		trip, err := l.tripFor(tx, &r)
		if err != nil {
			return err
		}

		now := time.Now()
		switch phase {
		case PhaseStart:
			if trip.StartOdometerKm != nil {
				return fault.Validationf("start odometer already recorded for reservation %d", reservationID)
			}
			anomaly = l.checkContinuity(tx, &r, odometerKm)
			trip.StartOdometerKm = &odometerKm
			trip.StartedAt = &now
		case PhaseEnd:
			if trip.StartOdometerKm == nil {
				return fault.Validationf("cannot record end odometer before start for reservation %d", reservationID)
			}
			if trip.EndOdometerKm != nil {
				return fault.Validationf("end odometer already recorded for reservation %d", reservationID)
			}
			if odometerKm < *trip.StartOdometerKm {
				return fault.Validationf("end odometer %d is below start odometer %d",
					odometerKm, *trip.StartOdometerKm)
			}
			trip.EndOdometerKm = &odometerKm
			trip.EndedAt = &now
			if odometerKm > vehicle.OdometerKm {
				vehicle.OdometerKm = odometerKm
				if err := tx.Save(&vehicle).Error; err != nil {
					return err
				}
			}
		}
		return tx.Save(trip).Error
	})
	if err != nil {
		return nil, err
	}
	return anomaly, nil
}

// RecordService persists a service record, flagging it when its mileage
// falls inside a trip's odometer span instead of between trips.
func (l *Ledger) RecordService(ctx context.Context, rec *models.ServiceRecord) (*Anomaly, error) {
	if rec.MileageKm < 0 {
		return nil, fault.Validationf("service mileage must not be negative, got %d", rec.MileageKm)
	}

	var anomaly *Anomaly
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trips []models.TripUsage
		if err := tx.
			Where("vehicle_id = ? AND start_odometer_km IS NOT NULL AND end_odometer_km IS NOT NULL", rec.VehicleID).
			Find(&trips).Error; err != nil {
			return err
		}
		for _, t := range trips {
			if rec.MileageKm > *t.StartOdometerKm && rec.MileageKm < *t.EndOdometerKm {
				detail := fmt.Sprintf(
					"service mileage %d falls inside trip usage [%d, %d] of reservation %d",
					rec.MileageKm, *t.StartOdometerKm, *t.EndOdometerKm, t.ReservationID)
				rec.Flagged = true
				rec.FlagNote = detail
				anomaly = &Anomaly{Severity: SeverityWarning, Code: "service_mileage_inside_trip", Detail: detail}
				break
			}
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return anomaly, nil
}

// TripUsage returns the usage record for a reservation, if any.
func (l *Ledger) TripUsage(ctx context.Context, reservationID uint) (*models.TripUsage, error) {
	var trip models.TripUsage
	err := l.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("no trip usage recorded for reservation %d", reservationID)
		}
		return nil, err
	}
	return &trip, nil
}

func (l *Ledger) tripFor(tx *gorm.DB, r *models.Reservation) (*models.TripUsage, error) {
	var trip models.TripUsage
	err := tx.Where("reservation_id = ?", r.ID).First(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.TripUsage{ReservationID: r.ID, VehicleID: r.VehicleID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// checkContinuity compares a start reading against the previous trip's end
// reading on the same vehicle.
func (l *Ledger) checkContinuity(tx *gorm.DB, r *models.Reservation, startKm int64) *Anomaly {
	var prev models.TripUsage
	err := tx.
		Where("vehicle_id = ? AND reservation_id <> ? AND end_odometer_km IS NOT NULL", r.VehicleID, r.ID).
		Order("ended_at DESC").
		First(&prev).Error
	if err != nil {
		return nil // first trip on this vehicle
	}

	gap := startKm - *prev.EndOdometerKm
	switch {
	case gap < 0:
		detail := fmt.Sprintf(
			"start odometer %d is below previous trip end %d (gap %d km) on vehicle %d",
			startKm, *prev.EndOdometerKm, gap, r.VehicleID)
		logger.Critical("mileage", logrus.Fields{
			"vehicle_id":     r.VehicleID,
			"reservation_id": r.ID,
			"gap_km":         gap,
		}, "odometer moved backward")
		return &Anomaly{Severity: SeverityCritical, Code: "odometer_regression", Detail: detail}
	case gap > 0:
		return &Anomaly{
			Severity: SeverityWarning,
			Code:     "host_usage_gap",
			Detail: fmt.Sprintf("%d km driven between trips on vehicle %d (host personal use)",
				gap, r.VehicleID),
		}
	default:
		return nil
	}
}

package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gari_rentals/internal/config"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
)

// blockingStatuses are the reservation states that occupy a vehicle's
// calendar. Completed and cancelled reservations never conflict.
var blockingStatuses = []models.ReservationStatus{
	models.ReservationPending,
	models.ReservationConfirmed,
	models.ReservationActive,
}

// Store holds reservation intervals and answers overlap queries. Writes go
// through InsertTx inside the admission transaction so the check and the
// insert cannot be split by a concurrent booking.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Overlapping returns every blocking reservation on the vehicle that
// intersects [start, end), ordered by start date. Pass a transaction handle
// to read inside the admission transaction, or nil for a plain read.
func (s *Store) Overlapping(tx *gorm.DB, vehicleID uint, start, end time.Time) ([]models.Reservation, error) {
	db := tx
	if db == nil {
		db = s.db
	}
	var out []models.Reservation
	err := db.
		Where("vehicle_id = ? AND status IN ? AND start_date < ? AND end_date > ?",
			vehicleID, blockingStatuses, end, start).
		Order("start_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertTx creates the reservation after re-checking for overlaps inside the
// caller's transaction. The re-check is the last line of defense; the
// admission engine already holds the vehicle row lock at this point.
func (s *Store) InsertTx(tx *gorm.DB, r *models.Reservation) error {
	conflicts, err := s.Overlapping(tx, r.VehicleID, r.StartDate, r.EndDate)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fault.Conflictf("vehicle %d already reserved in [%s, %s)",
			r.VehicleID, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	}
	return tx.Create(r).Error
}

// Cancel marks the reservation cancelled. The row is kept for audit history,
// never deleted. Completed reservations cannot be cancelled.
func (s *Store) Cancel(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := config.LockForUpdate(tx).First(&r, reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("reservation %d not found", reservationID)
			}
			return err
		}
		if r.Status == models.ReservationCancelled {
			return nil // already cancelled, nothing to do
		}
		if err := applyStatus(&r, models.ReservationCancelled, time.Now()); err != nil {
			return err
		}
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Advance moves a reservation forward one lifecycle step (confirm, activate,
// complete) under the transition map.
func (s *Store) Advance(ctx context.Context, reservationID uint, to models.ReservationStatus) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := config.LockForUpdate(tx).First(&r, reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("reservation %d not found", reservationID)
			}
			return err
		}
		if err := applyStatus(&r, to, time.Now()); err != nil {
			return err
		}
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get loads one reservation.
func (s *Store) Get(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("reservation %d not found", reservationID)
		}
		return nil, err
	}
	return &r, nil
}

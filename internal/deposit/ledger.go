// Package deposit tracks security deposit balances. Every mutation re-reads
// the balance under a row lock, checks the conservation invariant
// (released + earmarked <= held, released never decreases) and appends a
// DepositAdjustment row, so the current balance is always reconstructible
// from the audit trail.
package deposit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gari_rentals/internal/config"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
)

// Adjustment reason codes.
const (
	ReasonBookingHold      = "booking_hold"
	ReasonClaimEarmark     = "claim_earmark"
	ReasonClaimRecovery    = "claim_recovery"
	ReasonRecoveryWaived   = "recovery_waived"
	ReasonBookingCancelled = "booking_cancelled"
	ReasonTripCompleted    = "trip_completed"
)

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Hold opens a deposit for a reservation.
func (l *Ledger) Hold(ctx context.Context, reservationID uint, amountCents int64) (*models.Deposit, error) {
	var dep *models.Deposit
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		dep, err = l.HoldTx(tx, reservationID, amountCents)
		return err
	})
	return dep, err
}

// HoldTx is Hold inside an existing transaction (the admission engine holds
// the deposit in the same transaction that inserts the reservation).
func (l *Ledger) HoldTx(tx *gorm.DB, reservationID uint, amountCents int64) (*models.Deposit, error) {
	if amountCents <= 0 {
		return nil, fault.Validationf("deposit hold amount must be positive, got %d", amountCents)
	}
	dep := &models.Deposit{
		ReservationID: reservationID,
		HeldCents:     amountCents,
	}
	if err := tx.Create(dep).Error; err != nil {
		return nil, err
	}
	if err := l.append(tx, dep.ID, nil, "hold", amountCents, ReasonBookingHold); err != nil {
		return nil, err
	}
	return dep, nil
}

// Earmark reserves part of the held deposit against a claim. Fails if the
// amount exceeds held - earmarked - released.
func (l *Ledger) Earmark(ctx context.Context, reservationID, claimID uint, amountCents int64) error {
	if amountCents <= 0 {
		return fault.Validationf("earmark amount must be positive, got %d", amountCents)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		available := dep.HeldCents - dep.EarmarkedCents - dep.ReleasedCents
		if amountCents > available {
			logger.WithFields(logrus.Fields{
				"reservation_id": reservationID,
				"claim_id":       claimID,
				"amount":         amountCents,
				"available":      available,
			}).Error("earmark exceeds available deposit")
			return fault.Invariantf("earmark of %d exceeds available deposit %d on reservation %d",
				amountCents, available, reservationID)
		}
		dep.EarmarkedCents += amountCents
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, &claimID, "earmark", amountCents, ReasonClaimEarmark)
	})
}

// EarmarkUpTo earmarks as much of amountCents as the deposit can cover and
// reports what was actually earmarked (possibly zero).
func (l *Ledger) EarmarkUpTo(ctx context.Context, reservationID, claimID uint, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, fault.Validationf("earmark amount must be positive, got %d", amountCents)
	}
	var earmarked int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		available := dep.HeldCents - dep.EarmarkedCents - dep.ReleasedCents
		earmarked = amountCents
		if earmarked > available {
			earmarked = available
		}
		if earmarked <= 0 {
			earmarked = 0
			return nil
		}
		dep.EarmarkedCents += earmarked
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, &claimID, "earmark", earmarked, ReasonClaimEarmark)
	})
	return earmarked, err
}

// ReleaseEarmark frees an earmark back to the available balance, e.g. when a
// recovery is waived.
func (l *Ledger) ReleaseEarmark(ctx context.Context, reservationID, claimID uint, amountCents int64, reason string) error {
	if amountCents <= 0 {
		return fault.Validationf("earmark release amount must be positive, got %d", amountCents)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		if amountCents > dep.EarmarkedCents {
			return fault.Invariantf("earmark release of %d exceeds earmarked %d on reservation %d",
				amountCents, dep.EarmarkedCents, reservationID)
		}
		dep.EarmarkedCents -= amountCents
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, &claimID, "earmark_release", amountCents, reason)
	})
}

// Release returns funds to the guest. ReleasedCents only ever grows.
func (l *Ledger) Release(ctx context.Context, reservationID uint, amountCents int64, reason string) error {
	if amountCents <= 0 {
		return fault.Validationf("release amount must be positive, got %d", amountCents)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		available := dep.HeldCents - dep.EarmarkedCents - dep.ReleasedCents
		if amountCents > available {
			logger.WithFields(logrus.Fields{
				"reservation_id": reservationID,
				"amount":         amountCents,
				"available":      available,
			}).Error("release exceeds available deposit")
			return fault.Invariantf("release of %d exceeds available deposit %d on reservation %d",
				amountCents, available, reservationID)
		}
		dep.ReleasedCents += amountCents
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, nil, "release", amountCents, reason)
	})
}

// ReleaseRemainder releases whatever is neither earmarked nor already
// released, and reports the amount. Used at trip completion and cancellation.
func (l *Ledger) ReleaseRemainder(ctx context.Context, reservationID uint, reason string) (int64, error) {
	var released int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		released = dep.HeldCents - dep.EarmarkedCents - dep.ReleasedCents
		if released <= 0 {
			released = 0
			return nil
		}
		dep.ReleasedCents += released
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, nil, "release", released, reason)
	})
	return released, err
}

// Recover consumes an earmark to repay a platform advance: the consumed
// amount leaves both HeldCents and EarmarkedCents. Returns what was actually
// consumed (capped at the current earmark).
func (l *Ledger) Recover(ctx context.Context, reservationID, claimID uint, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, fault.Validationf("recovery amount must be positive, got %d", amountCents)
	}
	var consumed int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep, err := l.lock(tx, reservationID)
		if err != nil {
			return err
		}
		consumed = amountCents
		if consumed > dep.EarmarkedCents {
			consumed = dep.EarmarkedCents
		}
		if consumed <= 0 {
			consumed = 0
			return nil
		}
		dep.EarmarkedCents -= consumed
		dep.HeldCents -= consumed
		if err := tx.Save(dep).Error; err != nil {
			return err
		}
		return l.append(tx, dep.ID, &claimID, "recovery", consumed, ReasonClaimRecovery)
	})
	return consumed, err
}

// Get returns the deposit and its full adjustment history.
func (l *Ledger) Get(ctx context.Context, reservationID uint) (*models.Deposit, []models.DepositAdjustment, error) {
	var dep models.Deposit
	db := l.db.WithContext(ctx)
	if err := db.Where("reservation_id = ?", reservationID).First(&dep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fault.Validationf("no deposit held for reservation %d", reservationID)
		}
		return nil, nil, err
	}
	var adjustments []models.DepositAdjustment
	if err := db.Where("deposit_id = ?", dep.ID).Order("id ASC").Find(&adjustments).Error; err != nil {
		return nil, nil, err
	}
	return &dep, adjustments, nil
}

func (l *Ledger) lock(tx *gorm.DB, reservationID uint) (*models.Deposit, error) {
	var dep models.Deposit
	if err := config.LockForUpdate(tx).Where("reservation_id = ?", reservationID).First(&dep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("no deposit held for reservation %d", reservationID)
		}
		return nil, err
	}
	return &dep, nil
}

func (l *Ledger) append(tx *gorm.DB, depositID uint, claimID *uint, kind string, amountCents int64, reason string) error {
	return tx.Create(&models.DepositAdjustment{
		AdjustmentRef: uuid.NewString(),
		DepositID:     depositID,
		ClaimID:       claimID,
		Kind:          kind,
		AmountCents:   amountCents,
		Reason:        reason,
	}).Error
}

var logger = logrus.StandardLogger().WithField("component", "deposit")

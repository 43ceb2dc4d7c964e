// Package claims runs the damage-claim lifecycle and its settlement: the
// platform advances the payout to the host first, then recovers from the
// guest's deposit as a best-effort follow-up. The host payout is never
// blocked or rolled back by the recovery outcome.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gari_rentals/internal/config"
	"gari_rentals/internal/deposit"
	"gari_rentals/internal/events"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
	"gari_rentals/internal/payment"
)

type Engine struct {
	db       *gorm.DB
	deposits *deposit.Ledger
	gateway  payment.Gateway
	bus      *events.Bus
}

func NewEngine(db *gorm.DB, deposits *deposit.Ledger, gateway payment.Gateway, bus *events.Bus) *Engine {
	return &Engine{db: db, deposits: deposits, gateway: gateway, bus: bus}
}

// PayoutResult reports what the settlement did.
type PayoutResult struct {
	ClaimID              uint                  `json:"claim_id"`
	PlatformAdvanceCents int64                 `json:"platform_advance_cents"`
	RecoveredCents       int64                 `json:"recovered_cents"`
	RecoveryStatus       models.RecoveryStatus `json:"recovery_status"`
	TransferRef          string                `json:"transfer_ref"`
}

// File opens a PENDING claim against a reservation and takes the vehicle off
// the marketplace until the claim is resolved.
func (e *Engine) File(ctx context.Context, reservationID uint, claimType, description string, estimatedCents int64) (*models.Claim, error) {
	if claimType == "" {
		return nil, fault.Validationf("claim type is required")
	}
	if estimatedCents < 0 {
		return nil, fault.Validationf("estimated cost must not be negative, got %d", estimatedCents)
	}

	var claim *models.Claim
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.First(&r, reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("reservation %d not found", reservationID)
			}
			return err
		}

		claim = &models.Claim{
			ReservationID:      reservationID,
			VehicleID:          r.VehicleID,
			Type:               claimType,
			Description:        description,
			Status:             models.ClaimPending,
			EstimatedCostCents: estimatedCents,
		}
		if err := tx.Create(claim).Error; err != nil {
			return err
		}

		var vehicle models.Vehicle
		if err := config.LockForUpdate(tx).First(&vehicle, r.VehicleID).Error; err != nil {
			return err
		}
		if vehicle.Active && vehicle.DeactivatedByClaimID == nil {
			vehicle.Active = false
			vehicle.DeactivatedByClaimID = &claim.ID
			if err := tx.Save(&vehicle).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.bus != nil {
		e.bus.Publish(events.ClaimFiled{
			ClaimID:       claim.ID,
			ReservationID: reservationID,
			VehicleID:     claim.VehicleID,
		})
	}
	return claim, nil
}

// Approve sets the approved amount on a pending claim and earmarks as much
// of the deposit as it can cover against the upcoming recovery.
func (e *Engine) Approve(ctx context.Context, claimID uint, approvedCents int64) (*models.Claim, error) {
	if approvedCents <= 0 {
		return nil, fault.Validationf("approved amount must be positive, got %d", approvedCents)
	}

	claim, err := e.transition(ctx, claimID, models.ClaimApproved, func(c *models.Claim) {
		c.ApprovedCents = approvedCents
	})
	if err != nil {
		return nil, err
	}

	earmarked, err := e.deposits.EarmarkUpTo(ctx, claim.ReservationID, claim.ID, approvedCents)
	if err != nil {
		// The approval stands; an empty earmark just means recovery will
		// find nothing in the deposit.
		logrus.WithField("claim_id", claimID).WithError(err).Error("deposit earmark after approval failed")
	} else if earmarked < approvedCents {
		logrus.WithFields(logrus.Fields{
			"claim_id":  claimID,
			"approved":  approvedCents,
			"earmarked": earmarked,
		}).Warn("deposit covers only part of the approved amount")
	}
	return claim, nil
}

// Reject closes a pending claim without payment and puts the vehicle back on
// the marketplace if this claim was what deactivated it.
func (e *Engine) Reject(ctx context.Context, claimID uint, reason string) (*models.Claim, error) {
	return e.transitionAndReactivate(ctx, claimID, models.ClaimRejected, func(c *models.Claim) {
		c.ReviewNote = reason
	})
}

// Cancel withdraws a claim. Only pending claims can be cancelled; the vehicle
// is reactivated if it was deactivated solely for this claim.
func (e *Engine) Cancel(ctx context.Context, claimID uint) (*models.Claim, error) {
	return e.transitionAndReactivate(ctx, claimID, models.ClaimCancelled, nil)
}

// Payout settles an approved claim. The platform advance (the full paid
// amount) goes to the host first; recovery from the guest deposit follows
// and may fail or collect only part without affecting the paid status.
// Calling Payout again on an already-paid claim re-runs only the recovery
// bookkeeping — the transfer is idempotent on the claim id and the paid
// amount is immutable.
func (e *Engine) Payout(ctx context.Context, claimID uint, paidCents, recoveredCents int64) (*PayoutResult, error) {
	if paidCents <= 0 {
		return nil, fault.Validationf("paid amount must be positive, got %d", paidCents)
	}
	if recoveredCents < 0 {
		return nil, fault.Validationf("recovered amount must not be negative, got %d", recoveredCents)
	}
	if recoveredCents > paidCents {
		return nil, fault.Validationf("recovered amount %d exceeds paid amount %d", recoveredCents, paidCents)
	}

	claim, err := e.get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	switch claim.Status {
	case models.ClaimApproved:
		// first payout
	case models.ClaimPaid:
		if paidCents != claim.PaidCents {
			return nil, fault.Validationf("paid amount is immutable once paid; recorded %d, got %d",
				claim.PaidCents, paidCents)
		}
	default:
		return nil, fault.StateMismatch("claim payout", string(models.ClaimApproved), string(claim.Status))
	}

	hostRef, err := e.hostAccountRef(ctx, claim.VehicleID)
	if err != nil {
		return nil, err
	}

	// Pay the host before anything else. The vehicle row lock from admission
	// is long gone here; no lock is held across this call.
	if claim.Status == models.ClaimApproved {
		transferRef, err := e.gateway.TransferToHost(ctx, paidCents, hostRef,
			fmt.Sprintf("claim-%d-advance", claimID))
		if err != nil {
			// Nothing was mutated; the claim stays approved for a retry.
			return nil, fault.External("payment gateway", err)
		}

		claim, err = e.transition(ctx, claimID, models.ClaimPaid, func(c *models.Claim) {
			c.PaidCents = paidCents
			c.PlatformAdvanceCents = paidCents
			c.RecoveryStatus = models.RecoveryPending
			c.TransferRef = transferRef
		})
		if err != nil {
			return nil, err
		}
	}

	recovered, recoveryStatus := e.recover(ctx, claim, recoveredCents)

	claim, err = e.update(ctx, claimID, func(c *models.Claim) {
		// A replayed payout must not undo an admin's waiver. Only new money
		// actually collected moves a waived claim's recovery fields.
		if c.RecoveryStatus == models.RecoveryWaived && recovered <= c.RecoveredCents {
			return
		}
		c.RecoveredCents = recovered
		c.RecoveryStatus = recoveryStatus
	})
	if err != nil {
		return nil, err
	}

	if e.bus != nil {
		e.bus.Publish(events.ClaimPaid{
			ClaimID:              claim.ID,
			PlatformAdvanceCents: claim.PlatformAdvanceCents,
			RecoveredCents:       claim.RecoveredCents,
			RecoveryStatus:       string(claim.RecoveryStatus),
		})
	}

	return &PayoutResult{
		ClaimID:              claim.ID,
		PlatformAdvanceCents: claim.PlatformAdvanceCents,
		RecoveredCents:       claim.RecoveredCents,
		RecoveryStatus:       claim.RecoveryStatus,
		TransferRef:          claim.TransferRef,
	}, nil
}

// WaiveRecovery writes off the outstanding advance on a paid claim and frees
// any remaining deposit earmark back to the guest's balance.
func (e *Engine) WaiveRecovery(ctx context.Context, claimID uint) (*models.Claim, error) {
	claim, err := e.get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimPaid {
		return nil, fault.StateMismatch("recovery waiver", string(models.ClaimPaid), string(claim.Status))
	}

	dep, _, err := e.deposits.Get(ctx, claim.ReservationID)
	if err == nil && dep.EarmarkedCents > 0 {
		if err := e.deposits.ReleaseEarmark(ctx, claim.ReservationID, claim.ID,
			dep.EarmarkedCents, deposit.ReasonRecoveryWaived); err != nil {
			logrus.WithField("claim_id", claimID).WithError(err).Error("earmark release on waiver failed")
		}
	}

	return e.update(ctx, claimID, func(c *models.Claim) {
		c.RecoveryStatus = models.RecoveryWaived
	})
}

// Get loads one claim.
func (e *Engine) Get(ctx context.Context, claimID uint) (*models.Claim, error) {
	return e.get(ctx, claimID)
}

// List returns claims, optionally filtered by status, newest first.
func (e *Engine) List(ctx context.Context, status models.ClaimStatus) ([]models.Claim, error) {
	q := e.db.WithContext(ctx).Model(&models.Claim{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Claim
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// recover attempts the guest-side collection for a paid claim. Failures are
// absorbed into the recovery status; they never surface as errors because
// the host payout already happened and must stand.
func (e *Engine) recover(ctx context.Context, claim *models.Claim, requestedCents int64) (int64, models.RecoveryStatus) {
	recovered := claim.RecoveredCents

	if requestedCents > 0 {
		outcome, err := e.gateway.ChargeOrDeductDeposit(ctx, requestedCents,
			fmt.Sprintf("deposit-res-%d", claim.ReservationID),
			fmt.Sprintf("claim-%d-recovery", claim.ID))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"claim_id":  claim.ID,
				"requested": requestedCents,
			}).WithError(err).Error("guest recovery failed")
			return recovered, models.RecoveryFailed
		}

		// The gateway is idempotent per key, so the outcome is cumulative
		// for this claim rather than additive across retries.
		if outcome.AmountCents > recovered {
			recovered = outcome.AmountCents
		}

		if consumed, err := e.deposits.Recover(ctx, claim.ReservationID, claim.ID, outcome.AmountCents); err != nil {
			logrus.WithField("claim_id", claim.ID).WithError(err).Error("deposit ledger recovery failed")
		} else if consumed < outcome.AmountCents {
			logrus.WithFields(logrus.Fields{
				"claim_id":     claim.ID,
				"collected":    outcome.AmountCents,
				"from_deposit": consumed,
			}).Info("recovery partly collected outside the deposit")
		}
	}

	switch {
	case recovered <= 0:
		return 0, models.RecoveryPending
	case recovered < claim.PlatformAdvanceCents:
		return recovered, models.RecoveryPartial
	default:
		return recovered, models.RecoveryFull
	}
}

func (e *Engine) hostAccountRef(ctx context.Context, vehicleID uint) (string, error) {
	var vehicle models.Vehicle
	if err := e.db.WithContext(ctx).First(&vehicle, vehicleID).Error; err != nil {
		return "", err
	}
	var host models.Host
	if err := e.db.WithContext(ctx).First(&host, vehicle.HostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fault.Validationf("no host record for vehicle %d", vehicleID)
		}
		return "", err
	}
	if host.PayoutAccountRef == "" {
		return "", fault.Validationf("host %d has no payout account on file", host.ID)
	}
	return host.PayoutAccountRef, nil
}

func (e *Engine) get(ctx context.Context, claimID uint) (*models.Claim, error) {
	var c models.Claim
	if err := e.db.WithContext(ctx).First(&c, claimID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("claim %d not found", claimID)
		}
		return nil, err
	}
	return &c, nil
}

// transition applies a guarded status change under the claim row lock.
func (e *Engine) transition(ctx context.Context, claimID uint, to models.ClaimStatus, mutate func(*models.Claim)) (*models.Claim, error) {
	var c models.Claim
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := config.LockForUpdate(tx).First(&c, claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("claim %d not found", claimID)
			}
			return err
		}
		if err := applyTransition(&c, to, time.Now()); err != nil {
			return err
		}
		if mutate != nil {
			mutate(&c)
		}
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// update mutates non-status fields (recovery bookkeeping) under the row lock.
func (e *Engine) update(ctx context.Context, claimID uint, mutate func(*models.Claim)) (*models.Claim, error) {
	var c models.Claim
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := config.LockForUpdate(tx).First(&c, claimID).Error; err != nil {
			return err
		}
		mutate(&c)
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// transitionAndReactivate closes a claim and, when this claim is what took
// the vehicle off the marketplace, puts it back.
func (e *Engine) transitionAndReactivate(ctx context.Context, claimID uint, to models.ClaimStatus, mutate func(*models.Claim)) (*models.Claim, error) {
	var c models.Claim
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := config.LockForUpdate(tx).First(&c, claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fault.Validationf("claim %d not found", claimID)
			}
			return err
		}
		if err := applyTransition(&c, to, time.Now()); err != nil {
			return err
		}
		if mutate != nil {
			mutate(&c)
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}

		var vehicle models.Vehicle
		if err := config.LockForUpdate(tx).First(&vehicle, c.VehicleID).Error; err != nil {
			return err
		}
		if vehicle.DeactivatedByClaimID != nil && *vehicle.DeactivatedByClaimID == c.ID {
			vehicle.Active = true
			vehicle.DeactivatedByClaimID = nil
			if err := tx.Save(&vehicle).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

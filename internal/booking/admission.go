package booking

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
)

// Config is passed to the engine explicitly; there is no process-wide
// testing toggle.
type Config struct {
	// DepositHoldCents is held against every accepted booking.
	DepositHoldCents int64

	// AllowPastStart permits bookings starting before today. Only staging
	// and test environments set this.
	AllowPastStart bool
}

// Result is the admission decision. On REJECT the conflicting intervals and
// a concrete next-available date are always included; the engine never picks
// an alternate date silently.
type Result struct {
	Accepted      bool                 `json:"accepted"`
	ReservationID uint                 `json:"reservation_id,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Conflicts     []models.Reservation `json:"conflicts,omitempty"`
	NextAvailable time.Time            `json:"next_available,omitempty"`
}

// Engine decides whether a booking request may be accepted. The overlap
// check and the interval insert run in one transaction holding the vehicle
// row lock, so concurrent requests for the same vehicle serialize; requests
// for other vehicles do not contend. The lock is never held across calls to
// payment or notification collaborators.
type Engine struct {
	db       *gorm.DB
	store    *Store
	deposits *deposit.Ledger
	bus      *events.Bus
	cfg      Config
}

func NewEngine(db *gorm.DB, store *Store, deposits *deposit.Ledger, bus *events.Bus, cfg Config) *Engine {
	return &Engine{db: db, store: store, deposits: deposits, bus: bus, cfg: cfg}
}

// RequestBooking admits or rejects a reservation request for
// [start, end). minTripDaysOverride replaces the vehicle's minimum when
// positive. Zero-length and inverted ranges are validation errors, not
// rejections; a REJECT result carries no side effects.
func (e *Engine) RequestBooking(ctx context.Context, guestID, vehicleID uint, start, end time.Time, minTripDaysOverride int) (*Result, error) {
	if err := e.validateRange(start, end); err != nil {
		return nil, err
	}

	var res Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vehicle, err := lockVehicle(tx, vehicleID)
		if err != nil {
			return err
		}

		if reason, ok := e.eligibility(vehicle, start, end, minTripDaysOverride); !ok {
			res = Result{Accepted: false, Reason: reason}
			return nil
		}

		conflicts, err := e.store.Overlapping(tx, vehicleID, start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			res = Result{
				Accepted:      false,
				Reason:        "requested dates overlap existing reservations",
				Conflicts:     conflicts,
				NextAvailable: nextAvailable(conflicts),
			}
			return nil
		}

		r := &models.Reservation{
			VehicleID: vehicleID,
			GuestID:   guestID,
			StartDate: start,
			EndDate:   end,
			Status:    models.ReservationPending,
		}
		if err := e.store.InsertTx(tx, r); err != nil {
			return err
		}
		if _, err := e.deposits.HoldTx(tx, r.ID, e.cfg.DepositHoldCents); err != nil {
			return err
		}
		res = Result{Accepted: true, ReservationID: r.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(&res, guestID, vehicleID, start, end)
	return &res, nil
}

// CheckAvailability runs the admission checks without reserving anything.
func (e *Engine) CheckAvailability(ctx context.Context, vehicleID uint, start, end time.Time) (*Result, error) {
	if err := e.validateRange(start, end); err != nil {
		return nil, err
	}

	var vehicle models.Vehicle
	if err := e.db.WithContext(ctx).First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("vehicle %d not found", vehicleID)
		}
		return nil, err
	}

	if reason, ok := e.eligibility(&vehicle, start, end, 0); !ok {
		return &Result{Accepted: false, Reason: reason}, nil
	}

	conflicts, err := e.store.Overlapping(e.db.WithContext(ctx), vehicleID, start, end)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return &Result{
			Accepted:      false,
			Reason:        "requested dates overlap existing reservations",
			Conflicts:     conflicts,
			NextAvailable: nextAvailable(conflicts),
		}, nil
	}
	return &Result{Accepted: true}, nil
}

// CancelBooking cancels the reservation and releases whatever part of the
// deposit is not earmarked by a claim.
func (e *Engine) CancelBooking(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	r, err := e.store.Cancel(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if _, err := e.deposits.ReleaseRemainder(ctx, reservationID, deposit.ReasonBookingCancelled); err != nil {
		// The cancellation itself stands; the release is retried by ops.
		logrus.WithField("reservation_id", reservationID).WithError(err).
			Error("deposit release after cancellation failed")
	}
	return r, nil
}

// CompleteBooking marks the reservation completed and releases the
// unclaimed deposit remainder back to the guest.
func (e *Engine) CompleteBooking(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	r, err := e.store.Advance(ctx, reservationID, models.ReservationCompleted)
	if err != nil {
		return nil, err
	}
	if _, err := e.deposits.ReleaseRemainder(ctx, reservationID, deposit.ReasonTripCompleted); err != nil {
		logrus.WithField("reservation_id", reservationID).WithError(err).
			Error("deposit release after completion failed")
	}
	return r, nil
}

func (e *Engine) validateRange(start, end time.Time) error {
	if !end.After(start) {
		return fault.Validationf("end date %s must be after start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if !e.cfg.AllowPastStart {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if start.Before(today) {
			return fault.Validationf("start date %s is in the past", start.Format("2006-01-02"))
		}
	}
	return nil
}

func (e *Engine) eligibility(v *models.Vehicle, start, end time.Time, minOverride int) (string, bool) {
	minDays := v.MinTripDays
	if minOverride > 0 {
		minDays = minOverride
	}
	if minDays < 1 {
		minDays = 1
	}
	if tripDays(start, end) < minDays {
		return fmt.Sprintf("trip is shorter than the vehicle's minimum of %d day(s)", minDays), false
	}
	if !v.Active {
		return "vehicle is not active", false
	}
	if v.MaintenanceHold {
		return "vehicle is under maintenance hold", false
	}
	return "", true
}

func (e *Engine) publish(res *Result, guestID, vehicleID uint, start, end time.Time) {
	if e.bus == nil {
		return
	}
	if res.Accepted {
		e.bus.Publish(events.BookingAccepted{
			ReservationID: res.ReservationID,
			VehicleID:     vehicleID,
			GuestID:       guestID,
			StartDate:     start,
			EndDate:       end,
		})
		return
	}
	e.bus.Publish(events.BookingRejected{
		VehicleID:     vehicleID,
		GuestID:       guestID,
		Reason:        res.Reason,
		Conflicts:     len(res.Conflicts),
		NextAvailable: res.NextAvailable,
	})
}

// nextAvailable is the day after the latest conflicting interval ends. The
// hint is deliberately conservative: an adjacent request starting on the
// conflict's end day would itself be accepted.
func nextAvailable(conflicts []models.Reservation) time.Time {
	var latest time.Time
	for _, c := range conflicts {
		if c.EndDate.After(latest) {
			latest = c.EndDate
		}
	}
	return latest.AddDate(0, 0, 1)
}

func tripDays(start, end time.Time) int {
	d := end.Sub(start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func lockVehicle(tx *gorm.DB, vehicleID uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := config.LockForUpdate(tx).First(&v, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.Validationf("vehicle %d not found", vehicleID)
		}
		return nil, err
	}
	return &v, nil
}

package booking

import (
	"time"

	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
)

// allowStatus is the reservation lifecycle as a directed graph. Status only
// moves forward; cancelled is terminal and reachable from any state except
// completed.
var allowStatus = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:   {models.ReservationConfirmed, models.ReservationCancelled},
	models.ReservationConfirmed: {models.ReservationActive, models.ReservationCancelled},
	models.ReservationActive:    {models.ReservationCompleted, models.ReservationCancelled},
	models.ReservationCompleted: {},
	models.ReservationCancelled: {},
}

// CanAdvance reports whether from -> to is a legal reservation transition.
func CanAdvance(from, to models.ReservationStatus) bool {
	for _, s := range allowStatus[from] {
		if s == to {
			return true
		}
	}
	return false
}

func applyStatus(r *models.Reservation, to models.ReservationStatus, now time.Time) error {
	if !CanAdvance(r.Status, to) {
		required := "a state that allows " + string(to)
		return fault.StateMismatch("reservation transition to "+string(to), required, string(r.Status))
	}
	r.Status = to
	if to == models.ReservationCancelled && r.CancelledAt == nil {
		t := now
		r.CancelledAt = &t
	}
	return nil
}

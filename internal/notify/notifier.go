// Package notify consumes domain events and hands them to the outbound
// notification channels (email/SMS templating lives outside this service).
// Everything here is fire-and-forget: a delivery failure is logged and
// dropped, never reported back to the engine that made the decision.
package notify

import (
	logrus "github.com/sirupsen/logrus"

	"gari_rentals/internal/events"
)

// Start subscribes to the bus and processes events until the bus is closed.
// The returned function blocks until the worker goroutine has drained.
func Start(bus *events.Bus) (stop func()) {
	ch := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range ch {
			dispatch(e)
		}
	}()

	return func() { <-done }
}

func dispatch(e events.Event) {
	log := logrus.WithField("component", "notify").WithField("event", e.Name())

	switch ev := e.(type) {
	case events.BookingAccepted:
		log.WithFields(logrus.Fields{
			"reservation_id": ev.ReservationID,
			"vehicle_id":     ev.VehicleID,
			"guest_id":       ev.GuestID,
		}).Info("booking accepted notification queued")
	case events.BookingRejected:
		log.WithFields(logrus.Fields{
			"vehicle_id":     ev.VehicleID,
			"guest_id":       ev.GuestID,
			"reason":         ev.Reason,
			"conflicts":      ev.Conflicts,
			"next_available": ev.NextAvailable.Format("2006-01-02"),
		}).Info("booking rejected notification queued")
	case events.ClaimFiled:
		log.WithFields(logrus.Fields{
			"claim_id":       ev.ClaimID,
			"reservation_id": ev.ReservationID,
		}).Info("claim filed notification queued")
	case events.ClaimPaid:
		log.WithFields(logrus.Fields{
			"claim_id":         ev.ClaimID,
			"platform_advance": ev.PlatformAdvanceCents,
			"recovered":        ev.RecoveredCents,
			"recovery_status":  ev.RecoveryStatus,
		}).Info("claim paid notification queued")
	default:
		log.Debug("unhandled event")
	}
}

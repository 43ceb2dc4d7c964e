// Package events carries domain events out of the core engines. Publish is
// called after the owning transaction commits and never blocks or fails the
// caller; subscribers (notifications, audit) run on their own goroutines.
package events

import (
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"
)

type Event interface {
	Name() string
}

type BookingAccepted struct {
	ReservationID uint
	VehicleID     uint
	GuestID       uint
	StartDate     time.Time
	EndDate       time.Time
}

func (BookingAccepted) Name() string { return "booking.accepted" }

type BookingRejected struct {
	VehicleID     uint
	GuestID       uint
	Reason        string
	Conflicts     int
	NextAvailable time.Time
}

func (BookingRejected) Name() string { return "booking.rejected" }

type ClaimFiled struct {
	ClaimID       uint
	ReservationID uint
	VehicleID     uint
}

func (ClaimFiled) Name() string { return "claim.filed" }

type ClaimPaid struct {
	ClaimID              uint
	PlatformAdvanceCents int64
	RecoveredCents       int64
	RecoveryStatus       string
}

func (ClaimPaid) Name() string { return "claim.paid" }

// Bus fans events out to subscriber channels. Delivery is best effort: a
// subscriber that falls behind loses events rather than stalling the core.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	buffer int
	closed bool
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{buffer: buffer}
}

func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	if b.closed {
		// A late subscriber's range loop must still terminate.
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			logrus.WithField("event", e.Name()).Warn("event dropped: subscriber buffer full")
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

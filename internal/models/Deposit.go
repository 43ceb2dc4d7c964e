package models

import "gorm.io/gorm"

// Deposit is the security deposit held against one reservation. Amounts are
// in cents. The conservation invariant, checked on every mutation:
//
//	ReleasedCents + EarmarkedCents <= HeldCents
//
// ReleasedCents never decreases. A guest recovery consumes held funds, so it
// reduces HeldCents together with the earmark it was drawn from. Balances are
// only mutated through the deposit ledger, which appends a DepositAdjustment
// for every change.
type Deposit struct {
	gorm.Model
	ReservationID  uint  `json:"reservation_id" gorm:"uniqueIndex"`
	HeldCents      int64 `json:"held_cents"`
	EarmarkedCents int64 `json:"earmarked_cents"`
	ReleasedCents  int64 `json:"released_cents"`
}

package models

import "gorm.io/gorm"

// DepositAdjustment is one append-only ledger row. Balances on Deposit are a
// running summary; the adjustments are the audit trail.
type DepositAdjustment struct {
	gorm.Model
	AdjustmentRef string `json:"adjustment_ref" gorm:"size:36;uniqueIndex"`
	DepositID     uint   `json:"deposit_id" gorm:"index"`
	ClaimID       *uint  `json:"claim_id,omitempty" gorm:"index"`
	Kind          string `json:"kind"`         // "hold", "earmark", "earmark_release", "release", "recovery"
	AmountCents   int64  `json:"amount_cents"` // always positive; Kind carries the direction
	Reason        string `json:"reason"`
}

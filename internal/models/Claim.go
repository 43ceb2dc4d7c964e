package models

import (
	"time"

	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimCancelled ClaimStatus = "cancelled"
	ClaimPaid      ClaimStatus = "paid"
)

// RecoveryStatus tracks how much of a platform advance has been collected
// back from the guest. It only exists once a claim is paid.
type RecoveryStatus string

const (
	RecoveryPending RecoveryStatus = "pending" // nothing recovered yet
	RecoveryPartial RecoveryStatus = "partial" // 0 < recovered < advance
	RecoveryFull    RecoveryStatus = "full"    // recovered >= advance
	RecoveryFailed  RecoveryStatus = "failed"  // recovery attempt explicitly failed
	RecoveryWaived  RecoveryStatus = "waived"  // platform wrote the advance off
)

// Claim is a damage claim filed by a host against a reservation. Status and
// PaidCents are immutable once paid; the recovery fields may still change as
// later recovery attempts land.
type Claim struct {
	gorm.Model
	ReservationID uint   `json:"reservation_id" gorm:"index"`
	VehicleID     uint   `json:"vehicle_id" gorm:"index"`
	Type          string `json:"type"` // "damage", "cleaning", "fuel", "late_return"
	Description   string `json:"description"`

	Status             ClaimStatus `json:"status" gorm:"type:varchar(16);index"`
	EstimatedCostCents int64       `json:"estimated_cost_cents"`
	ApprovedCents      int64       `json:"approved_cents"`
	PaidCents          int64       `json:"paid_cents"`

	// Settlement bookkeeping: the platform advances the payout to the host
	// and recovers from the guest afterwards.
	PlatformAdvanceCents int64          `json:"platform_advance_cents"`
	RecoveredCents       int64          `json:"recovered_cents"`
	RecoveryStatus       RecoveryStatus `json:"recovery_status,omitempty" gorm:"type:varchar(16)"`
	TransferRef          string         `json:"transfer_ref,omitempty"`

	ReviewNote string     `json:"review_note,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"` // rejected or cancelled
}

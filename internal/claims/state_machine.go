package claims

import (
	"time"

	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
)

// allowTransition is the claim lifecycle as a directed graph. Paid, rejected
// and cancelled are terminal for the status field; recovery bookkeeping on a
// paid claim is tracked separately and never moves the status again.
var allowTransition = map[models.ClaimStatus][]models.ClaimStatus{
	models.ClaimPending:   {models.ClaimApproved, models.ClaimRejected, models.ClaimCancelled},
	models.ClaimApproved:  {models.ClaimPaid},
	models.ClaimRejected:  {},
	models.ClaimCancelled: {},
	models.ClaimPaid:      {},
}

// requiredSource names the status a claim must be in before moving to the
// given target. Used to build state-mismatch errors that always state both
// the required and the actual status.
var requiredSource = map[models.ClaimStatus]models.ClaimStatus{
	models.ClaimApproved:  models.ClaimPending,
	models.ClaimRejected:  models.ClaimPending,
	models.ClaimCancelled: models.ClaimPending,
	models.ClaimPaid:      models.ClaimApproved,
}

// CanTransition reports whether from -> to is a legal claim transition.
func CanTransition(from, to models.ClaimStatus) bool {
	for _, s := range allowTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

// applyTransition moves the claim to the target status and stamps the
// matching timestamp. Callers must persist the claim afterwards.
func applyTransition(c *models.Claim, to models.ClaimStatus, now time.Time) error {
	if !CanTransition(c.Status, to) {
		return fault.StateMismatch("claim transition to "+string(to),
			string(requiredSource[to]), string(c.Status))
	}
	c.Status = to

	switch to {
	case models.ClaimApproved:
		if c.ApprovedAt == nil {
			t := now
			c.ApprovedAt = &t
		}
	case models.ClaimPaid:
		if c.PaidAt == nil {
			t := now
			c.PaidAt = &t
		}
	case models.ClaimRejected, models.ClaimCancelled:
		if c.ResolvedAt == nil {
			t := now
			c.ResolvedAt = &t
		}
	}
	return nil
}

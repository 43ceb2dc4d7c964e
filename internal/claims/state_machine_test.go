package claims

import (
	"strings"
	"testing"
	"time"

	"gari_rentals/internal/models"
)

func TestCanTransitionAndApply(t *testing.T) {
	if !CanTransition(models.ClaimPending, models.ClaimApproved) {
		t.Fatalf("expected pending -> approved allowed")
	}
	if !CanTransition(models.ClaimApproved, models.ClaimPaid) {
		t.Fatalf("expected approved -> paid allowed")
	}
	if CanTransition(models.ClaimApproved, models.ClaimCancelled) {
		t.Fatalf("expected approved -> cancelled not allowed")
	}
	if CanTransition(models.ClaimPaid, models.ClaimApproved) {
		t.Fatalf("expected paid to be terminal")
	}

	c := &models.Claim{Status: models.ClaimPending}
	now := time.Now()
	if err := applyTransition(c, models.ClaimApproved, now); err != nil {
		t.Fatalf("applyTransition: %v", err)
	}
	if c.Status != models.ClaimApproved {
		t.Fatalf("expected status approved, got %s", c.Status)
	}
	if c.ApprovedAt == nil {
		t.Fatalf("expected approved_at to be stamped")
	}

	if err := applyTransition(c, models.ClaimCancelled, now); err == nil {
		t.Fatalf("expected approved -> cancelled to fail")
	}
}

func TestTransitionErrorNamesStates(t *testing.T) {
	c := &models.Claim{Status: models.ClaimCancelled}
	err := applyTransition(c, models.ClaimPaid, time.Now())
	if err == nil {
		t.Fatalf("expected transition from cancelled to fail")
	}
	msg := err.Error()
	if want := string(models.ClaimApproved); !strings.Contains(msg, want) {
		t.Fatalf("error %q should name required status %q", msg, want)
	}
	if want := string(models.ClaimCancelled); !strings.Contains(msg, want) {
		t.Fatalf("error %q should name actual status %q", msg, want)
	}
}

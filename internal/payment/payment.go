// Package payment defines the capability the settlement engine needs from
// the payment provider. The wire protocol is the provider's problem; both
// operations are idempotent on a caller-supplied key so the external retry
// job can replay them safely.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Outcome reports how much a deposit charge actually collected. A provider
// may collect less than asked (expired card, partial deposit balance).
type Outcome struct {
	AmountCents int64
	Reference   string
}

type Gateway interface {
	// TransferToHost pays a host. Returns the provider's transfer id.
	TransferToHost(ctx context.Context, amountCents int64, hostAccountRef, idempotencyKey string) (string, error)

	// ChargeOrDeductDeposit collects from the guest's deposit or card.
	ChargeOrDeductDeposit(ctx context.Context, amountCents int64, depositRef, idempotencyKey string) (Outcome, error)
}

// FakeGateway is the in-memory gateway used in tests and local dev. It is
// idempotent per key like the real provider.
type FakeGateway struct {
	mu        sync.Mutex
	transfers map[string]string
	charges   map[string]Outcome

	// FailTransfers / FailCharges make the next calls error out.
	FailTransfers bool
	FailCharges   bool

	// ChargeCapCents caps what a charge can collect (0 = no cap), to
	// simulate partial recoveries.
	ChargeCapCents int64
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		transfers: make(map[string]string),
		charges:   make(map[string]Outcome),
	}
}

func (g *FakeGateway) TransferToHost(ctx context.Context, amountCents int64, hostAccountRef, idempotencyKey string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.transfers[idempotencyKey]; ok {
		return id, nil
	}
	if g.FailTransfers {
		return "", fmt.Errorf("transfer to %s declined", hostAccountRef)
	}
	id := "tr_" + uuid.NewString()
	g.transfers[idempotencyKey] = id
	return id, nil
}

func (g *FakeGateway) ChargeOrDeductDeposit(ctx context.Context, amountCents int64, depositRef, idempotencyKey string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.charges[idempotencyKey]; ok {
		return o, nil
	}
	if g.FailCharges {
		return Outcome{}, fmt.Errorf("charge against %s failed", depositRef)
	}
	collected := amountCents
	if g.ChargeCapCents > 0 && collected > g.ChargeCapCents {
		collected = g.ChargeCapCents
	}
	o := Outcome{AmountCents: collected, Reference: "ch_" + uuid.NewString()}
	g.charges[idempotencyKey] = o
	return o, nil
}

// TransferCount reports how many distinct transfers were made (test helper).
func (g *FakeGateway) TransferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

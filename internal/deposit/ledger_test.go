package deposit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
	"gari_rentals/internal/testdb"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	return NewLedger(db), db
}

func balance(t *testing.T, db *gorm.DB, reservationID uint) models.Deposit {
	t.Helper()
	var dep models.Deposit
	require.NoError(t, db.Where("reservation_id = ?", reservationID).First(&dep).Error)
	return dep
}

func assertConserved(t *testing.T, dep models.Deposit) {
	t.Helper()
	assert.LessOrEqual(t, dep.ReleasedCents+dep.EarmarkedCents, dep.HeldCents,
		"released + earmarked must never exceed held")
}

func TestHoldAndEarmark(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	dep, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), dep.HeldCents)

	require.NoError(t, ledger.Earmark(ctx, 1, 11, 30000))
	got := balance(t, db, 1)
	assert.Equal(t, int64(30000), got.EarmarkedCents)
	assertConserved(t, got)
}

func TestEarmarkBeyondAvailableFails(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	require.NoError(t, ledger.Earmark(ctx, 1, 11, 30000))

	err = ledger.Earmark(ctx, 1, 12, 30000)
	require.Error(t, err)
	assert.True(t, fault.IsInvariant(err))

	// Failed earmark leaves the balance untouched.
	got := balance(t, db, 1)
	assert.Equal(t, int64(30000), got.EarmarkedCents)
	assertConserved(t, got)
}

func TestEarmarkUpToCapsAtAvailable(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)

	earmarked, err := ledger.EarmarkUpTo(ctx, 1, 11, 60000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), earmarked)
	assertConserved(t, balance(t, db, 1))
}

func TestReleaseBeyondAvailableFails(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	require.NoError(t, ledger.Earmark(ctx, 1, 11, 40000))

	err = ledger.Release(ctx, 1, 20000, ReasonTripCompleted)
	require.Error(t, err)
	assert.True(t, fault.IsInvariant(err))

	require.NoError(t, ledger.Release(ctx, 1, 10000, ReasonTripCompleted))
	got := balance(t, db, 1)
	assert.Equal(t, int64(10000), got.ReleasedCents)
	assertConserved(t, got)
}

func TestRecoverConsumesEarmarkAndHeld(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	require.NoError(t, ledger.Earmark(ctx, 1, 11, 50000))

	consumed, err := ledger.Recover(ctx, 1, 11, 60000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), consumed, "recovery is capped at the earmark")

	got := balance(t, db, 1)
	assert.Zero(t, got.HeldCents)
	assert.Zero(t, got.EarmarkedCents)
	assertConserved(t, got)
}

func TestReleaseRemainder(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	require.NoError(t, ledger.Earmark(ctx, 1, 11, 20000))

	released, err := ledger.ReleaseRemainder(ctx, 1, ReasonBookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), released)

	// A second call finds nothing left to release.
	released, err = ledger.ReleaseRemainder(ctx, 1, ReasonBookingCancelled)
	require.NoError(t, err)
	assert.Zero(t, released)

	got := balance(t, db, 1)
	assert.Equal(t, int64(30000), got.ReleasedCents)
	assertConserved(t, got)
}

func TestEveryMutationAppendsAnAdjustment(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)
	require.NoError(t, ledger.Earmark(ctx, 1, 11, 20000))
	_, err = ledger.Recover(ctx, 1, 11, 20000)
	require.NoError(t, err)
	_, err = ledger.ReleaseRemainder(ctx, 1, ReasonTripCompleted)
	require.NoError(t, err)

	_, adjustments, err := ledger.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, adjustments, 4)

	kinds := make([]string, 0, len(adjustments))
	for _, a := range adjustments {
		kinds = append(kinds, a.Kind)
		assert.NotEmpty(t, a.AdjustmentRef)
		assert.Positive(t, a.AmountCents)
	}
	assert.Equal(t, []string{"hold", "earmark", "recovery", "release"}, kinds)
}

func TestNegativeAmountsRejected(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Hold(ctx, 1, -5)
	assert.True(t, fault.IsValidation(err))

	_, err = ledger.Hold(ctx, 1, 50000)
	require.NoError(t, err)

	assert.True(t, fault.IsValidation(ledger.Earmark(ctx, 1, 11, 0)))
	assert.True(t, fault.IsValidation(ledger.Release(ctx, 1, -1, ReasonTripCompleted)))
}

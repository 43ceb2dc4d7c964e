package claims

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gari_rentals/internal/deposit"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/models"
	"gari_rentals/internal/payment"
	"gari_rentals/internal/testdb"
)

type fixture struct {
	engine      *Engine
	deposits    *deposit.Ledger
	gateway     *payment.FakeGateway
	db          *gorm.DB
	vehicle     *models.Vehicle
	reservation *models.Reservation
}

// newFixture seeds a host, a vehicle, an active reservation and a held
// deposit of the given amount.
func newFixture(t *testing.T, heldCents int64) *fixture {
	t.Helper()
	db := testdb.Open(t)

	host := &models.Host{UserID: 1, BusinessName: "Gari Fleet Ltd", PayoutAccountRef: "acct_host_1"}
	require.NoError(t, db.Create(host).Error)

	vehicle := &models.Vehicle{
		HostID:       host.ID,
		Registration: "KDC 200D",
		Make:         "Subaru",
		VehicleModel: "Forester",
		Active:       true,
	}
	require.NoError(t, db.Create(vehicle).Error)

	reservation := &models.Reservation{
		VehicleID: vehicle.ID,
		GuestID:   7,
		StartDate: time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, time.June, 5, 0, 0, 0, 0, time.UTC),
		Status:    models.ReservationActive,
	}
	require.NoError(t, db.Create(reservation).Error)

	deposits := deposit.NewLedger(db)
	if heldCents > 0 {
		_, err := deposits.Hold(context.Background(), reservation.ID, heldCents)
		require.NoError(t, err)
	}

	gateway := payment.NewFakeGateway()
	return &fixture{
		engine:      NewEngine(db, deposits, gateway, nil),
		deposits:    deposits,
		gateway:     gateway,
		db:          db,
		vehicle:     vehicle,
		reservation: reservation,
	}
}

func (f *fixture) reloadVehicle(t *testing.T) models.Vehicle {
	t.Helper()
	var v models.Vehicle
	require.NoError(t, f.db.First(&v, f.vehicle.ID).Error)
	return v
}

func TestFileClaimDeactivatesVehicle(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "scratched rear bumper", 30000)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPending, claim.Status)

	v := f.reloadVehicle(t)
	assert.False(t, v.Active)
	require.NotNil(t, v.DeactivatedByClaimID)
	assert.Equal(t, claim.ID, *v.DeactivatedByClaimID)
}

func TestCancelPendingClaimReactivatesVehicle(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 30000)
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimCancelled, cancelled.Status)

	v := f.reloadVehicle(t)
	assert.True(t, v.Active)
	assert.Nil(t, v.DeactivatedByClaimID)

	// A cancelled claim can no longer be paid; the error names both states.
	_, err = f.engine.Payout(ctx, claim.ID, 30000, 0)
	require.Error(t, err)
	assert.True(t, fault.IsStateMismatch(err))
	assert.Contains(t, err.Error(), string(models.ClaimApproved))
	assert.Contains(t, err.Error(), string(models.ClaimCancelled))
}

func TestOnlyPendingClaimsCanBeCancelled(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 30000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 30000)
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, claim.ID)
	require.Error(t, err)
	assert.True(t, fault.IsStateMismatch(err))
}

func TestPayoutAdvanceExceedsDeposit(t *testing.T) {
	// Deposit holds $500; the claim is paid at $600 and only $500 comes
	// back from the guest: the platform carries the rest as a partial
	// recovery.
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 55000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 60000)
	require.NoError(t, err)

	result, err := f.engine.Payout(ctx, claim.ID, 60000, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), result.PlatformAdvanceCents)
	assert.Equal(t, int64(50000), result.RecoveredCents)
	assert.Equal(t, models.RecoveryPartial, result.RecoveryStatus)
	assert.NotEmpty(t, result.TransferRef)

	got, err := f.engine.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPaid, got.Status)
	assert.Equal(t, int64(60000), got.PaidCents)

	// The deposit was fully consumed by the recovery.
	dep, _, err := f.deposits.Get(ctx, f.reservation.ID)
	require.NoError(t, err)
	assert.Zero(t, dep.HeldCents)
	assert.Zero(t, dep.EarmarkedCents)
}

func TestPayoutFullRecovery(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "cleaning", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)

	result, err := f.engine.Payout(ctx, claim.ID, 20000, 20000)
	require.NoError(t, err)
	assert.Equal(t, models.RecoveryFull, result.RecoveryStatus)
	assert.Equal(t, int64(20000), result.RecoveredCents)
}

func TestPayoutWithoutRecoveryStaysPending(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)

	result, err := f.engine.Payout(ctx, claim.ID, 20000, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RecoveryPending, result.RecoveryStatus)
	assert.Zero(t, result.RecoveredCents)
}

func TestRecoveryFailureDoesNotRevertPaidStatus(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)

	f.gateway.FailCharges = true
	result, err := f.engine.Payout(ctx, claim.ID, 20000, 20000)
	require.NoError(t, err, "recovery failure must not fail the payout")
	assert.Equal(t, models.RecoveryFailed, result.RecoveryStatus)

	got, err := f.engine.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPaid, got.Status)
	assert.Equal(t, int64(20000), got.PlatformAdvanceCents)
}

func TestTransferFailureLeavesClaimApproved(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)

	f.gateway.FailTransfers = true
	_, err = f.engine.Payout(ctx, claim.ID, 20000, 20000)
	require.Error(t, err)

	got, err := f.engine.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, got.Status, "failed transfer must leave the claim payable")
	assert.Zero(t, got.PaidCents)
}

func TestPayoutIsIdempotentOnClaimID(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)

	first, err := f.engine.Payout(ctx, claim.ID, 20000, 20000)
	require.NoError(t, err)

	second, err := f.engine.Payout(ctx, claim.ID, 20000, 20000)
	require.NoError(t, err)
	assert.Equal(t, first.RecoveredCents, second.RecoveredCents)
	assert.Equal(t, first.RecoveryStatus, second.RecoveryStatus)
	assert.Equal(t, 1, f.gateway.TransferCount(), "host must never be paid twice")

	// The paid amount is immutable on retries.
	_, err = f.engine.Payout(ctx, claim.ID, 25000, 0)
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestRejectClaimRecordsReason(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)

	rejected, err := f.engine.Reject(ctx, claim.ID, "pre-existing wear")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, rejected.Status)
	assert.Equal(t, "pre-existing wear", rejected.ReviewNote)
	assert.NotNil(t, rejected.ResolvedAt)

	v := f.reloadVehicle(t)
	assert.True(t, v.Active)
}

func TestReplayedPayoutKeepsWaiver(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)
	_, err = f.engine.Payout(ctx, claim.ID, 20000, 0)
	require.NoError(t, err)

	_, err = f.engine.WaiveRecovery(ctx, claim.ID)
	require.NoError(t, err)

	// The external retry job replays the payout; the waiver must survive.
	result, err := f.engine.Payout(ctx, claim.ID, 20000, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RecoveryWaived, result.RecoveryStatus)

	got, err := f.engine.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecoveryWaived, got.RecoveryStatus)
	assert.Equal(t, 1, f.gateway.TransferCount())
}

func TestWaiveRecoveryFreesEarmark(t *testing.T) {
	f := newFixture(t, 50000)
	ctx := context.Background()

	claim, err := f.engine.File(ctx, f.reservation.ID, "damage", "", 20000)
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, claim.ID, 20000)
	require.NoError(t, err)
	_, err = f.engine.Payout(ctx, claim.ID, 20000, 0)
	require.NoError(t, err)

	waived, err := f.engine.WaiveRecovery(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecoveryWaived, waived.RecoveryStatus)

	dep, _, err := f.deposits.Get(ctx, f.reservation.ID)
	require.NoError(t, err)
	assert.Zero(t, dep.EarmarkedCents)
	assert.Equal(t, int64(50000), dep.HeldCents)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRunExpirySweep_YesterdayAndTomorrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitDay, 1)
	expired := f.vendor(t, "Expired", active)
	current := f.vendor(t, "Current", active)
	now := f.clock.Now()
	old := f.recharge(t, expired.ID, plan.ID, 10, now.AddDate(0, 0, -1))
	f.recharge(t, current.ID, plan.ID, 10, now.AddDate(0, 0, 1))

	entry, err := NewExpirySweeper(f.stores, f.opts).RunExpirySweep(ctx, now)
	require.NoError(t, err)

	require.False(t, f.get(t, expired.ID).PlanStatus)
	require.True(t, f.get(t, current.ID).PlanStatus)

	require.Equal(t, models.CronStatusSuccess, entry.Status)
	require.Equal(t, ExpirySweepJobName, entry.JobName)
	require.Equal(t, []models.ExpiredPlan{{VendorID: expired.ID, PlanID: plan.ID, RechargeID: old.ID}}, entry.Affected)

	logs, err := f.store.CronLogs().ListRecent(ctx, ExpirySweepJobName, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Contains(t, f.events.types(), EventExpirySweep)

	stored, err := f.store.Recharges().FindByID(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExpiredAt)
}

func TestRunExpirySweep_RepeatRunLeavesSwitchedOffPlanAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitDay, 1)
	vendor := f.vendor(t, "Vendor", active)
	old := f.recharge(t, vendor.ID, plan.ID, 10, f.clock.Now().Add(-time.Hour))
	sweeper := NewExpirySweeper(f.stores, f.opts)

	first, err := sweeper.RunExpirySweep(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, first.Affected, 1)
	stamped, err := f.store.Recharges().FindByID(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, stamped.ExpiredAt)

	second, err := sweeper.RunExpirySweep(ctx, f.clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, models.CronStatusSuccess, second.Status)
	require.Empty(t, second.Affected)
	require.False(t, f.get(t, vendor.ID).PlanStatus)

	again, err := f.store.Recharges().FindByID(ctx, old.ID)
	require.NoError(t, err)
	require.Equal(t, *stamped.ExpiredAt, *again.ExpiredAt)

	logs, err := f.store.CronLogs().ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestRunExpirySweep_LateApprovalIsSwitchedOffAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitDay, 1)
	vendor := f.vendor(t, "Vendor", active)
	now := f.clock.Now()
	late := f.recharge(t, vendor.ID, plan.ID, 10, now.AddDate(0, 0, -1))
	sweeper := NewExpirySweeper(f.stores, f.opts)

	_, err := sweeper.RunExpirySweep(ctx, now)
	require.NoError(t, err)
	require.False(t, f.get(t, vendor.ID).PlanStatus)

	_, err = NewSettlementService(f.stores, f.opts).ApproveRecharge(ctx, late.ID)
	require.NoError(t, err)
	require.True(t, f.get(t, vendor.ID).PlanStatus)

	for day := 1; day <= 3; day++ {
		entry, err := sweeper.RunExpirySweep(ctx, now.AddDate(0, 0, day))
		require.NoError(t, err)
		require.False(t, f.get(t, vendor.ID).PlanStatus, "day %d", day)
		if day == 1 {
			require.Equal(t, []models.ExpiredPlan{{VendorID: vendor.ID, PlanID: plan.ID, RechargeID: late.ID}}, entry.Affected)
		} else {
			require.Empty(t, entry.Affected)
		}
	}
}

func TestRunExpirySweep_KeepsPlanCoveredByAnotherRecharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitMonth, 1)
	vendor := f.vendor(t, "Vendor", active)
	now := f.clock.Now()
	old := f.recharge(t, vendor.ID, plan.ID, 10, now.AddDate(0, 0, -2))
	f.recharge(t, vendor.ID, plan.ID, 10, now.AddDate(0, 1, 0))

	entry, err := NewExpirySweeper(f.stores, f.opts).RunExpirySweep(ctx, now)
	require.NoError(t, err)
	require.Empty(t, entry.Affected)
	require.True(t, f.get(t, vendor.ID).PlanStatus)

	stored, err := f.store.Recharges().FindByID(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExpiredAt)
}

type flakyExpiry struct {
	RechargeStore
	failID primitive.ObjectID
}

func (s flakyExpiry) MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	if id == s.failID {
		return errors.New("write conflict")
	}
	return s.RechargeStore.MarkExpired(ctx, id, at)
}

func TestRunExpirySweep_IsolatesItemFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitDay, 1)
	a := f.vendor(t, "A", active)
	b := f.vendor(t, "B", active)
	now := f.clock.Now()
	failing := f.recharge(t, a.ID, plan.ID, 10, now.AddDate(0, 0, -2))
	f.recharge(t, b.ID, plan.ID, 10, now.AddDate(0, 0, -1))

	stores := f.stores
	stores.Recharges = flakyExpiry{RechargeStore: f.stores.Recharges, failID: failing.ID}

	entry, err := NewExpirySweeper(stores, f.opts).RunExpirySweep(ctx, now)
	require.NoError(t, err)
	require.Equal(t, models.CronStatusPartial, entry.Status)
	require.Len(t, entry.Failures, 1)
	require.Equal(t, failing.ID, entry.Failures[0].RechargeID)
	require.Len(t, entry.Affected, 1)
	require.Equal(t, b.ID, entry.Affected[0].VendorID)

	// the failed item rolled back and stays eligible for the next run
	require.True(t, f.get(t, a.ID).PlanStatus)
	require.False(t, f.get(t, b.ID).PlanStatus)
}

func TestRunExpirySweep_QueryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.FailOn("recharges.findExpired", errors.New("timeout"))

	entry, err := NewExpirySweeper(f.stores, f.opts).RunExpirySweep(ctx, f.clock.Now())
	require.ErrorContains(t, err, "timeout")
	require.Equal(t, models.CronStatusError, entry.Status)

	logs, err := f.store.CronLogs().ListRecent(ctx, ExpirySweepJobName, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "timeout", logs[0].Error)
}

func TestRunExpirySweep_AuditFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 10, 1, models.ValidityUnitDay, 1)
	vendor := f.vendor(t, "Vendor", active)
	f.recharge(t, vendor.ID, plan.ID, 10, f.clock.Now().AddDate(0, 0, -1))
	f.store.FailOn("cronLogs.append", errors.New("disk full"))

	entry, err := NewExpirySweeper(f.stores, f.opts).RunExpirySweep(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, models.CronStatusSuccess, entry.Status)
	require.False(t, f.get(t, vendor.ID).PlanStatus)
}

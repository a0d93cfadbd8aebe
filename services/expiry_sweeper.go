package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ExpirySweepJobName identifies expiry sweep runs in the cron job log.
const ExpirySweepJobName = "recharge_expiry_sweep"

// ExpirySweeper switches off vendor plans whose recharge ended.
type ExpirySweeper struct {
	stores Stores
	opts   Options
}

func NewExpirySweeper(stores Stores, opts Options) *ExpirySweeper {
	return &ExpirySweeper{stores: stores, opts: opts.withDefaults()}
}

// Run sweeps at the current clock time. It satisfies the Scheduler job signature.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	_, err := s.RunExpirySweep(ctx, s.opts.Clock.Now().UTC())
	return err
}

// RunExpirySweep processes every recharge that ended before now. Records swept by
// an earlier run are checked again so a plan reactivated by a late approval is
// still switched off. One failing item does not stop the others. Exactly one CronJobLog is
// written per run; a failure to write it is logged, not returned.
func (s *ExpirySweeper) RunExpirySweep(ctx context.Context, now time.Time) (*models.CronJobLog, error) {
	entry := &models.CronJobLog{
		JobName:   ExpirySweepJobName,
		StartedAt: s.opts.Clock.Now().UTC(),
		Affected:  []models.ExpiredPlan{},
	}

	expired, err := s.stores.Recharges.FindExpired(ctx, now)
	if err != nil {
		entry.Status = models.CronStatusError
		entry.Error = err.Error()
		s.finish(ctx, entry)
		return entry, errors.Annotate(err, "finding expired recharges")
	}

	for _, recharge := range expired {
		switchedOff, err := s.expire(ctx, recharge, now)
		if err != nil {
			s.opts.Logger.Error("Failed to expire recharge",
				zap.String("recharge_id", recharge.ID.Hex()),
				zap.String("vendor_id", recharge.VendorID.Hex()),
				zap.Error(err),
			)
			entry.Failures = append(entry.Failures, models.JobFailure{
				RechargeID: recharge.ID,
				Error:      err.Error(),
			})
			continue
		}
		if switchedOff {
			entry.Affected = append(entry.Affected, models.ExpiredPlan{
				VendorID:   recharge.VendorID,
				PlanID:     recharge.PlanID,
				RechargeID: recharge.ID,
			})
		}
	}

	switch {
	case len(entry.Failures) == 0:
		entry.Status = models.CronStatusSuccess
	case len(entry.Failures) == len(expired):
		entry.Status = models.CronStatusError
		entry.Error = fmt.Sprintf("all %d expired recharges failed", len(expired))
	default:
		entry.Status = models.CronStatusPartial
	}
	metrics.ExpiredPlans.Add(float64(len(entry.Affected)))
	s.finish(ctx, entry)
	return entry, nil
}

// expire switches the vendor's plan off unless another recharge still covers it,
// and stamps expiredAt the first time the recharge is swept. It reports whether
// the plan was switched off; a plan that is already off is left alone.
func (s *ExpirySweeper) expire(ctx context.Context, recharge models.Recharge, now time.Time) (bool, error) {
	switchedOff := false
	err := s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		switchedOff = false
		vendor, err := s.stores.Vendors.FindByID(ctx, recharge.VendorID)
		switch {
		case errors.Is(err, errors.NotFound):
			s.opts.Logger.Warn("Vendor of expired recharge not found",
				zap.String("recharge_id", recharge.ID.Hex()),
				zap.String("vendor_id", recharge.VendorID.Hex()),
			)
		case err != nil:
			return errors.Annotate(err, "loading vendor")
		case vendor.PlanStatus:
			active, err := s.stores.Recharges.HasActive(ctx, recharge.VendorID, recharge.ID, now)
			if err != nil {
				return errors.Annotate(err, "checking active recharges")
			}
			if !active {
				if err := s.stores.Vendors.SetPlanStatus(ctx, recharge.VendorID, false, now); err != nil {
					return errors.Annotate(err, "switching plan off")
				}
				switchedOff = true
			}
		}
		if recharge.ExpiredAt != nil {
			return nil
		}
		return errors.Annotate(s.stores.Recharges.MarkExpired(ctx, recharge.ID, now), "marking recharge expired")
	})
	return switchedOff, err
}

func (s *ExpirySweeper) finish(ctx context.Context, entry *models.CronJobLog) {
	entry.FinishedAt = s.opts.Clock.Now().UTC()
	metrics.SweepRuns.WithLabelValues(entry.Status).Inc()

	if err := s.stores.Audit.Append(ctx, entry); err != nil {
		s.opts.Logger.Error("Failed to write cron job log",
			zap.String("job", entry.JobName),
			zap.Error(errors.Wrap(err, ErrDownstreamFailure)),
		)
	}

	s.opts.Logger.Info("Expiry sweep finished",
		zap.String("status", entry.Status),
		zap.Int("expired", len(entry.Affected)),
		zap.Int("failed", len(entry.Failures)),
		zap.Duration("duration", entry.FinishedAt.Sub(entry.StartedAt)),
	)
	s.opts.Events.Publish(Event{
		Type:    EventExpirySweep,
		Message: fmt.Sprintf("Expiry sweep %s: %d plans expired", entry.Status, len(entry.Affected)),
		Data:    entry,
	})
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RechargeService manages the recharge lifecycle up to, but not including, settlement.
type RechargeService struct {
	stores Stores
	opts   Options
}

func NewRechargeService(stores Stores, opts Options) *RechargeService {
	return &RechargeService{stores: stores, opts: opts.withDefaults()}
}

// ComputeEndDate adds validity units of unit to now.
func ComputeEndDate(now time.Time, validity int, unit string) (time.Time, error) {
	if validity <= 0 {
		return time.Time{}, ErrInvalidValidityUnit
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case models.ValidityUnitDay:
		return now.AddDate(0, 0, validity), nil
	case models.ValidityUnitWeek:
		return now.AddDate(0, 0, validity*7), nil
	case models.ValidityUnitMonth:
		return now.AddDate(0, validity, 0), nil
	case models.ValidityUnitYear:
		return now.AddDate(validity, 0, 0), nil
	default:
		return time.Time{}, ErrInvalidValidityUnit
	}
}

// CreateRecharge records a pending plan purchase and activates the vendor's plan.
func (s *RechargeService) CreateRecharge(ctx context.Context, vendorID, planID primitive.ObjectID, trnNo string) (*models.Recharge, error) {
	plan, err := s.stores.Plans.FindByID(ctx, planID)
	if errors.Is(err, errors.NotFound) {
		return nil, ErrInvalidPlan
	}
	if err != nil {
		return nil, errors.Annotatef(err, "loading plan %s", planID.Hex())
	}

	vendor, err := s.stores.Vendors.FindByID(ctx, vendorID)
	if errors.Is(err, errors.NotFound) {
		return nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, errors.Annotatef(err, "loading vendor %s", vendorID.Hex())
	}

	now := s.opts.Clock.Now().UTC()
	endDate, err := ComputeEndDate(now, plan.Validity, plan.Unit)
	if err != nil {
		return nil, err
	}

	trnNo = strings.TrimSpace(trnNo)
	if trnNo == "" {
		trnNo = "TRN-" + uuid.NewString()
	}

	var recharge *models.Recharge
	err = s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		recharge = &models.Recharge{
			VendorID:  vendor.ID,
			PlanID:    plan.ID,
			Amount:    plan.Price,
			TrnNo:     trnNo,
			EndDate:   endDate,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.stores.Recharges.Create(ctx, recharge); err != nil {
			return errors.Annotate(err, "inserting recharge")
		}

		updated, err := s.stores.Vendors.ActivatePlan(ctx, vendor.ID, plan.ID, now)
		if err != nil {
			return errors.Annotate(err, "activating vendor plan")
		}

		invite, err := s.stores.Invites.FindActiveByPhone(ctx, updated.Phone)
		switch {
		case errors.Is(err, errors.NotFound):
			return nil
		case err != nil:
			return errors.Annotate(err, "loading referral invite")
		}
		if updated.RechargeCount > 1 {
			if err := s.stores.Invites.MarkConverted(ctx, invite.ID, now); err != nil {
				return errors.Annotate(err, "converting referral invite")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RechargesCreated.Inc()
	s.opts.Logger.Info("Recharge created",
		zap.String("recharge_id", recharge.ID.Hex()),
		zap.String("vendor_id", vendor.ID.Hex()),
		zap.String("plan_id", plan.ID.Hex()),
		zap.Float64("amount", recharge.Amount),
		zap.Time("end_date", recharge.EndDate),
	)

	s.opts.Events.Publish(Event{
		Type:    EventRechargeCreated,
		Message: fmt.Sprintf("%s recharged %s", vendor.FullName, plan.Name),
		Data:    recharge,
	})
	s.notifyCreated(vendor, plan, recharge)

	return recharge, nil
}

func (s *RechargeService) notifyCreated(vendor *models.Vendor, plan *models.MembershipPlan, recharge *models.Recharge) {
	body := fmt.Sprintf("Vendor: %s (%s)\nPlan: %s\nAmount: %.2f\nTransaction: %s\nValid until: %s\n",
		vendor.FullName, vendor.Email, plan.Name, recharge.Amount, recharge.TrnNo,
		recharge.EndDate.Format("2006-01-02"))

	if s.opts.AdminEmail != "" {
		s.opts.Notifier.Enqueue(Message{
			To:      s.opts.AdminEmail,
			Subject: "New recharge awaiting approval",
			Body:    body,
		})
	}
	if vendor.FCMToken != "" {
		s.opts.Notifier.Enqueue(Message{
			DeviceToken: vendor.FCMToken,
			Subject:     "Recharge received",
			Body:        fmt.Sprintf("Your %s recharge is pending approval.", plan.Name),
			Data: map[string]string{
				"type":       EventRechargeCreated,
				"rechargeId": recharge.ID.Hex(),
			},
		})
	}
}

// CancelRecharge moves a pending recharge to cancelled. Wallets are not touched.
func (s *RechargeService) CancelRecharge(ctx context.Context, id primitive.ObjectID, reason string) (*models.Recharge, error) {
	unlock, err := s.opts.Locker.Lock(ctx, id.Hex())
	if err != nil {
		return nil, errors.Annotate(err, "locking recharge")
	}
	defer unlock()

	reason = strings.TrimSpace(reason)
	var recharge *models.Recharge
	err = s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.stores.Recharges.FindByID(ctx, id)
		if errors.Is(err, errors.NotFound) {
			return ErrRechargeNotFound
		}
		if err != nil {
			return errors.Annotate(err, "loading recharge")
		}
		if err := pendingGuard(current); err != nil {
			return err
		}

		now := s.opts.Clock.Now().UTC()
		if err := s.stores.Recharges.MarkCancelled(ctx, id, reason, now); err != nil {
			if errors.Is(err, errors.NotFound) {
				return s.classifyLostRace(ctx, id)
			}
			return errors.Annotate(err, "cancelling recharge")
		}

		recharge, err = s.stores.Recharges.FindByID(ctx, id)
		return errors.Annotate(err, "reloading recharge")
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("Recharge cancelled",
		zap.String("recharge_id", id.Hex()),
		zap.String("reason", reason),
	)
	s.opts.Events.Publish(Event{
		Type:    EventRechargeCancelled,
		Message: "Recharge cancelled",
		Data:    recharge,
	})
	return recharge, nil
}

// classifyLostRace explains why a compare-and-swap on a pending recharge matched nothing.
func (s *RechargeService) classifyLostRace(ctx context.Context, id primitive.ObjectID) error {
	return classifyLostRace(ctx, s.stores.Recharges, id)
}

func classifyLostRace(ctx context.Context, recharges RechargeStore, id primitive.ObjectID) error {
	current, err := recharges.FindByID(ctx, id)
	if errors.Is(err, errors.NotFound) {
		return ErrRechargeNotFound
	}
	if err != nil {
		return errors.Annotate(err, "reloading recharge")
	}
	if err := pendingGuard(current); err != nil {
		return err
	}
	return errors.Errorf("recharge %s changed concurrently", id.Hex())
}

// pendingGuard rejects recharges that already reached a terminal state.
func pendingGuard(recharge *models.Recharge) error {
	if recharge.IsCancelPayment {
		return ErrAlreadyCancelled
	}
	if recharge.PaymentApproved {
		return ErrAlreadyApproved
	}
	return nil
}

func (s *RechargeService) GetRecharge(ctx context.Context, id primitive.ObjectID) (*models.Recharge, error) {
	recharge, err := s.stores.Recharges.FindByID(ctx, id)
	if errors.Is(err, errors.NotFound) {
		return nil, ErrRechargeNotFound
	}
	if err != nil {
		return nil, errors.Annotate(err, "loading recharge")
	}
	return recharge, nil
}

func (s *RechargeService) ListVendorRecharges(ctx context.Context, vendorID primitive.ObjectID) ([]models.Recharge, error) {
	if _, err := s.stores.Vendors.FindByID(ctx, vendorID); err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, errors.Annotate(err, "loading vendor")
	}
	recharges, err := s.stores.Recharges.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, errors.Annotate(err, "listing recharges")
	}
	return recharges, nil
}

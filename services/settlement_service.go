package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SettlementService approves recharges and distributes referral commission.
type SettlementService struct {
	stores Stores
	opts   Options
}

func NewSettlementService(stores Stores, opts Options) *SettlementService {
	return &SettlementService{stores: stores, opts: opts.withDefaults()}
}

// ApproveRecharge settles a pending recharge exactly once. The guard read, every
// wallet credit with its ledger line, and the approval flag commit together.
func (s *SettlementService) ApproveRecharge(ctx context.Context, id primitive.ObjectID) (*models.ApproveRechargeResponse, error) {
	unlock, err := s.opts.Locker.Lock(ctx, id.Hex())
	if err != nil {
		return nil, errors.Annotate(err, "locking recharge")
	}
	defer unlock()

	var (
		result *models.ApproveRechargeResponse
		owner  *models.Vendor
	)
	err = s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, owner, err = s.settle(ctx, id)
		return err
	})
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues("approved").Inc()
	if result.CreditedReferrer != nil {
		metrics.CommissionCredited.WithLabelValues(models.WalletTxReferralCommission).Add(result.CreditedReferrer.Amount)
	}
	for _, credit := range result.CreditedAncestors {
		metrics.CommissionCredited.WithLabelValues(models.WalletTxAncestorCommission).Add(credit.Amount)
	}

	s.opts.Logger.Info("Recharge approved",
		zap.String("recharge_id", id.Hex()),
		zap.String("vendor_id", owner.ID.Hex()),
		zap.Float64("amount", result.Recharge.Amount),
		zap.Int("ancestors_credited", len(result.CreditedAncestors)),
		zap.Float64("commission_total", result.Recharge.Settlement.Total),
	)
	s.opts.Events.Publish(Event{
		Type:    EventRechargeApproved,
		Message: fmt.Sprintf("Recharge %s approved for %s", result.Recharge.TrnNo, owner.FullName),
		Data:    result,
	})
	s.notifyCredited(ctx, result)

	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, id primitive.ObjectID) (*models.ApproveRechargeResponse, *models.Vendor, error) {
	recharge, err := s.stores.Recharges.FindByID(ctx, id)
	if errors.Is(err, errors.NotFound) {
		return nil, nil, ErrRechargeNotFound
	}
	if err != nil {
		return nil, nil, errors.Annotate(err, "loading recharge")
	}
	if err := pendingGuard(recharge); err != nil {
		return nil, nil, err
	}
	if !validAmount(recharge.Amount) {
		return nil, nil, ErrInvalidAmount
	}

	owner, err := s.stores.Vendors.FindByID(ctx, recharge.VendorID)
	if errors.Is(err, errors.NotFound) {
		return nil, nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, nil, errors.Annotate(err, "loading vendor")
	}

	now := s.opts.Clock.Now().UTC()
	settlement := models.Settlement{Ancestors: []models.Credit{}}

	referrer, err := s.directReferrer(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	var referrerID *primitive.ObjectID
	if referrer != nil {
		referrerID = &referrer.ID
		rate := ReferrerRatePercent(owner.RechargeCount)
		credit, err := s.credit(ctx, recharge, referrer.ID, rate, models.WalletTxReferralCommission, now)
		if err != nil {
			return nil, nil, err
		}
		if credit != nil {
			settlement.Referrer = credit
			settlement.Total += credit.Amount
		}
	}

	ancestors, err := s.stores.Vendors.FindAncestors(ctx, owner.ID)
	if err != nil {
		return nil, nil, errors.Annotate(err, "loading ancestors")
	}
	for _, ancestor := range SelectAncestors(ancestors, owner.ID, referrerID) {
		credit, err := s.credit(ctx, recharge, ancestor.ID, AncestorRatePercent, models.WalletTxAncestorCommission, now)
		if err != nil {
			return nil, nil, err
		}
		if credit != nil {
			settlement.Ancestors = append(settlement.Ancestors, *credit)
			settlement.Total += credit.Amount
		}
	}
	settlement.Total = roundCents(settlement.Total)

	if err := s.stores.Recharges.MarkApproved(ctx, recharge.ID, settlement, now); err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, nil, classifyLostRace(ctx, s.stores.Recharges, recharge.ID)
		}
		return nil, nil, errors.Annotate(err, "marking recharge approved")
	}

	var level *int
	plan, err := s.stores.Plans.FindByID(ctx, recharge.PlanID)
	switch {
	case errors.Is(err, errors.NotFound):
		s.opts.Logger.Warn("Plan of approved recharge not found, keeping vendor level",
			zap.String("recharge_id", recharge.ID.Hex()),
			zap.String("plan_id", recharge.PlanID.Hex()),
		)
	case err != nil:
		return nil, nil, errors.Annotate(err, "loading plan")
	default:
		level = &plan.Level
	}
	if err := s.stores.Vendors.MarkSettled(ctx, owner.ID, level, now); err != nil {
		return nil, nil, errors.Annotate(err, "updating vendor plan")
	}

	approved, err := s.stores.Recharges.FindByID(ctx, recharge.ID)
	if err != nil {
		return nil, nil, errors.Annotate(err, "reloading recharge")
	}
	return &models.ApproveRechargeResponse{
		Recharge:          *approved,
		CreditedReferrer:  settlement.Referrer,
		CreditedAncestors: settlement.Ancestors,
	}, owner, nil
}

// directReferrer resolves the owner's parent link. A dangling link means no referrer.
func (s *SettlementService) directReferrer(ctx context.Context, owner *models.Vendor) (*models.Vendor, error) {
	if owner.ParentReferralID == nil || *owner.ParentReferralID == owner.ID {
		return nil, nil
	}
	referrer, err := s.stores.Vendors.FindByID(ctx, *owner.ParentReferralID)
	if errors.Is(err, errors.NotFound) {
		s.opts.Logger.Warn("Direct referrer not found, skipping referrer commission",
			zap.String("vendor_id", owner.ID.Hex()),
			zap.String("parent_referral_id", owner.ParentReferralID.Hex()),
		)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotate(err, "loading direct referrer")
	}
	return referrer, nil
}

// credit pays percent of the recharge amount to vendorID and records the ledger line.
// A commission that rounds to zero is skipped and reported as nil.
func (s *SettlementService) credit(ctx context.Context, recharge *models.Recharge, vendorID primitive.ObjectID, percent int64, txType string, now time.Time) (*models.Credit, error) {
	amount := CommissionAmount(recharge.Amount, percent)
	if amount <= 0 {
		return nil, nil
	}
	if err := s.stores.Vendors.CreditWallet(ctx, vendorID, amount, now); err != nil {
		return nil, errors.Annotatef(err, "crediting vendor %s", vendorID.Hex())
	}
	rechargeID := recharge.ID
	err := s.stores.Ledger.Append(ctx, &models.WalletTransaction{
		VendorID:    vendorID,
		Amount:      amount,
		Type:        txType,
		RatePercent: float64(percent),
		RechargeID:  &rechargeID,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "recording %s for vendor %s", txType, vendorID.Hex())
	}
	return &models.Credit{
		VendorID:    vendorID,
		Amount:      amount,
		RatePercent: float64(percent),
		Type:        txType,
	}, nil
}

func (s *SettlementService) notifyCredited(ctx context.Context, result *models.ApproveRechargeResponse) {
	credits := result.CreditedAncestors
	if result.CreditedReferrer != nil {
		credits = append([]models.Credit{*result.CreditedReferrer}, credits...)
	}
	if len(credits) == 0 {
		return
	}

	ids := make([]primitive.ObjectID, 0, len(credits))
	amounts := make(map[primitive.ObjectID]float64, len(credits))
	for _, c := range credits {
		ids = append(ids, c.VendorID)
		amounts[c.VendorID] = c.Amount
	}
	vendors, err := s.stores.Vendors.FindByIDs(ctx, ids)
	if err != nil {
		s.opts.Logger.Warn("Failed to load credited vendors for notification", zap.Error(err))
		return
	}
	for _, v := range vendors {
		if v.FCMToken == "" {
			continue
		}
		s.opts.Notifier.Enqueue(Message{
			DeviceToken: v.FCMToken,
			Subject:     "Commission received",
			Body:        fmt.Sprintf("%.2f was added to your wallet.", amounts[v.ID]),
			Data: map[string]string{
				"type":       EventRechargeApproved,
				"rechargeId": result.Recharge.ID.Hex(),
			},
		})
	}
}

// resultLabel is the metrics label for a failed settlement.
func resultLabel(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "error"
}

package services

import (
	"context"
	"strings"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WithdrawalService moves money out of vendor wallets. The amount is held at request
// time and refunded when the request is rejected or cancelled.
type WithdrawalService struct {
	stores Stores
	opts   Options
}

func NewWithdrawalService(stores Stores, opts Options) *WithdrawalService {
	return &WithdrawalService{stores: stores, opts: opts.withDefaults()}
}

// RequestWithdrawal debits amount from the vendor's wallet and opens a pending request.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, vendorID primitive.ObjectID, amount float64, note string) (*models.Withdrawal, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	amount = roundCents(amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.opts.Clock.Now().UTC()
	withdrawal := &models.Withdrawal{
		VendorID:  vendorID,
		Amount:    amount,
		Status:    models.WithdrawalStatusPending,
		UserNote:  strings.TrimSpace(note),
		CreatedAt: now,
	}
	err := s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		withdrawal.ID = primitive.NilObjectID
		vendor, err := s.stores.Vendors.FindByID(ctx, vendorID)
		if errors.Is(err, errors.NotFound) {
			return ErrVendorNotFound
		}
		if err != nil {
			return errors.Annotate(err, "loading vendor")
		}
		if vendor.Wallet < amount {
			return ErrInsufficientBalance
		}
		if err := s.stores.Vendors.DebitWallet(ctx, vendorID, amount, now); err != nil {
			if errors.Is(err, errors.NotValid) {
				return ErrInsufficientBalance
			}
			return errors.Annotate(err, "debiting wallet")
		}
		if err := s.stores.Withdrawals.Create(ctx, withdrawal); err != nil {
			return errors.Annotate(err, "inserting withdrawal")
		}
		withdrawalID := withdrawal.ID
		return errors.Annotate(s.stores.Ledger.Append(ctx, &models.WalletTransaction{
			VendorID:     vendorID,
			Amount:       -amount,
			Type:         models.WalletTxWithdrawalHold,
			WithdrawalID: &withdrawalID,
			CreatedAt:    now,
		}), "recording withdrawal hold")
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("Withdrawal requested",
		zap.String("withdrawal_id", withdrawal.ID.Hex()),
		zap.String("vendor_id", vendorID.Hex()),
		zap.Float64("amount", amount),
	)
	s.publish(withdrawal, "Withdrawal requested")
	return withdrawal, nil
}

// ApproveWithdrawal marks a pending request paid out. The wallet was debited at request time.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, id, adminID primitive.ObjectID, note string) (*models.Withdrawal, error) {
	return s.resolve(ctx, id, models.WithdrawalStatusApproved, &adminID, note, nil)
}

// RejectWithdrawal refuses a pending request and refunds the held amount.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, id, adminID primitive.ObjectID, reason string) (*models.Withdrawal, error) {
	return s.resolve(ctx, id, models.WithdrawalStatusRejected, &adminID, reason, nil)
}

// CancelWithdrawal lets the owning vendor withdraw a pending request and get the amount back.
func (s *WithdrawalService) CancelWithdrawal(ctx context.Context, id, vendorID primitive.ObjectID) (*models.Withdrawal, error) {
	return s.resolve(ctx, id, models.WithdrawalStatusCancelled, nil, "", &vendorID)
}

func (s *WithdrawalService) resolve(ctx context.Context, id primitive.ObjectID, status string, adminID *primitive.ObjectID, note string, owner *primitive.ObjectID) (*models.Withdrawal, error) {
	note = strings.TrimSpace(note)
	now := s.opts.Clock.Now().UTC()

	var withdrawal *models.Withdrawal
	err := s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.stores.Withdrawals.FindByID(ctx, id)
		if errors.Is(err, errors.NotFound) {
			return ErrWithdrawalNotFound
		}
		if err != nil {
			return errors.Annotate(err, "loading withdrawal")
		}
		if owner != nil && current.VendorID != *owner {
			return ErrWithdrawalNotFound
		}
		if current.Status != models.WithdrawalStatusPending {
			return ErrWithdrawalProcessed
		}

		if err := s.stores.Withdrawals.Resolve(ctx, id, status, adminID, note, now); err != nil {
			if errors.Is(err, errors.NotFound) {
				return ErrWithdrawalProcessed
			}
			return errors.Annotate(err, "resolving withdrawal")
		}

		if status != models.WithdrawalStatusApproved {
			if err := s.stores.Vendors.CreditWallet(ctx, current.VendorID, current.Amount, now); err != nil {
				return errors.Annotate(err, "refunding wallet")
			}
			err := s.stores.Ledger.Append(ctx, &models.WalletTransaction{
				VendorID:     current.VendorID,
				Amount:       current.Amount,
				Type:         models.WalletTxWithdrawalRefund,
				WithdrawalID: &current.ID,
				CreatedAt:    now,
			})
			if err != nil {
				return errors.Annotate(err, "recording withdrawal refund")
			}
		}

		withdrawal, err = s.stores.Withdrawals.FindByID(ctx, id)
		return errors.Annotate(err, "reloading withdrawal")
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("Withdrawal resolved",
		zap.String("withdrawal_id", id.Hex()),
		zap.String("status", status),
	)
	s.publish(withdrawal, "Withdrawal "+status)
	return withdrawal, nil
}

func (s *WithdrawalService) publish(withdrawal *models.Withdrawal, message string) {
	s.opts.Events.Publish(Event{
		Type:    EventWithdrawalUpdated,
		Message: message,
		Data:    withdrawal,
	})
}

package services

import (
	"context"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TxRunner runs fn inside one atomic unit of work. fn may be invoked more than once
// when the backing store retries a transient conflict, so it must not leak partial state.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// VendorStore persists vendors, their wallets and their referral links.
// Lookups of missing documents return errors satisfying errors.Is(err, errors.NotFound).
type VendorStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)
	FindByReferralCode(ctx context.Context, code string) (*models.Vendor, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Vendor, error)
	Create(ctx context.Context, vendor *models.Vendor) error
	// FindAncestors returns every vendor whose childReferralIds holds id,
	// ordered by creation time then id.
	FindAncestors(ctx context.Context, id primitive.ObjectID) ([]models.Vendor, error)
	ActivatePlan(ctx context.Context, id, planID primitive.ObjectID, at time.Time) (*models.Vendor, error)
	MarkSettled(ctx context.Context, id primitive.ObjectID, level *int, at time.Time) error
	SetPlanStatus(ctx context.Context, id primitive.ObjectID, active bool, at time.Time) error
	CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error
	// DebitWallet fails with errors.NotValid when the balance is below amount.
	DebitWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error
	// SetParentReferral only succeeds while the child has no parent.
	SetParentReferral(ctx context.Context, childID, parentID primitive.ObjectID, at time.Time) error
	AppendChildReferral(ctx context.Context, vendorIDs []primitive.ObjectID, childID primitive.ObjectID, at time.Time) error
}

// PlanCatalog is the read-only membership plan lookup.
type PlanCatalog interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.MembershipPlan, error)
}

// RechargeStore persists recharge records. The Mark* methods are compare-and-swap
// writes: they fail with errors.NotFound when the record is no longer pending.
type RechargeStore interface {
	Create(ctx context.Context, recharge *models.Recharge) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Recharge, error)
	ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Recharge, error)
	MarkApproved(ctx context.Context, id primitive.ObjectID, settlement models.Settlement, at time.Time) error
	MarkCancelled(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) error
	// FindExpired returns every record with endDate strictly before now, including
	// records an earlier sweep already stamped with expiredAt.
	FindExpired(ctx context.Context, now time.Time) ([]models.Recharge, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// HasActive reports whether the vendor holds an uncancelled record, other than exclude, ending at or after now.
	HasActive(ctx context.Context, vendorID, exclude primitive.ObjectID, now time.Time) (bool, error)
}

// InviteStore persists referral invitations keyed by phone number.
type InviteStore interface {
	Create(ctx context.Context, invite *models.ReferralInvite) error
	FindActiveByPhone(ctx context.Context, phone string) (*models.ReferralInvite, error)
	MarkConverted(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// LedgerStore is the append-only wallet transaction log.
type LedgerStore interface {
	Append(ctx context.Context, entry *models.WalletTransaction) error
	ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.WalletTransaction, error)
}

// WithdrawalStore persists withdrawal requests. Resolve only moves a pending request.
type WithdrawalStore interface {
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	Resolve(ctx context.Context, id primitive.ObjectID, status string, adminID *primitive.ObjectID, note string, at time.Time) error
}

// AuditLog stores one record per scheduled job run.
type AuditLog interface {
	Append(ctx context.Context, entry *models.CronJobLog) error
	ListRecent(ctx context.Context, jobName string, limit int64) ([]models.CronJobLog, error)
}

// EventPublisher fans settlement events out to live admin consoles.
type EventPublisher interface {
	Publish(event Event)
}

// Event is a live notification about a state change.
type Event struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	EventRechargeCreated   = "recharge_created"
	EventRechargeApproved  = "recharge_approved"
	EventRechargeCancelled = "recharge_cancelled"
	EventExpirySweep       = "expiry_sweep"
	EventWithdrawalUpdated = "withdrawal_updated"
)

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

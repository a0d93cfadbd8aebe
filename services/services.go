package services

import (
	"github.com/juju/clock"
	"go.uber.org/zap"
)

// Stores groups the persistence dependencies shared by the services.
type Stores struct {
	Tx          TxRunner
	Vendors     VendorStore
	Plans       PlanCatalog
	Recharges   RechargeStore
	Invites     InviteStore
	Ledger      LedgerStore
	Withdrawals WithdrawalStore
	Audit       AuditLog
}

// Options carries the collaborators a service needs besides its stores.
// Zero values are replaced with working defaults.
type Options struct {
	Clock      clock.Clock
	Logger     *zap.Logger
	Locker     Locker
	Notifier   Enqueuer
	Events     EventPublisher
	AdminEmail string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Locker == nil {
		o.Locker = NewLocalLocker()
	}
	if o.Notifier == nil {
		o.Notifier = nopEnqueuer{}
	}
	if o.Events == nil {
		o.Events = nopPublisher{}
	}
	return o
}

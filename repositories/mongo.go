package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names
const (
	VendorsCollection            = "vendors"
	MembershipPlansCollection    = "membership_plans"
	RechargesCollection          = "recharges"
	ReferralInvitesCollection    = "referral_invites"
	WalletTransactionsCollection = "wallet_transactions"
	WithdrawalsCollection        = "withdrawals"
	CronJobLogsCollection        = "cron_job_logs"
)

const opTimeout = 10 * time.Second

// withTimeout bounds a single database call. Session values on ctx are preserved,
// so calls made inside a transaction stay in it.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// translate maps driver errors onto the error kinds the services match on.
func translate(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.NotFoundf("%s", what)
	case mongo.IsDuplicateKeyError(err):
		return errors.AlreadyExistsf("%s", what)
	default:
		return errors.Annotate(err, what)
	}
}

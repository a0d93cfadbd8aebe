package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/repositories/memory"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var epoch = time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	messages []Message
}

func (e *recordingEnqueuer) Enqueue(msg Message) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
	return true
}

func (e *recordingEnqueuer) all() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.messages...)
}

type fixture struct {
	store    *memory.Store
	clock    *testclock.Clock
	stores   Stores
	opts     Options
	events   *recordingPublisher
	notifier *recordingEnqueuer
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	clk := testclock.NewClock(epoch)
	events := &recordingPublisher{}
	notifier := &recordingEnqueuer{}
	return &fixture{
		store: store,
		clock: clk,
		stores: Stores{
			Tx:          store,
			Vendors:     store.Vendors(),
			Plans:       store.Plans(),
			Recharges:   store.Recharges(),
			Invites:     store.Invites(),
			Ledger:      store.Ledger(),
			Withdrawals: store.Withdrawals(),
			Audit:       store.CronLogs(),
		},
		opts: Options{
			Clock:      clk,
			Locker:     NewLocalLocker(),
			Notifier:   notifier,
			Events:     events,
			AdminEmail: "admin@example.com",
		},
		events:   events,
		notifier: notifier,
	}
}

// vendor stores a vendor created one minute after the previous one.
func (f *fixture) vendor(t *testing.T, name string, mutate func(v *models.Vendor)) models.Vendor {
	t.Helper()
	f.seq++
	v := models.Vendor{
		ID:           primitive.NewObjectID(),
		FullName:     name,
		Email:        fmt.Sprintf("vendor%d@example.com", f.seq),
		Phone:        fmt.Sprintf("07%08d", f.seq),
		ReferralCode: fmt.Sprintf("VEN-T%05d", f.seq),
		CreatedAt:    epoch.Add(time.Duration(f.seq) * time.Minute),
	}
	if mutate != nil {
		mutate(&v)
	}
	require.NoError(t, f.store.Vendors().Create(context.Background(), &v))
	return v
}

func (f *fixture) plan(t *testing.T, price float64, validity int, unit string, level int) models.MembershipPlan {
	t.Helper()
	p := models.MembershipPlan{
		ID:       primitive.NewObjectID(),
		Name:     fmt.Sprintf("Plan %d %s", validity, unit),
		Price:    price,
		Validity: validity,
		Unit:     unit,
		Level:    level,
		IsActive: true,
	}
	require.NoError(t, f.store.Plans().Create(context.Background(), &p))
	return p
}

// recharge stores a pending recharge directly, bypassing CreateRecharge.
func (f *fixture) recharge(t *testing.T, vendorID, planID primitive.ObjectID, amount float64, endDate time.Time) models.Recharge {
	t.Helper()
	r := models.Recharge{
		ID:        primitive.NewObjectID(),
		VendorID:  vendorID,
		PlanID:    planID,
		Amount:    amount,
		TrnNo:     "TRN-" + primitive.NewObjectID().Hex(),
		EndDate:   endDate,
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.store.Recharges().Create(context.Background(), &r))
	return r
}

func (f *fixture) get(t *testing.T, id primitive.ObjectID) models.Vendor {
	t.Helper()
	v, err := f.store.Vendors().FindByID(context.Background(), id)
	require.NoError(t, err)
	return *v
}

func (f *fixture) wallet(t *testing.T, id primitive.ObjectID) float64 {
	t.Helper()
	return f.get(t, id).Wallet
}

func withParent(parent primitive.ObjectID) func(v *models.Vendor) {
	return func(v *models.Vendor) {
		v.ParentReferralID = &parent
		v.PlanStatus = true
	}
}

func active(v *models.Vendor) { v.PlanStatus = true }

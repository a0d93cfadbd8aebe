// Package memory is an in-process implementation of the service stores. Transactions
// are serialized and roll back every collection when the callback fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type state struct {
	vendors     map[primitive.ObjectID]models.Vendor
	plans       map[primitive.ObjectID]models.MembershipPlan
	recharges   map[primitive.ObjectID]models.Recharge
	invites     []models.ReferralInvite
	ledger      []models.WalletTransaction
	withdrawals map[primitive.ObjectID]models.Withdrawal
	cronLogs    []models.CronJobLog
}

// Store holds every collection in memory.
type Store struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	data     state
	failures map[string]error
}

func New() *Store {
	return &Store{
		data: state{
			vendors:     make(map[primitive.ObjectID]models.Vendor),
			plans:       make(map[primitive.ObjectID]models.MembershipPlan),
			recharges:   make(map[primitive.ObjectID]models.Recharge),
			withdrawals: make(map[primitive.ObjectID]models.Withdrawal),
		},
		failures: make(map[string]error),
	}
}

// FailOn makes every later call of op return err until ClearFailures is called.
// Op names are "<collection>.<method>", e.g. "ledger.append".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// failure must be called with s.mu held.
func (s *Store) failure(op string) error {
	return s.failures[op]
}

// WithTransaction implements services.TxRunner.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (d state) clone() state {
	out := state{
		vendors:     make(map[primitive.ObjectID]models.Vendor, len(d.vendors)),
		plans:       make(map[primitive.ObjectID]models.MembershipPlan, len(d.plans)),
		recharges:   make(map[primitive.ObjectID]models.Recharge, len(d.recharges)),
		invites:     append([]models.ReferralInvite(nil), d.invites...),
		ledger:      append([]models.WalletTransaction(nil), d.ledger...),
		withdrawals: make(map[primitive.ObjectID]models.Withdrawal, len(d.withdrawals)),
		cronLogs:    append([]models.CronJobLog(nil), d.cronLogs...),
	}
	for k, v := range d.vendors {
		out.vendors[k] = cloneVendor(v)
	}
	for k, v := range d.plans {
		out.plans[k] = v
	}
	for k, v := range d.recharges {
		out.recharges[k] = cloneRecharge(v)
	}
	for k, v := range d.withdrawals {
		out.withdrawals[k] = v
	}
	return out
}

func cloneVendor(v models.Vendor) models.Vendor {
	v.ChildReferralIDs = append([]primitive.ObjectID{}, v.ChildReferralIDs...)
	if v.ParentReferralID != nil {
		id := *v.ParentReferralID
		v.ParentReferralID = &id
	}
	if v.CurrentPlanID != nil {
		id := *v.CurrentPlanID
		v.CurrentPlanID = &id
	}
	return v
}

func cloneRecharge(r models.Recharge) models.Recharge {
	if r.Settlement != nil {
		s := *r.Settlement
		s.Ancestors = append([]models.Credit{}, s.Ancestors...)
		if s.Referrer != nil {
			c := *s.Referrer
			s.Referrer = &c
		}
		r.Settlement = &s
	}
	return r
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// Vendors returns the vendor collection.
func (s *Store) Vendors() *Vendors { return &Vendors{s: s} }

// Plans returns the membership plan collection.
func (s *Store) Plans() *Plans { return &Plans{s: s} }

// Recharges returns the recharge collection.
func (s *Store) Recharges() *Recharges { return &Recharges{s: s} }

// Invites returns the referral invite collection.
func (s *Store) Invites() *Invites { return &Invites{s: s} }

// Ledger returns the wallet transaction log.
func (s *Store) Ledger() *Ledger { return &Ledger{s: s} }

// Withdrawals returns the withdrawal collection.
func (s *Store) Withdrawals() *Withdrawals { return &Withdrawals{s: s} }

// CronLogs returns the job audit log.
func (s *Store) CronLogs() *CronLogs { return &CronLogs{s: s} }

type Vendors struct{ s *Store }

func (v *Vendors) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.failure("vendors.findByID"); err != nil {
		return nil, err
	}
	vendor, ok := v.s.data.vendors[id]
	if !ok {
		return nil, errors.NotFoundf("vendor %s", id.Hex())
	}
	out := cloneVendor(vendor)
	return &out, nil
}

func (v *Vendors) FindByReferralCode(ctx context.Context, code string) (*models.Vendor, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, vendor := range v.s.data.vendors {
		if vendor.ReferralCode == code {
			out := cloneVendor(vendor)
			return &out, nil
		}
	}
	return nil, errors.NotFoundf("vendor with referral code %q", code)
}

func (v *Vendors) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Vendor, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := make([]models.Vendor, 0, len(ids))
	for _, id := range ids {
		if vendor, ok := v.s.data.vendors[id]; ok {
			out = append(out, cloneVendor(vendor))
		}
	}
	return out, nil
}

func (v *Vendors) Create(ctx context.Context, vendor *models.Vendor) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.failure("vendors.create"); err != nil {
		return err
	}
	for _, existing := range v.s.data.vendors {
		if existing.Email == vendor.Email || existing.Phone == vendor.Phone ||
			(vendor.ReferralCode != "" && existing.ReferralCode == vendor.ReferralCode) {
			return errors.AlreadyExistsf("vendor %s", vendor.Email)
		}
	}
	if vendor.ID.IsZero() {
		vendor.ID = primitive.NewObjectID()
	}
	if vendor.ChildReferralIDs == nil {
		vendor.ChildReferralIDs = []primitive.ObjectID{}
	}
	v.s.data.vendors[vendor.ID] = cloneVendor(*vendor)
	return nil
}

func (v *Vendors) FindAncestors(ctx context.Context, id primitive.ObjectID) ([]models.Vendor, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.failure("vendors.findAncestors"); err != nil {
		return nil, err
	}
	var out []models.Vendor
	for _, vendor := range v.s.data.vendors {
		if vendor.HasChild(id) {
			out = append(out, cloneVendor(vendor))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

// update applies fn to a stored vendor under the lock.
func (v *Vendors) update(op string, id primitive.ObjectID, fn func(vendor *models.Vendor) error) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.failure(op); err != nil {
		return err
	}
	vendor, ok := v.s.data.vendors[id]
	if !ok {
		return errors.NotFoundf("vendor %s", id.Hex())
	}
	if err := fn(&vendor); err != nil {
		return err
	}
	v.s.data.vendors[id] = vendor
	return nil
}

func (v *Vendors) ActivatePlan(ctx context.Context, id, planID primitive.ObjectID, at time.Time) (*models.Vendor, error) {
	var out models.Vendor
	err := v.update("vendors.activatePlan", id, func(vendor *models.Vendor) error {
		vendor.PlanStatus = true
		vendor.CurrentPlanID = &planID
		vendor.RechargeCount++
		vendor.UpdatedAt = at
		out = cloneVendor(*vendor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *Vendors) MarkSettled(ctx context.Context, id primitive.ObjectID, level *int, at time.Time) error {
	return v.update("vendors.markSettled", id, func(vendor *models.Vendor) error {
		vendor.PlanStatus = true
		if level != nil {
			vendor.HigherLevel = *level
		}
		vendor.UpdatedAt = at
		return nil
	})
}

func (v *Vendors) SetPlanStatus(ctx context.Context, id primitive.ObjectID, active bool, at time.Time) error {
	return v.update("vendors.setPlanStatus", id, func(vendor *models.Vendor) error {
		vendor.PlanStatus = active
		vendor.UpdatedAt = at
		return nil
	})
}

func (v *Vendors) CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	return v.update("vendors.creditWallet", id, func(vendor *models.Vendor) error {
		if amount <= 0 {
			return errors.NotValidf("credit amount %v", amount)
		}
		vendor.Wallet += amount
		vendor.UpdatedAt = at
		return nil
	})
}

func (v *Vendors) DebitWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	return v.update("vendors.debitWallet", id, func(vendor *models.Vendor) error {
		if amount <= 0 || vendor.Wallet < amount {
			return errors.NotValidf("debit of %v from balance %v", amount, vendor.Wallet)
		}
		vendor.Wallet -= amount
		vendor.UpdatedAt = at
		return nil
	})
}

func (v *Vendors) SetParentReferral(ctx context.Context, childID, parentID primitive.ObjectID, at time.Time) error {
	return v.update("vendors.setParentReferral", childID, func(vendor *models.Vendor) error {
		if vendor.ParentReferralID != nil {
			return errors.AlreadyExistsf("parent referral of vendor %s", childID.Hex())
		}
		vendor.ParentReferralID = &parentID
		vendor.UpdatedAt = at
		return nil
	})
}

func (v *Vendors) AppendChildReferral(ctx context.Context, vendorIDs []primitive.ObjectID, childID primitive.ObjectID, at time.Time) error {
	for _, id := range vendorIDs {
		err := v.update("vendors.appendChildReferral", id, func(vendor *models.Vendor) error {
			if !vendor.HasChild(childID) {
				vendor.ChildReferralIDs = append(vendor.ChildReferralIDs, childID)
			}
			vendor.UpdatedAt = at
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type Plans struct{ s *Store }

func (p *Plans) Create(ctx context.Context, plan *models.MembershipPlan) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if plan.ID.IsZero() {
		plan.ID = primitive.NewObjectID()
	}
	p.s.data.plans[plan.ID] = *plan
	return nil
}

func (p *Plans) FindByID(ctx context.Context, id primitive.ObjectID) (*models.MembershipPlan, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	plan, ok := p.s.data.plans[id]
	if !ok {
		return nil, errors.NotFoundf("membership plan %s", id.Hex())
	}
	return &plan, nil
}

type Recharges struct{ s *Store }

func (r *Recharges) Create(ctx context.Context, recharge *models.Recharge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("recharges.create"); err != nil {
		return err
	}
	if recharge.ID.IsZero() {
		recharge.ID = primitive.NewObjectID()
	}
	r.s.data.recharges[recharge.ID] = cloneRecharge(*recharge)
	return nil
}

func (r *Recharges) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Recharge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recharge, ok := r.s.data.recharges[id]
	if !ok {
		return nil, errors.NotFoundf("recharge %s", id.Hex())
	}
	out := cloneRecharge(recharge)
	return &out, nil
}

func (r *Recharges) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Recharge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Recharge
	for _, recharge := range r.s.data.recharges {
		if recharge.VendorID == vendorID {
			out = append(out, cloneRecharge(recharge))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// pending applies fn to a recharge that is neither approved nor cancelled.
func (r *Recharges) pending(op string, id primitive.ObjectID, fn func(recharge *models.Recharge)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(op); err != nil {
		return err
	}
	recharge, ok := r.s.data.recharges[id]
	if !ok || recharge.PaymentApproved || recharge.IsCancelPayment {
		return errors.NotFoundf("pending recharge %s", id.Hex())
	}
	fn(&recharge)
	r.s.data.recharges[id] = recharge
	return nil
}

func (r *Recharges) MarkApproved(ctx context.Context, id primitive.ObjectID, settlement models.Settlement, at time.Time) error {
	return r.pending("recharges.markApproved", id, func(recharge *models.Recharge) {
		recharge.PaymentApproved = true
		recharge.ApprovedAt = timePtr(at)
		recharge.Settlement = &settlement
		recharge.UpdatedAt = at
	})
}

func (r *Recharges) MarkCancelled(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) error {
	return r.pending("recharges.markCancelled", id, func(recharge *models.Recharge) {
		recharge.IsCancelPayment = true
		recharge.CancelReason = reason
		recharge.CancelledAt = timePtr(at)
		recharge.UpdatedAt = at
	})
}

func (r *Recharges) FindExpired(ctx context.Context, now time.Time) ([]models.Recharge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("recharges.findExpired"); err != nil {
		return nil, err
	}
	var out []models.Recharge
	for _, recharge := range r.s.data.recharges {
		if recharge.EndDate.Before(now) {
			out = append(out, cloneRecharge(recharge))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (r *Recharges) MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("recharges.markExpired"); err != nil {
		return err
	}
	recharge, ok := r.s.data.recharges[id]
	if !ok {
		return errors.NotFoundf("recharge %s", id.Hex())
	}
	recharge.ExpiredAt = timePtr(at)
	r.s.data.recharges[id] = recharge
	return nil
}

func (r *Recharges) HasActive(ctx context.Context, vendorID, exclude primitive.ObjectID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, recharge := range r.s.data.recharges {
		if id == exclude || recharge.VendorID != vendorID || recharge.IsCancelPayment {
			continue
		}
		if !recharge.EndDate.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

type Invites struct{ s *Store }

func (i *Invites) Create(ctx context.Context, invite *models.ReferralInvite) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if invite.ID.IsZero() {
		invite.ID = primitive.NewObjectID()
	}
	i.s.data.invites = append(i.s.data.invites, *invite)
	return nil
}

func (i *Invites) FindActiveByPhone(ctx context.Context, phone string) (*models.ReferralInvite, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	for _, invite := range i.s.data.invites {
		if invite.Phone == phone && invite.Status == models.InviteStatusActive {
			out := invite
			return &out, nil
		}
	}
	return nil, errors.NotFoundf("active invite for %s", phone)
}

func (i *Invites) MarkConverted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	for idx, invite := range i.s.data.invites {
		if invite.ID == id && invite.Status == models.InviteStatusActive {
			i.s.data.invites[idx].Status = models.InviteStatusConverted
			i.s.data.invites[idx].ConvertedAt = timePtr(at)
			return nil
		}
	}
	return errors.NotFoundf("active invite %s", id.Hex())
}

// All returns a copy of every stored invite.
func (i *Invites) All() []models.ReferralInvite {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	return append([]models.ReferralInvite(nil), i.s.data.invites...)
}

type Ledger struct{ s *Store }

func (l *Ledger) Append(ctx context.Context, entry *models.WalletTransaction) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if err := l.s.failure("ledger.append"); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	l.s.data.ledger = append(l.s.data.ledger, *entry)
	return nil
}

func (l *Ledger) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.WalletTransaction, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var out []models.WalletTransaction
	for _, entry := range l.s.data.ledger {
		if entry.VendorID == vendorID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Len returns the number of ledger lines.
func (l *Ledger) Len() int {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return len(l.s.data.ledger)
}

type Withdrawals struct{ s *Store }

func (w *Withdrawals) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if err := w.s.failure("withdrawals.create"); err != nil {
		return err
	}
	if withdrawal.ID.IsZero() {
		withdrawal.ID = primitive.NewObjectID()
	}
	w.s.data.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (w *Withdrawals) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	withdrawal, ok := w.s.data.withdrawals[id]
	if !ok {
		return nil, errors.NotFoundf("withdrawal %s", id.Hex())
	}
	return &withdrawal, nil
}

func (w *Withdrawals) Resolve(ctx context.Context, id primitive.ObjectID, status string, adminID *primitive.ObjectID, note string, at time.Time) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if err := w.s.failure("withdrawals.resolve"); err != nil {
		return err
	}
	withdrawal, ok := w.s.data.withdrawals[id]
	if !ok || withdrawal.Status != models.WithdrawalStatusPending {
		return errors.NotFoundf("pending withdrawal %s", id.Hex())
	}
	withdrawal.Status = status
	withdrawal.AdminID = adminID
	withdrawal.ProcessedAt = timePtr(at)
	if status == models.WithdrawalStatusRejected {
		withdrawal.RejectionReason = note
	} else {
		withdrawal.AdminNote = note
	}
	w.s.data.withdrawals[id] = withdrawal
	return nil
}

type CronLogs struct{ s *Store }

func (c *CronLogs) Append(ctx context.Context, entry *models.CronJobLog) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failure("cronLogs.append"); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	c.s.data.cronLogs = append(c.s.data.cronLogs, *entry)
	return nil
}

func (c *CronLogs) ListRecent(ctx context.Context, jobName string, limit int64) ([]models.CronJobLog, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []models.CronJobLog
	for i := len(c.s.data.cronLogs) - 1; i >= 0; i-- {
		entry := c.s.data.cronLogs[i]
		if jobName != "" && entry.JobName != jobName {
			continue
		}
		out = append(out, entry)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/utils"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const referralCodeAttempts = 5

// ReferralService maintains the vendor referral graph.
type ReferralService struct {
	stores Stores
	opts   Options
}

func NewReferralService(stores Stores, opts Options) *ReferralService {
	return &ReferralService{stores: stores, opts: opts.withDefaults()}
}

// RegisterVendor creates a vendor with a fresh referral code and, when referralCode
// is set, links it under the vendor owning that code.
func (s *ReferralService) RegisterVendor(ctx context.Context, req models.RegisterVendorRequest) (*models.Vendor, error) {
	name := utils.SanitizeName(req.FullName)
	if name == "" {
		return nil, invalidInput("full name is required")
	}
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var parent *models.Vendor
	if code := utils.NormalizeReferralCode(req.ReferralCode); code != "" {
		parent, err = s.stores.Vendors.FindByReferralCode(ctx, code)
		if errors.Is(err, errors.NotFound) {
			return nil, ErrReferralCodeUnknown
		}
		if err != nil {
			return nil, errors.Annotate(err, "resolving referral code")
		}
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Clock.Now().UTC()
	vendor := &models.Vendor{
		FullName:         name,
		Email:            email,
		Phone:            phone,
		ReferralCode:     code,
		FCMToken:         strings.TrimSpace(req.FCMToken),
		ChildReferralIDs: []primitive.ObjectID{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		vendor.ID = primitive.NilObjectID
		if err := s.stores.Vendors.Create(ctx, vendor); err != nil {
			if errors.Is(err, errors.AlreadyExists) {
				return ErrDuplicateVendor
			}
			return errors.Annotate(err, "inserting vendor")
		}
		if parent == nil {
			return nil
		}
		return s.link(ctx, vendor.ID, parent.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("Vendor registered",
		zap.String("vendor_id", vendor.ID.Hex()),
		zap.String("referral_code", vendor.ReferralCode),
		zap.Bool("referred", parent != nil),
	)
	if parent != nil {
		return s.stores.Vendors.FindByID(ctx, vendor.ID)
	}
	return vendor, nil
}

func (s *ReferralService) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := utils.GenerateVendorReferralCode()
		if err != nil {
			return "", errors.Annotate(err, "generating referral code")
		}
		_, err = s.stores.Vendors.FindByReferralCode(ctx, code)
		if errors.Is(err, errors.NotFound) {
			return code, nil
		}
		if err != nil {
			return "", errors.Annotate(err, "checking referral code")
		}
	}
	return "", errors.Errorf("no free referral code after %d attempts", referralCodeAttempts)
}

// LinkReferral records parentID as the direct referrer of childID.
func (s *ReferralService) LinkReferral(ctx context.Context, childID, parentID primitive.ObjectID) (*models.Vendor, error) {
	now := s.opts.Clock.Now().UTC()
	err := s.stores.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.link(ctx, childID, parentID, now)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("Referral linked",
		zap.String("child_id", childID.Hex()),
		zap.String("parent_id", parentID.Hex()),
	)
	return s.stores.Vendors.FindByID(ctx, childID)
}

// link must run inside a transaction. The child and all of its descendants are
// appended to the descendant lists of the parent and of every ancestor of the parent.
func (s *ReferralService) link(ctx context.Context, childID, parentID primitive.ObjectID, now time.Time) error {
	if childID == parentID {
		return ErrReferralCycle
	}
	child, err := s.loadVendor(ctx, childID)
	if err != nil {
		return err
	}
	parent, err := s.loadVendor(ctx, parentID)
	if err != nil {
		return err
	}
	if child.ParentReferralID != nil {
		return ErrAlreadyReferred
	}
	if child.HasChild(parent.ID) {
		return ErrReferralCycle
	}
	if err := s.checkParentChain(ctx, parent, child.ID); err != nil {
		return err
	}

	ancestors, err := s.stores.Vendors.FindAncestors(ctx, parent.ID)
	if err != nil {
		return errors.Annotate(err, "loading ancestors")
	}
	targets := []primitive.ObjectID{parent.ID}
	for _, a := range ancestors {
		if a.ID == child.ID {
			return ErrReferralCycle
		}
		targets = append(targets, a.ID)
	}

	if err := s.stores.Vendors.SetParentReferral(ctx, child.ID, parent.ID, now); err != nil {
		if errors.Is(err, errors.AlreadyExists) {
			return ErrAlreadyReferred
		}
		return errors.Annotate(err, "setting parent referral")
	}
	moved := append([]primitive.ObjectID{child.ID}, child.ChildReferralIDs...)
	for _, id := range moved {
		if err := s.stores.Vendors.AppendChildReferral(ctx, targets, id, now); err != nil {
			return errors.Annotate(err, "appending child referral")
		}
	}
	return nil
}

// checkParentChain walks parent links upward from start and fails if it meets childID.
func (s *ReferralService) checkParentChain(ctx context.Context, start *models.Vendor, childID primitive.ObjectID) error {
	seen := map[primitive.ObjectID]bool{start.ID: true}
	current := start
	for current.ParentReferralID != nil {
		next := *current.ParentReferralID
		if next == childID {
			return ErrReferralCycle
		}
		if seen[next] {
			s.opts.Logger.Warn("Existing referral cycle detected", zap.String("vendor_id", next.Hex()))
			return ErrReferralCycle
		}
		seen[next] = true

		v, err := s.stores.Vendors.FindByID(ctx, next)
		if errors.Is(err, errors.NotFound) {
			return nil
		}
		if err != nil {
			return errors.Annotate(err, "walking referral chain")
		}
		current = v
	}
	return nil
}

func (s *ReferralService) loadVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	v, err := s.stores.Vendors.FindByID(ctx, id)
	if errors.Is(err, errors.NotFound) {
		return nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, errors.Annotatef(err, "loading vendor %s", id.Hex())
	}
	return v, nil
}

// CreateInvite records that referrerID invited phone. An existing active invite for
// the same phone is returned unchanged.
func (s *ReferralService) CreateInvite(ctx context.Context, referrerID primitive.ObjectID, phone string) (*models.ReferralInvite, error) {
	phone, err := utils.SanitizePhone(phone)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	if _, err := s.loadVendor(ctx, referrerID); err != nil {
		return nil, err
	}

	existing, err := s.stores.Invites.FindActiveByPhone(ctx, phone)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, errors.NotFound):
		return nil, errors.Annotate(err, "loading referral invite")
	}

	invite := &models.ReferralInvite{
		ReferrerID: referrerID,
		Phone:      phone,
		Status:     models.InviteStatusActive,
		CreatedAt:  s.opts.Clock.Now().UTC(),
	}
	if err := s.stores.Invites.Create(ctx, invite); err != nil {
		return nil, errors.Annotate(err, "inserting referral invite")
	}
	return invite, nil
}

// GetReferralTree returns the vendor, its direct parent and its descendants.
func (s *ReferralService) GetReferralTree(ctx context.Context, id primitive.ObjectID) (*models.ReferralTree, error) {
	vendor, err := s.loadVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	tree := &models.ReferralTree{Vendor: *vendor, Descendants: []models.Vendor{}}

	if vendor.ParentReferralID != nil {
		parent, err := s.stores.Vendors.FindByID(ctx, *vendor.ParentReferralID)
		switch {
		case err == nil:
			tree.Parent = parent
		case !errors.Is(err, errors.NotFound):
			return nil, errors.Annotate(err, "loading parent")
		}
	}

	if len(vendor.ChildReferralIDs) > 0 {
		descendants, err := s.stores.Vendors.FindByIDs(ctx, vendor.ChildReferralIDs)
		if err != nil {
			return nil, errors.Annotate(err, "loading descendants")
		}
		tree.Descendants = descendants
	}
	return tree, nil
}

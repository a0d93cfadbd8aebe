package services

import (
	"context"
	"testing"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func register(t *testing.T, svc *ReferralService, name, email, phone, code string) *models.Vendor {
	t.Helper()
	v, err := svc.RegisterVendor(context.Background(), models.RegisterVendorRequest{
		FullName:     name,
		Email:        email,
		Phone:        phone,
		ReferralCode: code,
	})
	require.NoError(t, err)
	return v
}

func TestRegisterVendor_WithReferralCode(t *testing.T) {
	f := newFixture(t)
	svc := NewReferralService(f.stores, f.opts)

	root := register(t, svc, " Root  Vendor ", "ROOT@example.com", "0700000001", "")
	require.Equal(t, "Root Vendor", root.FullName)
	require.Equal(t, "root@example.com", root.Email)
	require.Regexp(t, `^VEN-[A-Z2-7]{6}$`, root.ReferralCode)
	require.Nil(t, root.ParentReferralID)

	mid := register(t, svc, "Mid", "mid@example.com", "0700000002", root.ReferralCode)
	leaf := register(t, svc, "Leaf", "leaf@example.com", "070-000-0003", " "+mid.ReferralCode+" ")

	require.Equal(t, root.ID, *mid.ParentReferralID)
	require.Equal(t, mid.ID, *leaf.ParentReferralID)
	require.Equal(t, "0700000003", leaf.Phone)

	require.Equal(t, []primitive.ObjectID{mid.ID, leaf.ID}, f.get(t, root.ID).ChildReferralIDs)
	require.Equal(t, []primitive.ObjectID{leaf.ID}, f.get(t, mid.ID).ChildReferralIDs)
}

func TestRegisterVendor_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)
	register(t, svc, "Existing", "taken@example.com", "0700000001", "")

	for name, req := range map[string]models.RegisterVendorRequest{
		"bad email": {FullName: "A", Email: "nope", Phone: "0700000009"},
		"bad phone": {FullName: "A", Email: "a@example.com", Phone: "12345"},
		"no name":   {FullName: "  ", Email: "a@example.com", Phone: "0700000009"},
	} {
		_, err := svc.RegisterVendor(ctx, req)
		require.ErrorIs(t, err, ErrInvalidInput, name)
	}

	_, err := svc.RegisterVendor(ctx, models.RegisterVendorRequest{
		FullName: "Dup", Email: "taken@example.com", Phone: "0700000002",
	})
	require.ErrorIs(t, err, ErrDuplicateVendor)

	_, err = svc.RegisterVendor(ctx, models.RegisterVendorRequest{
		FullName: "New", Email: "new@example.com", Phone: "0700000003", ReferralCode: "VEN-ZZZZZZ",
	})
	require.ErrorIs(t, err, ErrReferralCodeUnknown)
}

func TestLinkReferral_PropagatesDescendants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)

	a := f.vendor(t, "A", nil)
	b := f.vendor(t, "B", nil)
	c := f.vendor(t, "C", nil)
	d := f.vendor(t, "D", nil)

	_, err := svc.LinkReferral(ctx, b.ID, a.ID)
	require.NoError(t, err)
	// D joins C's subtree before C is attached under B
	_, err = svc.LinkReferral(ctx, d.ID, c.ID)
	require.NoError(t, err)
	_, err = svc.LinkReferral(ctx, c.ID, b.ID)
	require.NoError(t, err)

	require.ElementsMatch(t, []primitive.ObjectID{b.ID, c.ID, d.ID}, f.get(t, a.ID).ChildReferralIDs)
	require.ElementsMatch(t, []primitive.ObjectID{c.ID, d.ID}, f.get(t, b.ID).ChildReferralIDs)

	ancestors, err := f.store.Vendors().FindAncestors(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 3)
}

func TestLinkReferral_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)

	a := f.vendor(t, "A", nil)
	b := f.vendor(t, "B", nil)
	c := f.vendor(t, "C", nil)
	_, err := svc.LinkReferral(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.LinkReferral(ctx, c.ID, b.ID)
	require.NoError(t, err)

	_, err = svc.LinkReferral(ctx, a.ID, a.ID)
	require.ErrorIs(t, err, ErrReferralCycle)

	_, err = svc.LinkReferral(ctx, a.ID, c.ID)
	require.ErrorIs(t, err, ErrReferralCycle)

	_, err = svc.LinkReferral(ctx, c.ID, a.ID)
	require.ErrorIs(t, err, ErrAlreadyReferred)

	_, err = svc.LinkReferral(ctx, primitive.NewObjectID(), a.ID)
	require.ErrorIs(t, err, ErrVendorNotFound)

	require.Nil(t, f.get(t, a.ID).ParentReferralID)
	require.False(t, f.get(t, c.ID).HasChild(a.ID))
}

func TestLinkReferral_RejectsCycleThroughParentChainOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)

	// a parent link without the matching descendant entries
	child := f.vendor(t, "Child", nil)
	parent := f.vendor(t, "Parent", withParent(child.ID))

	_, err := svc.LinkReferral(ctx, child.ID, parent.ID)
	require.ErrorIs(t, err, ErrReferralCycle)
}

func TestCreateInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)
	referrer := f.vendor(t, "R", nil)

	invite, err := svc.CreateInvite(ctx, referrer.ID, "070 111 2222")
	require.NoError(t, err)
	require.Equal(t, "0701112222", invite.Phone)
	require.Equal(t, models.InviteStatusActive, invite.Status)

	again, err := svc.CreateInvite(ctx, referrer.ID, "0701112222")
	require.NoError(t, err)
	require.Equal(t, invite.ID, again.ID)
	require.Len(t, f.store.Invites().All(), 1)

	_, err = svc.CreateInvite(ctx, referrer.ID, "123")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateInvite(ctx, primitive.NewObjectID(), "0701112223")
	require.ErrorIs(t, err, ErrVendorNotFound)
}

func TestGetReferralTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReferralService(f.stores, f.opts)
	chain := referralChain(t, f, "A", "B", "C")

	tree, err := svc.GetReferralTree(ctx, chain[1].ID)
	require.NoError(t, err)
	require.Equal(t, chain[1].ID, tree.Vendor.ID)
	require.NotNil(t, tree.Parent)
	require.Equal(t, chain[0].ID, tree.Parent.ID)
	require.Len(t, tree.Descendants, 1)
	require.Equal(t, chain[2].ID, tree.Descendants[0].ID)

	root, err := svc.GetReferralTree(ctx, chain[0].ID)
	require.NoError(t, err)
	require.Nil(t, root.Parent)
	require.Len(t, root.Descendants, 2)

	_, err = svc.GetReferralTree(ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrVendorNotFound)
}

package services

import (
	"testing"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReferrerRatePercent_Boundary(t *testing.T) {
	require.Equal(t, int64(7), ReferrerRatePercent(0))
	require.Equal(t, int64(7), ReferrerRatePercent(1))
	require.Equal(t, int64(2), ReferrerRatePercent(2))
	require.Equal(t, int64(2), ReferrerRatePercent(10))
}

func TestCommissionAmount(t *testing.T) {
	require.Equal(t, 70.0, CommissionAmount(1000, 7))
	require.Equal(t, 20.0, CommissionAmount(1000, 2))
	require.Equal(t, 0.7, CommissionAmount(9.99, 7))
	require.Equal(t, 3.5, CommissionAmount(49.99, 7))
}

func vendorsWithStatus(statuses ...bool) []models.Vendor {
	out := make([]models.Vendor, len(statuses))
	for i, s := range statuses {
		out[i] = models.Vendor{ID: primitive.NewObjectID(), PlanStatus: s}
	}
	return out
}

func TestSelectAncestors_KeepsLastFiveReversed(t *testing.T) {
	ancestors := vendorsWithStatus(true, true, true, true, true, true, true)
	owner := primitive.NewObjectID()

	got := SelectAncestors(ancestors, owner, nil)

	require.Len(t, got, 5)
	require.Equal(t, ancestors[6].ID, got[0].ID)
	require.Equal(t, ancestors[2].ID, got[4].ID)
}

func TestSelectAncestors_FiltersInactiveAfterSlicing(t *testing.T) {
	// the inactive entries sit inside the last five, so only three are paid
	ancestors := vendorsWithStatus(true, true, true, false, true, false, true)

	got := SelectAncestors(ancestors, primitive.NewObjectID(), nil)

	require.Len(t, got, 3)
	ids := []primitive.ObjectID{got[0].ID, got[1].ID, got[2].ID}
	require.Equal(t, []primitive.ObjectID{ancestors[6].ID, ancestors[4].ID, ancestors[2].ID}, ids)
}

func TestSelectAncestors_ExcludesDirectReferrerAndOwner(t *testing.T) {
	ancestors := vendorsWithStatus(true, true, true)
	owner := ancestors[0].ID
	referrer := ancestors[2].ID

	got := SelectAncestors(ancestors, owner, &referrer)

	require.Len(t, got, 1)
	require.Equal(t, ancestors[1].ID, got[0].ID)
}

func TestSelectAncestors_Empty(t *testing.T) {
	require.Empty(t, SelectAncestors(nil, primitive.NewObjectID(), nil))
}

package services

import (
	"math"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission percentages paid on an approved recharge.
const (
	FirstRechargeRatePercent  = 7
	RepeatRechargeRatePercent = 2
	AncestorRatePercent       = 2
	MaxCommissionedAncestors  = 5
)

// ReferrerRatePercent selects the direct referrer's rate from the owner's recharge count.
// A count of one or less is the first recharge.
func ReferrerRatePercent(rechargeCount int) int64 {
	if rechargeCount <= 1 {
		return FirstRechargeRatePercent
	}
	return RepeatRechargeRatePercent
}

// CommissionAmount returns percent% of amount rounded half-up to cents.
func CommissionAmount(amount float64, percent int64) float64 {
	value := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	f, _ := value.Float64()
	return f
}

func roundCents(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

// SelectAncestors picks the ancestors that earn a commission. ancestors must be in
// traversal order. The direct referrer and the owner are removed, the last
// MaxCommissionedAncestors entries are kept, those without an active plan are dropped
// and the result is returned in reverse order.
func SelectAncestors(ancestors []models.Vendor, owner primitive.ObjectID, directReferrer *primitive.ObjectID) []models.Vendor {
	candidates := make([]models.Vendor, 0, len(ancestors))
	seen := make(map[primitive.ObjectID]bool, len(ancestors))
	for _, a := range ancestors {
		if a.ID == owner || seen[a.ID] {
			continue
		}
		if directReferrer != nil && a.ID == *directReferrer {
			continue
		}
		seen[a.ID] = true
		candidates = append(candidates, a)
	}

	if len(candidates) > MaxCommissionedAncestors {
		candidates = candidates[len(candidates)-MaxCommissionedAncestors:]
	}

	selected := make([]models.Vendor, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].PlanStatus {
			selected = append(selected, candidates[i])
		}
	}
	return selected
}

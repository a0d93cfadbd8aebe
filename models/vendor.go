// models/vendor.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vendor is a service provider account taking part in the referral program
type Vendor struct {
	ID               primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	FullName         string               `json:"fullName" bson:"fullName"`
	Email            string               `json:"email" bson:"email"`
	Phone            string               `json:"phone" bson:"phone"`
	ReferralCode     string               `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	FCMToken         string               `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	Wallet           float64              `json:"wallet" bson:"wallet"`
	RechargeCount    int                  `json:"rechargeCount" bson:"rechargeCount"`
	PlanStatus       bool                 `json:"planStatus" bson:"planStatus"`
	CurrentPlanID    *primitive.ObjectID  `json:"currentPlanId,omitempty" bson:"currentPlanId,omitempty"`
	HigherLevel      int                  `json:"higherLevel" bson:"higherLevel"`
	ParentReferralID *primitive.ObjectID  `json:"parentReferralId,omitempty" bson:"parentReferralId,omitempty"`
	ChildReferralIDs []primitive.ObjectID `json:"childReferralIds" bson:"childReferralIds"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// HasChild reports whether id appears in the vendor's descendant list
func (v Vendor) HasChild(id primitive.ObjectID) bool {
	for _, child := range v.ChildReferralIDs {
		if child == id {
			return true
		}
	}
	return false
}

// RegisterVendorRequest is the body of POST /api/vendors
type RegisterVendorRequest struct {
	FullName     string `json:"fullName" validate:"required,min=2,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,len=10,numeric"`
	ReferralCode string `json:"referralCode,omitempty"`
	FCMToken     string `json:"fcmToken,omitempty"`
}

// ReferralTree is the referral neighbourhood of one vendor
type ReferralTree struct {
	Vendor      Vendor   `json:"vendor"`
	Parent      *Vendor  `json:"parent,omitempty"`
	Descendants []Vendor `json:"descendants"`
}

// LinkReferralRequest is the body of POST /api/admin/referrals/link
type LinkReferralRequest struct {
	ChildID  string `json:"childId" validate:"required,len=24,hexadecimal"`
	ParentID string `json:"parentId" validate:"required,len=24,hexadecimal"`
}

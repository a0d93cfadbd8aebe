// models/recharge.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recharge states derived from the approval and cancellation flags
const (
	RechargeStatusPending   = "pending"
	RechargeStatusApproved  = "approved"
	RechargeStatusCancelled = "cancelled"
)

// Recharge is a vendor's purchase of a membership plan
type Recharge struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	VendorID        primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	PlanID          primitive.ObjectID `json:"planId" bson:"planId"`
	Amount          float64            `json:"amount" bson:"amount"`
	TrnNo           string             `json:"trnNo" bson:"trnNo"`
	EndDate         time.Time          `json:"endDate" bson:"endDate"`
	PaymentApproved bool               `json:"paymentApproved" bson:"paymentApproved"`
	ApprovedAt      *time.Time         `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	IsCancelPayment bool               `json:"isCancelPayment" bson:"isCancelPayment"`
	CancelReason    string             `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	ExpiredAt       *time.Time         `json:"expiredAt,omitempty" bson:"expiredAt,omitempty"`
	Settlement      *Settlement        `json:"settlement,omitempty" bson:"settlement,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Status returns the lifecycle state of the recharge
func (r *Recharge) Status() string {
	switch {
	case r.PaymentApproved:
		return RechargeStatusApproved
	case r.IsCancelPayment:
		return RechargeStatusCancelled
	default:
		return RechargeStatusPending
	}
}

// Credit is one commission paid out of a settlement
type Credit struct {
	VendorID    primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	Amount      float64            `json:"amount" bson:"amount"`
	RatePercent float64            `json:"ratePercent" bson:"ratePercent"`
	Type        string             `json:"type" bson:"type"`
}

// Settlement summarises the credits applied when a recharge was approved
type Settlement struct {
	Referrer  *Credit  `json:"referrer,omitempty" bson:"referrer,omitempty"`
	Ancestors []Credit `json:"ancestors" bson:"ancestors"`
	Total     float64  `json:"total" bson:"total"`
}

// CreateRechargeRequest is the body of POST /api/recharges
type CreateRechargeRequest struct {
	VendorID string `json:"vendorId" validate:"required,len=24,hexadecimal"`
	PlanID   string `json:"planId" validate:"required,len=24,hexadecimal"`
	TrnNo    string `json:"trnNo" validate:"max=64"`
}

// CancelRechargeRequest is the body of POST /api/admin/recharges/:id/cancel
type CancelRechargeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ApproveRechargeResponse is returned by a successful approval
type ApproveRechargeResponse struct {
	Recharge          Recharge `json:"recharge"`
	CreditedReferrer  *Credit  `json:"creditedReferrer,omitempty"`
	CreditedAncestors []Credit `json:"creditedAncestors"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCancelled = "cancelled"
)

type Withdrawal struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VendorID        primitive.ObjectID  `bson:"vendorId" json:"vendorId"`
	Amount          float64             `bson:"amount" json:"amount"`
	Status          string              `bson:"status" json:"status"` // pending, approved, rejected, cancelled
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	ProcessedAt     *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	AdminID         *primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	AdminNote       string              `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
	UserNote        string              `bson:"userNote,omitempty" json:"userNote,omitempty"`
	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

type WithdrawalRequest struct {
	VendorID string  `json:"vendorId" validate:"required,len=24,hexadecimal"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Note     string  `json:"note,omitempty" validate:"max=500"`
}

type WithdrawalDecisionRequest struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

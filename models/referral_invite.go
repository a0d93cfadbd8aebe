package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	InviteStatusActive    = "active"
	InviteStatusConverted = "converted"
)

// ReferralInvite records that a vendor invited a phone number to join
type ReferralInvite struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ReferrerID  primitive.ObjectID `json:"referrerId" bson:"referrerId"`
	Phone       string             `json:"phone" bson:"phone"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	ConvertedAt *time.Time         `json:"convertedAt,omitempty" bson:"convertedAt,omitempty"`
}

type CreateInviteRequest struct {
	ReferrerID string `json:"referrerId" validate:"required,len=24,hexadecimal"`
	Phone      string `json:"phone" validate:"required,len=10,numeric"`
}

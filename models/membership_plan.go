package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validity units accepted on a membership plan
const (
	ValidityUnitDay   = "day"
	ValidityUnitWeek  = "week"
	ValidityUnitMonth = "month"
	ValidityUnitYear  = "year"
)

// MembershipPlan is a purchasable vendor plan. Read-only during settlement.
type MembershipPlan struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name               string             `json:"name" bson:"name"`
	Price              float64            `json:"price" bson:"price"`
	Validity           int                `json:"validity" bson:"validity"`
	Unit               string             `json:"unit" bson:"unit"`
	CommissionCategory string             `json:"commissionCategory,omitempty" bson:"commissionCategory,omitempty"`
	Level              int                `json:"level" bson:"level"`
	IsActive           bool               `json:"isActive" bson:"isActive"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
}

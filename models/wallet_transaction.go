package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wallet ledger line types
const (
	WalletTxReferralCommission = "referral_commission"
	WalletTxAncestorCommission = "ancestor_commission"
	WalletTxWithdrawalHold     = "withdrawal_hold"
	WalletTxWithdrawalRefund   = "withdrawal_refund"
)

// WalletTransaction is an append-only record of one wallet balance change
type WalletTransaction struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	VendorID     primitive.ObjectID  `json:"vendorId" bson:"vendorId"`
	Amount       float64             `json:"amount" bson:"amount"`
	Type         string              `json:"type" bson:"type"`
	RatePercent  float64             `json:"ratePercent,omitempty" bson:"ratePercent,omitempty"`
	RechargeID   *primitive.ObjectID `json:"rechargeId,omitempty" bson:"rechargeId,omitempty"`
	WithdrawalID *primitive.ObjectID `json:"withdrawalId,omitempty" bson:"withdrawalId,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
}

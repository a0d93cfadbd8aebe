package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CronStatusSuccess = "success"
	CronStatusPartial = "partial"
	CronStatusError   = "error"
)

// CronJobLog is the audit record of one scheduled job run
type CronJobLog struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	JobName    string             `json:"jobName" bson:"jobName"`
	Status     string             `json:"status" bson:"status"`
	StartedAt  time.Time          `json:"startedAt" bson:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt" bson:"finishedAt"`
	Affected   []ExpiredPlan      `json:"affected" bson:"affected"`
	Failures   []JobFailure       `json:"failures,omitempty" bson:"failures,omitempty"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
}

// ExpiredPlan is a vendor whose plan was switched off by the expiry sweep
type ExpiredPlan struct {
	VendorID   primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	PlanID     primitive.ObjectID `json:"planId" bson:"planId"`
	RechargeID primitive.ObjectID `json:"rechargeId" bson:"rechargeId"`
}

type JobFailure struct {
	RechargeID primitive.ObjectID `json:"rechargeId" bson:"rechargeId"`
	Error      string             `json:"error" bson:"error"`
}

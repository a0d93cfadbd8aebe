package repositories

import (
	"context"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type WithdrawalRepository struct {
	collection *mongo.Collection
}

func NewWithdrawalRepository(db *mongo.Database) *WithdrawalRepository {
	return &WithdrawalRepository{collection: db.Collection(WithdrawalsCollection)}
}

func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if withdrawal.ID.IsZero() {
		withdrawal.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, withdrawal)
	return translate(err, "withdrawal for vendor %s", withdrawal.VendorID.Hex())
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var withdrawal models.Withdrawal
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&withdrawal); err != nil {
		return nil, translate(err, "withdrawal %s", id.Hex())
	}
	return &withdrawal, nil
}

// Resolve moves a pending withdrawal to status. note is stored as the rejection
// reason for rejections and as the admin note otherwise.
func (r *WithdrawalRepository) Resolve(ctx context.Context, id primitive.ObjectID, status string, adminID *primitive.ObjectID, note string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":      status,
		"processedAt": at,
	}
	if adminID != nil {
		set["adminId"] = *adminID
	}
	if note != "" {
		if status == models.WithdrawalStatusRejected {
			set["rejectionReason"] = note
		} else {
			set["adminNote"] = note
		}
	}

	filter := bson.M{"_id": id, "status": models.WithdrawalStatusPending}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return translate(err, "withdrawal %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.NotFoundf("pending withdrawal %s", id.Hex())
	}
	return nil
}

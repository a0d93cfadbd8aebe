package repositories

import (
	"context"
	"time"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// pendingFilter matches a recharge that is neither approved nor cancelled.
func pendingFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id":             id,
		"paymentApproved": false,
		"isCancelPayment": false,
	}
}

type RechargeRepository struct {
	collection *mongo.Collection
}

func NewRechargeRepository(db *mongo.Database) *RechargeRepository {
	return &RechargeRepository{collection: db.Collection(RechargesCollection)}
}

func (r *RechargeRepository) Create(ctx context.Context, recharge *models.Recharge) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if recharge.ID.IsZero() {
		recharge.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, recharge)
	return translate(err, "recharge %s", recharge.TrnNo)
}

func (r *RechargeRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Recharge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var recharge models.Recharge
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&recharge); err != nil {
		return nil, translate(err, "recharge %s", id.Hex())
	}
	return &recharge, nil
}

// ListByVendor returns the vendor's recharges, newest first.
func (r *RechargeRepository) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Recharge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"vendorId": vendorID}, opts)
}

// MarkApproved is a compare-and-swap from pending. It fails with NotFound when
// the recharge is missing or already terminal.
func (r *RechargeRepository) MarkApproved(ctx context.Context, id primitive.ObjectID, settlement models.Settlement, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"paymentApproved": true,
		"approvedAt":      at,
		"settlement":      settlement,
		"updatedAt":       at,
	}}
	return r.updateOne(ctx, pendingFilter(id), update, "pending recharge %s", id)
}

// MarkCancelled is a compare-and-swap from pending.
func (r *RechargeRepository) MarkCancelled(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"isCancelPayment": true,
		"cancelReason":    reason,
		"cancelledAt":     at,
		"updatedAt":       at,
	}}
	return r.updateOne(ctx, pendingFilter(id), update, "pending recharge %s", id)
}

// expiredFilter matches every recharge that ended before now, swept or not.
func expiredFilter(now time.Time) bson.M {
	return bson.M{"endDate": bson.M{"$lt": now}}
}

func (r *RechargeRepository) FindExpired(ctx context.Context, now time.Time) ([]models.Recharge, error) {
	filter := expiredFilter(now)
	opts := options.Find().SetSort(bson.D{{Key: "endDate", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *RechargeRepository) MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"expiredAt": at}}
	return r.updateOne(ctx, bson.M{"_id": id}, update, "recharge %s", id)
}

func (r *RechargeRepository) HasActive(ctx context.Context, vendorID, exclude primitive.ObjectID, now time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"vendorId":        vendorID,
		"_id":             bson.M{"$ne": exclude},
		"isCancelPayment": false,
		"endDate":         bson.M{"$gte": now},
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, "active recharges of vendor %s", vendorID.Hex())
	}
	return n > 0, nil
}

func (r *RechargeRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Recharge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "recharges")
	}
	defer cursor.Close(ctx)

	recharges := []models.Recharge{}
	if err := cursor.All(ctx, &recharges); err != nil {
		return nil, translate(err, "recharges")
	}
	return recharges, nil
}

func (r *RechargeRepository) updateOne(ctx context.Context, filter, update bson.M, format string, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err, format, id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.NotFoundf(format, id.Hex())
	}
	return nil
}

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

type VendorRepository struct {
	collection *mongo.Collection
}

func NewVendorRepository(db *mongo.Database) *VendorRepository {
	return &VendorRepository{
		collection: db.Collection(VendorsCollection),
	}
}

func (r *VendorRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var vendor models.Vendor
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vendor)
	if err != nil {
		return nil, translate(err, "vendor %s", id.Hex())
	}
	return &vendor, nil
}

func (r *VendorRepository) FindByReferralCode(ctx context.Context, code string) (*models.Vendor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var vendor models.Vendor
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code}).Decode(&vendor)
	if err != nil {
		return nil, translate(err, "vendor with referral code %q", code)
	}
	return &vendor, nil
}

func (r *VendorRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return []models.Vendor{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, "vendors by id")
}

func (r *VendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if vendor.ID.IsZero() {
		vendor.ID = primitive.NewObjectID()
	}
	if vendor.ChildReferralIDs == nil {
		vendor.ChildReferralIDs = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, vendor)
	return translate(err, "vendor %s", vendor.Email)
}

// FindAncestors returns the vendors listing id as a descendant, oldest first.
func (r *VendorRepository) FindAncestors(ctx context.Context, id primitive.ObjectID) ([]models.Vendor, error) {
	return r.find(ctx, bson.M{"childReferralIds": id}, "ancestors of vendor %s", id.Hex())
}

func (r *VendorRepository) find(ctx context.Context, filter bson.M, format string, args ...interface{}) ([]models.Vendor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, format, args...)
	}
	defer cursor.Close(ctx)

	vendors := []models.Vendor{}
	if err := cursor.All(ctx, &vendors); err != nil {
		return nil, translate(err, format, args...)
	}
	return vendors, nil
}

// ActivatePlan switches the plan on, records it and counts the recharge. It returns
// the updated vendor.
func (r *VendorRepository) ActivatePlan(ctx context.Context, id, planID primitive.ObjectID, at time.Time) (*models.Vendor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"planStatus":    true,
			"currentPlanId": planID,
			"updatedAt":     at,
		},
		"$inc": bson.M{"rechargeCount": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var vendor models.Vendor
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&vendor)
	if err != nil {
		return nil, translate(err, "vendor %s", id.Hex())
	}
	return &vendor, nil
}

func (r *VendorRepository) MarkSettled(ctx context.Context, id primitive.ObjectID, level *int, at time.Time) error {
	set := bson.M{
		"planStatus": true,
		"updatedAt":  at,
	}
	if level != nil {
		set["higherLevel"] = *level
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, id)
}

func (r *VendorRepository) SetPlanStatus(ctx context.Context, id primitive.ObjectID, active bool, at time.Time) error {
	update := bson.M{"$set": bson.M{"planStatus": active, "updatedAt": at}}
	return r.updateOne(ctx, bson.M{"_id": id}, update, id)
}

func (r *VendorRepository) CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	if amount <= 0 {
		return errors.NotValidf("credit amount %v", amount)
	}
	update := bson.M{
		"$inc": bson.M{"wallet": amount},
		"$set": bson.M{"updatedAt": at},
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update, id)
}

// DebitWallet only matches while the balance covers amount.
func (r *VendorRepository) DebitWallet(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	if amount <= 0 {
		return errors.NotValidf("debit amount %v", amount)
	}
	filter := bson.M{"_id": id, "wallet": bson.M{"$gte": amount}}
	update := bson.M{
		"$inc": bson.M{"wallet": -amount},
		"$set": bson.M{"updatedAt": at},
	}
	err := r.updateOne(ctx, filter, update, id)
	if !errors.Is(err, errors.NotFound) {
		return err
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return findErr
	}
	return errors.NotValidf("debit of %v from vendor %s", amount, id.Hex())
}

// SetParentReferral only matches while the child has no parent.
func (r *VendorRepository) SetParentReferral(ctx context.Context, childID, parentID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": childID, "parentReferralId": nil}
	update := bson.M{"$set": bson.M{"parentReferralId": parentID, "updatedAt": at}}
	err := r.updateOne(ctx, filter, update, childID)
	if !errors.Is(err, errors.NotFound) {
		return err
	}
	if _, findErr := r.FindByID(ctx, childID); findErr != nil {
		return findErr
	}
	return errors.AlreadyExistsf("parent referral of vendor %s", childID.Hex())
}

func (r *VendorRepository) AppendChildReferral(ctx context.Context, vendorIDs []primitive.ObjectID, childID primitive.ObjectID, at time.Time) error {
	if len(vendorIDs) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{"childReferralIds": childID},
		"$set":      bson.M{"updatedAt": at},
	}
	res, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": vendorIDs}}, update)
	if err != nil {
		return translate(err, "appending child %s", childID.Hex())
	}
	if res.MatchedCount != int64(len(vendorIDs)) {
		return errors.NotFoundf("%d of %d ancestors", int64(len(vendorIDs))-res.MatchedCount, len(vendorIDs))
	}
	return nil
}

func (r *VendorRepository) updateOne(ctx context.Context, filter, update bson.M, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err, "vendor %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.NotFoundf("vendor %s", id.Hex())
	}
	return nil
}

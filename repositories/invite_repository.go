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

type InviteRepository struct {
	collection *mongo.Collection
}

func NewInviteRepository(db *mongo.Database) *InviteRepository {
	return &InviteRepository{collection: db.Collection(ReferralInvitesCollection)}
}

func (r *InviteRepository) Create(ctx context.Context, invite *models.ReferralInvite) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if invite.ID.IsZero() {
		invite.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, invite)
	return translate(err, "referral invite for %s", invite.Phone)
}

// FindActiveByPhone returns the oldest active invite for phone.
func (r *InviteRepository) FindActiveByPhone(ctx context.Context, phone string) (*models.ReferralInvite, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"phone": phone, "status": models.InviteStatusActive}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var invite models.ReferralInvite
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&invite); err != nil {
		return nil, translate(err, "active referral invite for %s", phone)
	}
	return &invite, nil
}

func (r *InviteRepository) MarkConverted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id, "status": models.InviteStatusActive}
	update := bson.M{"$set": bson.M{
		"status":      models.InviteStatusConverted,
		"convertedAt": at,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err, "referral invite %s", id.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.NotFoundf("active referral invite %s", id.Hex())
	}
	return nil
}

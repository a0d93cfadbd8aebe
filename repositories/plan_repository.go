package repositories

import (
	"context"

	"github.com/HSouheill/vendor_settlement/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PlanRepository is the membership plan catalog.
type PlanRepository struct {
	collection *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) *PlanRepository {
	return &PlanRepository{collection: db.Collection(MembershipPlansCollection)}
}

func (r *PlanRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.MembershipPlan, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var plan models.MembershipPlan
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan); err != nil {
		return nil, translate(err, "membership plan %s", id.Hex())
	}
	return &plan, nil
}

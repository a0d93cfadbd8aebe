package repositories

import (
	"context"

	"github.com/HSouheill/vendor_settlement/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WalletRepository is the append-only wallet ledger.
type WalletRepository struct {
	collection *mongo.Collection
}

func NewWalletRepository(db *mongo.Database) *WalletRepository {
	return &WalletRepository{collection: db.Collection(WalletTransactionsCollection)}
}

func (r *WalletRepository) Append(ctx context.Context, entry *models.WalletTransaction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return translate(err, "%s ledger line for vendor %s", entry.Type, entry.VendorID.Hex())
}

// ListByVendor returns the vendor's ledger lines in the order they were written.
func (r *WalletRepository) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.WalletTransaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"vendorId": vendorID}, opts)
	if err != nil {
		return nil, translate(err, "ledger of vendor %s", vendorID.Hex())
	}
	defer cursor.Close(ctx)

	entries := []models.WalletTransaction{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, translate(err, "ledger of vendor %s", vendorID.Hex())
	}
	return entries, nil
}

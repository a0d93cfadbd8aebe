package repositories

import (
	"context"

	"github.com/HSouheill/vendor_settlement/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CronJobRepository stores one audit record per scheduled job run.
type CronJobRepository struct {
	collection *mongo.Collection
}

func NewCronJobRepository(db *mongo.Database) *CronJobRepository {
	return &CronJobRepository{collection: db.Collection(CronJobLogsCollection)}
}

func (r *CronJobRepository) Append(ctx context.Context, entry *models.CronJobLog) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return translate(err, "%s job log", entry.JobName)
}

// ListRecent returns the newest runs first. An empty jobName matches every job
// and a non-positive limit returns all runs.
func (r *CronJobRepository) ListRecent(ctx context.Context, jobName string, limit int64) ([]models.CronJobLog, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if jobName != "" {
		filter["jobName"] = jobName
	}
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "job logs")
	}
	defer cursor.Close(ctx)

	entries := []models.CronJobLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, translate(err, "job logs")
	}
	return entries, nil
}

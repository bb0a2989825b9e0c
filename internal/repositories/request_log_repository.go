package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bluerally/buooy-backend/internal/models"
)

// RequestLogRepository persists served requests.
type RequestLogRepository interface {
	InsertLog(ctx context.Context, entry *models.RequestLog) error
	GetRecentLogs(ctx context.Context, limit int64) ([]models.RequestLog, error)
}

// MongoRequestLogRepository implements RequestLogRepository for MongoDB
type MongoRequestLogRepository struct {
	collection *mongo.Collection
}

// NewMongoRequestLogRepository creates a new MongoRequestLogRepository
func NewMongoRequestLogRepository(db *mongo.Database) *MongoRequestLogRepository {
	return &MongoRequestLogRepository{collection: db.Collection("request_logs")}
}

func (r *MongoRequestLogRepository) InsertLog(ctx context.Context, entry *models.RequestLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// GetRecentLogs returns the newest entries first.
func (r *MongoRequestLogRepository) GetRecentLogs(ctx context.Context, limit int64) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

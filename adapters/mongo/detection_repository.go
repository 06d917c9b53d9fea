package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
)

// DetectionRepository stores detection events in a MongoDB collection.
type DetectionRepository struct {
	collection *mongo.Collection
}

// NewDetectionRepository creates a MongoDB-backed detection repository.
func NewDetectionRepository(db *mongo.Database) repositories.DetectionRepository {
	return &DetectionRepository{
		collection: db.Collection("detections"),
	}
}

// Record implements repositories.DetectionRepository.
func (r *DetectionRepository) Record(ctx context.Context, event *entities.DetectionEvent) error {
	if event == nil {
		return errors.New("detection event cannot be nil")
	}
	if event.DetectedAt.IsZero() {
		event.DetectedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to record detection: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return nil
}

// Recent implements repositories.DetectionRepository.
func (r *DetectionRepository) Recent(ctx context.Context, limit int) ([]entities.DetectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.M{"detected_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer cursor.Close(ctx)

	var events []entities.DetectionEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}
	return events, nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const moodCollection = "mood_scores"

// MoodRepository stores mood records in one collection keyed by userId
type MoodRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
	now        func() time.Time
}

var _ repositories.MoodRepository = (*MoodRepository)(nil)

// NewMoodRepository creates a new MongoDB mood repository
func NewMoodRepository(db *mongo.Database, logger *zap.Logger) *MoodRepository {
	return &MoodRepository{
		collection: db.Collection(moodCollection),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureIndexes creates the index used by per-user history queries
func (r *MoodRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("user_created"),
	})
	if err != nil {
		return fmt.Errorf("failed to create mood index: %w", err)
	}
	return nil
}

// Append implements repositories.MoodRepository
func (r *MoodRepository) Append(ctx context.Context, record *entities.MoodScoreRecord) (string, error) {
	if record == nil {
		return "", errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("invalid mood record: %w", err)
	}

	record.PrepareForInsert(r.now())

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to insert mood record: %w", err)
	}

	r.logger.Debug("Mood record stored",
		zap.String("id", record.ID),
		zap.String("user_id", record.UserID),
		zap.String("source", string(record.Source)),
	)
	return record.ID, nil
}

// ListByUser implements repositories.MoodRepository
func (r *MoodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.MoodScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find mood records for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	records := make([]*entities.MoodScoreRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode mood records: %w", err)
	}
	return records, nil
}

package escalation

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TimerRepository interface {
	// Schedule creates the timer for a (request, step) pair if it does not
	// exist. A second call for the same pair is a no-op.
	Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error
	FindDue(ctx context.Context, now time.Time, limit int64) ([]EscalationTimer, error)
	// Claim flips fired false -> true atomically. Exactly one concurrent
	// caller wins a given timer.
	Claim(ctx context.Context, id string) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

type TimerRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTimerRepository(db *database.MongodbDB) TimerRepository {
	return &TimerRepositoryImpl{
		collection: db.DB.Collection("escalation_timers"),
	}
}

func (r *TimerRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "step_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "fired", Value: 1}, {Key: "deadline", Value: 1}},
		},
	})
	return err
}

func (r *TimerRepositoryImpl) Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error {
	filter := bson.M{"request_id": requestID, "step_number": stepNumber}
	update := bson.M{
		"$setOnInsert": bson.M{
			"tenant_id":   tenantID,
			"request_id":  requestID,
			"step_number": stepNumber,
			"deadline":    deadline,
			"fired":       false,
			"created_at":  time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *TimerRepositoryImpl) FindDue(ctx context.Context, now time.Time, limit int64) ([]EscalationTimer, error) {
	filter := bson.M{
		"fired":    false,
		"deadline": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "deadline", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var timers []EscalationTimer
	if err := cursor.All(ctx, &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

func (r *TimerRepositoryImpl) Claim(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	now := time.Now()
	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "fired": false},
		bson.M{"$set": bson.M{"fired": true, "fired_at": now}})
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			// Another sweeper instance won.
			return false, nil
		}
		return false, result.Err()
	}
	return true, nil
}

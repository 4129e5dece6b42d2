package notification

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, tenantID, userID string, page, limit int64) ([]Notification, int64, error)
	UnreadCount(ctx context.Context, tenantID, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	MarkAllAsRead(ctx context.Context, tenantID, userID string) error
}

type NotificationRepositoryImpl struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *database.MongodbDB) NotificationRepository {
	return &NotificationRepositoryImpl{
		collection: db.DB.Collection("notifications"),
	}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *Notification) error {
	n.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	n.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *NotificationRepositoryImpl) ListForUser(ctx context.Context, tenantID, userID string, page, limit int64) ([]Notification, int64, error) {
	filter := bson.M{"tenant_id": tenantID, "user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var notifications []Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *NotificationRepositoryImpl) UnreadCount(ctx context.Context, tenantID, userID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"tenant_id": tenantID,
		"user_id":   userID,
		"is_read":   false,
	})
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	return err
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, tenantID, userID string) error {
	now := time.Now()
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	return err
}

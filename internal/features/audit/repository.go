package audit

import (
	"context"

	common_models "go-onboard/internal/common/models"
	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepository interface {
	Create(ctx context.Context, log *common_models.AuditLog) error
	List(ctx context.Context, tenantID string, filters bson.M, limit, offset int64) ([]common_models.AuditLog, error)
}

type AuditRepositoryImpl struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *database.MongodbDB) AuditRepository {
	return &AuditRepositoryImpl{
		collection: db.DB.Collection("audit_logs"),
	}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, log *common_models.AuditLog) error {
	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *AuditRepositoryImpl) List(ctx context.Context, tenantID string, filters bson.M, limit, offset int64) ([]common_models.AuditLog, error) {
	filter := bson.M{"tenant_id": tenantID}
	for key, value := range filters {
		filter[key] = value
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []common_models.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

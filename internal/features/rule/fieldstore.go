package rule

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EntityFieldStore is the field mutation collaborator backed by the entity
// snapshot collection. The entity catalog itself lives outside the engine;
// this store only writes the fields rule actions target.
type EntityFieldStore struct {
	collection *mongo.Collection
}

func NewEntityFieldStore(db *database.MongodbDB) FieldMutator {
	return &EntityFieldStore{
		collection: db.DB.Collection("entity_records"),
	}
}

func (s *EntityFieldStore) UpdateField(ctx context.Context, tenantID, entityType, entityID, field string, value interface{}) error {
	filter := bson.M{
		"tenant_id": tenantID,
		"entity":    entityType,
		"entity_id": entityID,
	}
	update := bson.M{
		"$set": bson.M{
			"data." + field: value,
			"updated_at":    time.Now(),
		},
	}
	_, err := s.collection.UpdateOne(ctx, filter, update)
	return err
}

package workflow

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ConfigRepository interface {
	Create(ctx context.Context, cfg *WorkflowConfig) error
	GetByID(ctx context.Context, id string) (*WorkflowConfig, error)
	GetDefault(ctx context.Context, tenantID string) (*WorkflowConfig, error)
	List(ctx context.Context, tenantID string) ([]WorkflowConfig, error)
	ListActive(ctx context.Context, tenantID string) ([]WorkflowConfig, error)
	Update(ctx context.Context, id string, cfg *WorkflowConfig) error
	Delete(ctx context.Context, id string) error
}

type ConfigRepositoryImpl struct {
	collection *mongo.Collection
}

func NewConfigRepository(db *database.MongodbDB) ConfigRepository {
	return &ConfigRepositoryImpl{
		collection: db.DB.Collection("workflow_configs"),
	}
}

// clearOtherDefaults keeps the at-most-one-default invariant: whenever a
// config is written with is_default set, every other config of the tenant
// loses the flag.
func (r *ConfigRepositoryImpl) clearOtherDefaults(ctx context.Context, tenantID string, keep primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"tenant_id": tenantID, "_id": bson.M{"$ne": keep}, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": time.Now()}})
	return err
}

func (r *ConfigRepositoryImpl) Create(ctx context.Context, cfg *WorkflowConfig) error {
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, cfg)
	if err != nil {
		return err
	}
	cfg.ID = result.InsertedID.(primitive.ObjectID)

	if cfg.IsDefault {
		return r.clearOtherDefaults(ctx, cfg.TenantID, cfg.ID)
	}
	return nil
}

func (r *ConfigRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowConfig, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ConfigRepositoryImpl) GetDefault(ctx context.Context, tenantID string) (*WorkflowConfig, error) {
	return r.findOne(ctx, bson.M{
		"tenant_id":  tenantID,
		"is_default": true,
		"status":     ConfigStatusActive,
	})
}

func (r *ConfigRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*WorkflowConfig, error) {
	var cfg WorkflowConfig
	err := r.collection.FindOne(ctx, filter).Decode(&cfg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigRepositoryImpl) List(ctx context.Context, tenantID string) ([]WorkflowConfig, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID})
}

func (r *ConfigRepositoryImpl) ListActive(ctx context.Context, tenantID string) ([]WorkflowConfig, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID, "status": ConfigStatusActive})
}

func (r *ConfigRepositoryImpl) find(ctx context.Context, filter bson.M) ([]WorkflowConfig, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []WorkflowConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ConfigRepositoryImpl) Update(ctx context.Context, id string, cfg *WorkflowConfig) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":          cfg.Name,
			"description":   cfg.Description,
			"status":        cfg.Status,
			"is_default":    cfg.IsDefault,
			"steps":         cfg.Steps,
			"conditions":    cfg.Conditions,
			"trigger_rules": cfg.TriggerRules,
			"updated_at":    cfg.UpdatedAt,
		},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update); err != nil {
		return err
	}

	if cfg.IsDefault {
		return r.clearOtherDefaults(ctx, cfg.TenantID, oid)
	}
	return nil
}

func (r *ConfigRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type RequestRepository interface {
	Create(ctx context.Context, req *OnboardingRequest) error
	GetByID(ctx context.Context, id string) (*OnboardingRequest, error)
	List(ctx context.Context, tenantID, status string) ([]OnboardingRequest, error)
	// UpdateWithVersion applies the update only if the stored version still
	// matches; a miss means another actor transitioned first.
	UpdateWithVersion(ctx context.Context, id string, version int64, update bson.M) error
}

type RequestRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *database.MongodbDB) RequestRepository {
	return &RequestRepositoryImpl{
		collection: db.DB.Collection("onboarding_requests"),
	}
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, req *OnboardingRequest) error {
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	req.Version = 1
	if req.History == nil {
		req.History = []HistoryEntry{}
	}

	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		return err
	}
	req.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *RequestRepositoryImpl) GetByID(ctx context.Context, id string) (*OnboardingRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var req OnboardingRequest
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) List(ctx context.Context, tenantID, status string) ([]OnboardingRequest, error) {
	filter := bson.M{"tenant_id": tenantID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []OnboardingRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) UpdateWithVersion(ctx context.Context, id string, version int64, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now()
	update["$set"] = set
	update["$inc"] = bson.M{"version": 1}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "version": version},
		update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return conflictf("request %s was modified concurrently, re-read and retry", id)
	}
	return nil
}

package rule

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	GetByRuleID(ctx context.Context, tenantID, ruleID string) (*Rule, error)
	List(ctx context.Context, tenantID string) ([]Rule, error)
	ListActive(ctx context.Context, tenantID string) ([]Rule, error)
	Update(ctx context.Context, id string, rule *Rule) error
	Delete(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

type RuleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		collection: db.DB.Collection("rules"),
	}
}

func (r *RuleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "rule_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *Rule) error {
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	if rule.ApplicableEntities == nil {
		rule.ApplicableEntities = []string{}
	}
	if rule.ApplicableScreens == nil {
		rule.ApplicableScreens = []string{}
	}

	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return err
	}
	rule.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *RuleRepositoryImpl) GetByID(ctx context.Context, id string) (*Rule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var rule Rule
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) GetByRuleID(ctx context.Context, tenantID, ruleID string) (*Rule, error) {
	var rule Rule
	err := r.collection.FindOne(ctx, bson.M{"tenant_id": tenantID, "rule_id": ruleID}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context, tenantID string) ([]Rule, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID})
}

func (r *RuleRepositoryImpl) ListActive(ctx context.Context, tenantID string) ([]Rule, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID, "is_active": true})
}

func (r *RuleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Rule, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, id string, rule *Rule) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	rule.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":                 rule.Name,
			"condition_expression": rule.ConditionExpression,
			"action_expression":    rule.ActionExpression,
			"action_type":          rule.ActionType,
			"action_config":        rule.ActionConfig,
			"rule_type":            rule.RuleType,
			"applicable_entities":  rule.ApplicableEntities,
			"applicable_screens":   rule.ApplicableScreens,
			"priority":             rule.Priority,
			"is_active":            rule.IsActive,
			"is_automatic":         rule.IsAutomatic,
			"updated_at":           rule.UpdatedAt,
		},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

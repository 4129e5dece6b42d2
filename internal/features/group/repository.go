package group

import (
	"context"
	"time"

	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GroupRepository interface {
	Create(ctx context.Context, g *ApproverGroup) error
	GetByID(ctx context.Context, id string) (*ApproverGroup, error)
	GetByGroupID(ctx context.Context, tenantID, groupID string) (*ApproverGroup, error)
	List(ctx context.Context, tenantID string) ([]ApproverGroup, error)
	Update(ctx context.Context, id string, g *ApproverGroup) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, tenantID, groupID, userID string) error
	RemoveMember(ctx context.Context, tenantID, groupID, userID string) error
	NextAssignee(ctx context.Context, tenantID, groupID string) (string, error)
	EnsureIndexes(ctx context.Context) error
}

type GroupRepositoryImpl struct {
	collection *mongo.Collection
}

func NewGroupRepository(db *database.MongodbDB) GroupRepository {
	return &GroupRepositoryImpl{
		collection: db.DB.Collection("approver_groups"),
	}
}

func (r *GroupRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "group_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *GroupRepositoryImpl) Create(ctx context.Context, g *ApproverGroup) error {
	g.CreatedAt = time.Now()
	g.UpdatedAt = time.Now()
	if g.Members == nil {
		g.Members = []string{}
	}

	result, err := r.collection.InsertOne(ctx, g)
	if err != nil {
		return err
	}
	g.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *GroupRepositoryImpl) GetByID(ctx context.Context, id string) (*ApproverGroup, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *GroupRepositoryImpl) GetByGroupID(ctx context.Context, tenantID, groupID string) (*ApproverGroup, error) {
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "group_id": groupID})
}

func (r *GroupRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*ApproverGroup, error) {
	var g ApproverGroup
	err := r.collection.FindOne(ctx, filter).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) List(ctx context.Context, tenantID string) ([]ApproverGroup, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []ApproverGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepositoryImpl) Update(ctx context.Context, id string, g *ApproverGroup) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	g.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":        g.Name,
			"description": g.Description,
			"members":     g.Members,
			"updated_at":  g.UpdatedAt,
		},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *GroupRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *GroupRepositoryImpl) AddMember(ctx context.Context, tenantID, groupID, userID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "group_id": groupID},
		bson.M{
			"$addToSet": bson.M{"members": userID},
			"$set":      bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepositoryImpl) RemoveMember(ctx context.Context, tenantID, groupID, userID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "group_id": groupID},
		bson.M{
			"$pull": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// NextAssignee advances the group's rotation cursor and returns the member it
// pointed at before the advance. The increment is a single findAndModify, so
// two concurrent picks can never land on the same cursor value.
func (r *GroupRepositoryImpl) NextAssignee(ctx context.Context, tenantID, groupID string) (string, error) {
	var g ApproverGroup
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"tenant_id": tenantID, "group_id": groupID},
		bson.M{"$inc": bson.M{"rotation_cursor": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrGroupNotFound
		}
		return "", err
	}
	return pickMember(g.Members, g.RotationCursor)
}

// pickMember maps a rotation cursor onto the ordered member list. With M
// members, cursors k..k+M-1 visit each member exactly once.
func pickMember(members []string, cursor int64) (string, error) {
	if len(members) == 0 {
		return "", ErrEmptyGroup
	}
	return members[cursor%int64(len(members))], nil
}

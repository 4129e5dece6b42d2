package user

import (
	"context"

	common_models "go-onboard/internal/common/models"
	"go-onboard/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository reads the user directory. The engine never writes users;
// provisioning happens upstream.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*common_models.User, error)
	FindByRole(ctx context.Context, tenantID, role string) ([]common_models.User, error)
}

type UserRepositoryImpl struct {
	collection *mongo.Collection
}

func NewUserRepository(db *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		collection: db.DB.Collection("users"),
	}
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*common_models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var u common_models.User
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// FindByRole returns the active holders of a role in a stable order, so
// role-queue assignment is deterministic for a given directory state.
func (r *UserRepositoryImpl) FindByRole(ctx context.Context, tenantID, role string) ([]common_models.User, error) {
	filter := bson.M{
		"tenant_id": tenantID,
		"roles":     role,
		"status":    "active",
	}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []common_models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

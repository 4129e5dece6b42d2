package group

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApproverGroup is an ordered set of user ids that share an approval queue.
// RotationCursor advances atomically on every round-robin pick, so concurrent
// assignments hand out distinct members.
type ApproverGroup struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID       string             `bson:"tenant_id" json:"tenant_id"`
	GroupID        string             `bson:"group_id" json:"group_id"` // unique per tenant
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Members        []string           `bson:"members" json:"members"` // ordered user ids
	RotationCursor int64              `bson:"rotation_cursor" json:"rotation_cursor"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

var (
	ErrGroupNotFound = errors.New("approver group not found")
	ErrEmptyGroup    = errors.New("approver group has no members")
)

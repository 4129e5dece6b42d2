package escalation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EscalationTimer is a persisted deadline for one (request, step) pair.
// Created at most once per pair on step entry; fired at most once by the
// sweeper. Deadlines survive restarts because nothing is held in memory.
type EscalationTimer struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   string             `bson:"tenant_id" json:"tenant_id"`
	RequestID  string             `bson:"request_id" json:"request_id"`
	StepNumber int                `bson:"step_number" json:"step_number"`
	Deadline   time.Time          `bson:"deadline" json:"deadline"`
	Fired      bool               `bson:"fired" json:"fired"`
	FiredAt    *time.Time         `bson:"fired_at,omitempty" json:"fired_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

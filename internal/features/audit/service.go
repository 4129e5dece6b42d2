package audit

import (
	"context"
	"time"

	common_models "go-onboard/internal/common/models"
	"go-onboard/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type AuditService interface {
	// LogChange records an audit entry for a state change. Failures are
	// logged, not returned: an audit write must never fail the operation it
	// describes.
	LogChange(ctx context.Context, action common_models.AuditAction, entity, recordID string, changes map[string]common_models.Change)
	ListLogs(ctx context.Context, tenantID string, filters bson.M, page, limit int64) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo AuditRepository
	Log  *zap.Logger
}

func NewAuditService(repo AuditRepository, log *zap.Logger) AuditService {
	return &AuditServiceImpl{Repo: repo, Log: log}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, action common_models.AuditAction, entity, recordID string, changes map[string]common_models.Change) {
	actorID := common_models.SystemActorID
	tenantID := ""
	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		actorID = claims.UserID
		tenantID = claims.TenantID
	} else if tid, ok := ctx.Value(common_models.TenantIDKey).(string); ok {
		tenantID = tid
	}

	entry := &common_models.AuditLog{
		TenantID:  tenantID,
		Action:    action,
		Entity:    entity,
		RecordID:  recordID,
		ActorID:   actorID,
		Changes:   changes,
		Timestamp: time.Now(),
	}

	if err := s.Repo.Create(ctx, entry); err != nil {
		s.Log.Error("failed to write audit log",
			zap.String("entity", entity),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, tenantID string, filters bson.M, page, limit int64) ([]common_models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	return s.Repo.List(ctx, tenantID, filters, limit, (page-1)*limit)
}

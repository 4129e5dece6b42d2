package group

import (
	"context"
	"fmt"

	common_models "go-onboard/internal/common/models"
	"go-onboard/internal/features/audit"

	"go.uber.org/zap"
)

type GroupService interface {
	CreateGroup(ctx context.Context, g *ApproverGroup) error
	GetGroup(ctx context.Context, id string) (*ApproverGroup, error)
	ListGroups(ctx context.Context, tenantID string) ([]ApproverGroup, error)
	UpdateGroup(ctx context.Context, id string, g *ApproverGroup) error
	DeleteGroup(ctx context.Context, id string) error
	AddMember(ctx context.Context, tenantID, groupID, userID string) error
	RemoveMember(ctx context.Context, tenantID, groupID, userID string) error
	NextAssignee(ctx context.Context, tenantID, groupID string) (string, error)
}

type GroupServiceImpl struct {
	Repo         GroupRepository
	AuditService audit.AuditService
	Log          *zap.Logger
}

func NewGroupService(repo GroupRepository, auditService audit.AuditService, log *zap.Logger) GroupService {
	return &GroupServiceImpl{Repo: repo, AuditService: auditService, Log: log}
}

func (s *GroupServiceImpl) CreateGroup(ctx context.Context, g *ApproverGroup) error {
	if g.GroupID == "" {
		return fmt.Errorf("group_id is required")
	}

	existing, err := s.Repo.GetByGroupID(ctx, g.TenantID, g.GroupID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("group with id %q already exists", g.GroupID)
	}

	if err := s.Repo.Create(ctx, g); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionGroup, "approver_groups", g.GroupID, map[string]common_models.Change{
		"group": {New: g},
	})
	return nil
}

func (s *GroupServiceImpl) GetGroup(ctx context.Context, id string) (*ApproverGroup, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *GroupServiceImpl) ListGroups(ctx context.Context, tenantID string) ([]ApproverGroup, error) {
	return s.Repo.List(ctx, tenantID)
}

func (s *GroupServiceImpl) UpdateGroup(ctx context.Context, id string, g *ApproverGroup) error {
	old, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return ErrGroupNotFound
	}

	if err := s.Repo.Update(ctx, id, g); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionGroup, "approver_groups", old.GroupID, map[string]common_models.Change{
		"group": {Old: old, New: g},
	})
	return nil
}

func (s *GroupServiceImpl) DeleteGroup(ctx context.Context, id string) error {
	old, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return ErrGroupNotFound
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionGroup, "approver_groups", old.GroupID, map[string]common_models.Change{
		"group": {Old: old, New: "DELETED"},
	})
	return nil
}

func (s *GroupServiceImpl) AddMember(ctx context.Context, tenantID, groupID, userID string) error {
	if err := s.Repo.AddMember(ctx, tenantID, groupID, userID); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionGroup, "approver_groups", groupID, map[string]common_models.Change{
		"member_added": {New: userID},
	})
	return nil
}

func (s *GroupServiceImpl) RemoveMember(ctx context.Context, tenantID, groupID, userID string) error {
	if err := s.Repo.RemoveMember(ctx, tenantID, groupID, userID); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionGroup, "approver_groups", groupID, map[string]common_models.Change{
		"member_removed": {Old: userID},
	})
	return nil
}

func (s *GroupServiceImpl) NextAssignee(ctx context.Context, tenantID, groupID string) (string, error) {
	return s.Repo.NextAssignee(ctx, tenantID, groupID)
}

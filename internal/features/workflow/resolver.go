package workflow

import (
	"context"
	"errors"

	"go-onboard/internal/features/group"
	"go-onboard/internal/features/user"
)

// GroupAssigner is the round-robin pick the resolver needs from the group
// feature.
type GroupAssigner interface {
	NextAssignee(ctx context.Context, tenantID, groupID string) (string, error)
}

// AssignmentResolver turns a step's assignment rule into a concrete actor.
// Role assignment resolves to the role's queue, not one person; group and
// round_robin pick a single member and advance the group's rotation.
type AssignmentResolver struct {
	users  user.UserRepository
	groups GroupAssigner
}

func NewAssignmentResolver(users user.UserRepository, groups GroupAssigner) *AssignmentResolver {
	return &AssignmentResolver{users: users, groups: groups}
}

func (r *AssignmentResolver) Resolve(ctx context.Context, tenantID string, rule AssignmentRule) (*Assignment, error) {
	switch rule.Type {
	case AssignRole:
		if rule.RoleID == "" {
			return nil, assignmentf("assignment rule of type role has no role_id")
		}
		holders, err := r.users.FindByRole(ctx, tenantID, rule.RoleID)
		if err != nil {
			return nil, err
		}
		if len(holders) == 0 {
			return nil, assignmentf("role %q has no active holders", rule.RoleID)
		}
		assignment := &Assignment{Role: rule.RoleID}
		for _, u := range holders {
			assignment.Candidates = append(assignment.Candidates, u.ID.Hex())
		}
		return assignment, nil

	case AssignUser:
		if rule.UserID == "" {
			return nil, assignmentf("assignment rule of type user has no user_id")
		}
		u, err := r.users.FindByID(ctx, rule.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, assignmentf("user %q not found", rule.UserID)
		}
		return &Assignment{UserID: rule.UserID}, nil

	case AssignGroup, AssignRoundRobin:
		if rule.GroupID == "" {
			return nil, assignmentf("assignment rule of type %s has no group_id", rule.Type)
		}
		member, err := r.groups.NextAssignee(ctx, tenantID, rule.GroupID)
		if err != nil {
			if errors.Is(err, group.ErrEmptyGroup) || errors.Is(err, group.ErrGroupNotFound) {
				return nil, assignmentf("group %q: %v", rule.GroupID, err)
			}
			return nil, err
		}
		return &Assignment{UserID: member}, nil

	default:
		return nil, assignmentf("unknown assignment rule type %q", rule.Type)
	}
}

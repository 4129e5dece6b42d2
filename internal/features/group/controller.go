package group

import (
	"errors"

	"go-onboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type GroupController struct {
	Service GroupService
}

func NewGroupController(service GroupService) *GroupController {
	return &GroupController{Service: service}
}

func claims(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

// CreateGroup godoc
// @Summary Create an approver group
// @Tags groups
// @Accept json
// @Produce json
// @Param group body ApproverGroup true "Group"
// @Success 201 {object} ApproverGroup
// @Router /api/groups [post]
func (c *GroupController) CreateGroup(ctx *fiber.Ctx) error {
	var input ApproverGroup
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID
	input.RotationCursor = 0

	if err := c.Service.CreateGroup(ctx.UserContext(), &input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetGroup godoc
// @Summary Get an approver group by id
// @Tags groups
// @Produce json
// @Param id path string true "Group document id"
// @Success 200 {object} ApproverGroup
// @Router /api/groups/{id} [get]
func (c *GroupController) GetGroup(ctx *fiber.Ctx) error {
	g, err := c.Service.GetGroup(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if g == nil || g.TenantID != claims(ctx).TenantID {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}
	return ctx.JSON(g)
}

// ListGroups godoc
// @Summary List approver groups for the tenant
// @Tags groups
// @Produce json
// @Success 200 {array} ApproverGroup
// @Router /api/groups [get]
func (c *GroupController) ListGroups(ctx *fiber.Ctx) error {
	groups, err := c.Service.ListGroups(ctx.UserContext(), claims(ctx).TenantID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(groups)
}

// UpdateGroup godoc
// @Summary Update an approver group
// @Tags groups
// @Accept json
// @Produce json
// @Param id path string true "Group document id"
// @Param group body ApproverGroup true "Group"
// @Success 200 {object} ApproverGroup
// @Router /api/groups/{id} [put]
func (c *GroupController) UpdateGroup(ctx *fiber.Ctx) error {
	var input ApproverGroup
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID

	if err := c.Service.UpdateGroup(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(input)
}

// DeleteGroup godoc
// @Summary Delete an approver group
// @Tags groups
// @Param id path string true "Group document id"
// @Success 204
// @Router /api/groups/{id} [delete]
func (c *GroupController) DeleteGroup(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteGroup(ctx.UserContext(), ctx.Params("id")); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

// AddMember godoc
// @Summary Add a member to an approver group
// @Tags groups
// @Accept json
// @Param group_id path string true "Group id"
// @Param member body memberRequest true "Member"
// @Success 204
// @Router /api/groups/{group_id}/members [post]
func (c *GroupController) AddMember(ctx *fiber.Ctx) error {
	var req memberRequest
	if err := ctx.BodyParser(&req); err != nil || req.UserID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	err := c.Service.AddMember(ctx.UserContext(), claims(ctx).TenantID, ctx.Params("group_id"), req.UserID)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// RemoveMember godoc
// @Summary Remove a member from an approver group
// @Tags groups
// @Param group_id path string true "Group id"
// @Param user_id path string true "User id"
// @Success 204
// @Router /api/groups/{group_id}/members/{user_id} [delete]
func (c *GroupController) RemoveMember(ctx *fiber.Ctx) error {
	err := c.Service.RemoveMember(ctx.UserContext(), claims(ctx).TenantID, ctx.Params("group_id"), ctx.Params("user_id"))
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

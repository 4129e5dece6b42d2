package rule

import (
	"errors"

	"go-onboard/pkg/expr"
	"go-onboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type RuleController struct {
	Service RuleService
}

func NewRuleController(service RuleService) *RuleController {
	return &RuleController{Service: service}
}

func claims(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

// compileErrorResponse maps a compile failure onto a 400 with the source
// position so rule authors can see where their expression broke.
func compileErrorResponse(ctx *fiber.Ctx, err error) error {
	var ce *expr.CompileError
	if errors.As(err, &ce) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    ce.Message,
			"position": ce.Pos,
		})
	}
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// CreateRule godoc
// @Summary Create a rule
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body Rule true "Rule"
// @Success 201 {object} Rule
// @Router /api/rules [post]
func (c *RuleController) CreateRule(ctx *fiber.Ctx) error {
	var input Rule
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID

	if err := c.Service.CreateRule(ctx.UserContext(), &input); err != nil {
		return compileErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetRule godoc
// @Summary Get a rule by id
// @Tags rules
// @Produce json
// @Param id path string true "Rule document id"
// @Success 200 {object} Rule
// @Router /api/rules/{id} [get]
func (c *RuleController) GetRule(ctx *fiber.Ctx) error {
	rule, err := c.Service.GetRule(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if rule == nil || rule.TenantID != claims(ctx).TenantID {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "rule not found"})
	}
	return ctx.JSON(rule)
}

// ListRules godoc
// @Summary List rules for the tenant
// @Tags rules
// @Produce json
// @Success 200 {array} Rule
// @Router /api/rules [get]
func (c *RuleController) ListRules(ctx *fiber.Ctx) error {
	rules, err := c.Service.ListRules(ctx.UserContext(), claims(ctx).TenantID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(rules)
}

// UpdateRule godoc
// @Summary Update a rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path string true "Rule document id"
// @Param rule body Rule true "Rule"
// @Success 200 {object} Rule
// @Router /api/rules/{id} [put]
func (c *RuleController) UpdateRule(ctx *fiber.Ctx) error {
	var input Rule
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID

	if err := c.Service.UpdateRule(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return compileErrorResponse(ctx, err)
	}
	return ctx.JSON(input)
}

// DeleteRule godoc
// @Summary Delete a rule
// @Tags rules
// @Param id path string true "Rule document id"
// @Success 204
// @Router /api/rules/{id} [delete]
func (c *RuleController) DeleteRule(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteRule(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// Evaluate godoc
// @Summary Evaluate rules against a context snapshot
// @Tags rules
// @Accept json
// @Produce json
// @Param request body EvaluateRequest true "Evaluation request"
// @Success 200 {object} EvaluateResponse
// @Router /api/rules/evaluate [post]
func (c *RuleController) Evaluate(ctx *fiber.Ctx) error {
	var req EvaluateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.EntityType == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "entity_type is required"})
	}
	if req.Context == nil {
		req.Context = map[string]interface{}{}
	}

	cl := claims(ctx)
	resp, err := c.Service.Evaluate(ctx.UserContext(), cl.TenantID, cl.UserID, &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(resp)
}

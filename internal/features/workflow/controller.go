package workflow

import (
	"errors"

	"go-onboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

func claims(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

func transitionErrorResponse(ctx *fiber.Ctx, err error) error {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflict.Message})
	}
	var assignment *AssignmentError
	if errors.As(err, &assignment) {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": assignment.Message})
	}
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// --- workflow config endpoints ---

// CreateConfig godoc
// @Summary Create a workflow config
// @Tags workflows
// @Accept json
// @Produce json
// @Param config body WorkflowConfig true "Config"
// @Success 201 {object} WorkflowConfig
// @Router /api/workflows [post]
func (c *WorkflowController) CreateConfig(ctx *fiber.Ctx) error {
	var input WorkflowConfig
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID

	if err := c.Service.CreateConfig(ctx.UserContext(), &input); err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetConfig godoc
// @Summary Get a workflow config by id
// @Tags workflows
// @Produce json
// @Param id path string true "Config id"
// @Success 200 {object} WorkflowConfig
// @Router /api/workflows/{id} [get]
func (c *WorkflowController) GetConfig(ctx *fiber.Ctx) error {
	cfg, err := c.Service.GetConfig(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if cfg == nil || cfg.TenantID != claims(ctx).TenantID {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow config not found"})
	}
	return ctx.JSON(cfg)
}

// ListConfigs godoc
// @Summary List workflow configs for the tenant
// @Tags workflows
// @Produce json
// @Success 200 {array} WorkflowConfig
// @Router /api/workflows [get]
func (c *WorkflowController) ListConfigs(ctx *fiber.Ctx) error {
	configs, err := c.Service.ListConfigs(ctx.UserContext(), claims(ctx).TenantID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(configs)
}

// UpdateConfig godoc
// @Summary Update a workflow config
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Config id"
// @Param config body WorkflowConfig true "Config"
// @Success 200 {object} WorkflowConfig
// @Router /api/workflows/{id} [put]
func (c *WorkflowController) UpdateConfig(ctx *fiber.Ctx) error {
	var input WorkflowConfig
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	input.TenantID = claims(ctx).TenantID

	if err := c.Service.UpdateConfig(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(input)
}

// DeleteConfig godoc
// @Summary Delete a workflow config
// @Tags workflows
// @Param id path string true "Config id"
// @Success 204
// @Router /api/workflows/{id} [delete]
func (c *WorkflowController) DeleteConfig(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteConfig(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

type firstStepRequest struct {
	StepNumber int `json:"step_number"`
}

// SetFirstStep godoc
// @Summary Move a step to the front of the sequence
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Config id"
// @Param body body firstStepRequest true "Step"
// @Success 200 {object} WorkflowConfig
// @Router /api/workflows/{id}/first-step [post]
func (c *WorkflowController) SetFirstStep(ctx *fiber.Ctx) error {
	var req firstStepRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	cfg, err := c.Service.SetFirstStep(ctx.UserContext(), ctx.Params("id"), req.StepNumber)
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(cfg)
}

type reorderRequest struct {
	Order []int `json:"order"`
}

// ReorderSteps godoc
// @Summary Reorder a config's steps
// @Tags workflows
// @Accept json
// @Produce json
// @Param id path string true "Config id"
// @Param body body reorderRequest true "New order of existing step numbers"
// @Success 200 {object} WorkflowConfig
// @Router /api/workflows/{id}/reorder [post]
func (c *WorkflowController) ReorderSteps(ctx *fiber.Ctx) error {
	var req reorderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	cfg, err := c.Service.ReorderSteps(ctx.UserContext(), ctx.Params("id"), req.Order)
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(cfg)
}

// Health godoc
// @Summary Per-tenant workflow consistency report
// @Tags workflows
// @Produce json
// @Success 200 {object} TenantHealth
// @Router /api/workflows/health [get]
func (c *WorkflowController) Health(ctx *fiber.Ctx) error {
	health, err := c.Service.Health(ctx.UserContext(), claims(ctx).TenantID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(health)
}

// --- onboarding request endpoints ---

type createRequestBody struct {
	WorkflowConfigID string                 `json:"workflow_config_id,omitempty"`
	Context          map[string]interface{} `json:"context"`
}

// CreateRequest godoc
// @Summary Start an onboarding request
// @Tags requests
// @Accept json
// @Produce json
// @Param request body createRequestBody true "Request"
// @Success 201 {object} OnboardingRequest
// @Router /api/requests [post]
func (c *WorkflowController) CreateRequest(ctx *fiber.Ctx) error {
	var body createRequestBody
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	cl := claims(ctx)
	req, err := c.Service.CreateRequest(ctx.UserContext(), cl.TenantID, cl.UserID, body.WorkflowConfigID, body.Context)
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(req)
}

// GetRequest godoc
// @Summary Get an onboarding request
// @Tags requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} OnboardingRequest
// @Router /api/requests/{id} [get]
func (c *WorkflowController) GetRequest(ctx *fiber.Ctx) error {
	req, err := c.Service.GetRequest(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if req == nil || req.TenantID != claims(ctx).TenantID {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "request not found"})
	}
	return ctx.JSON(req)
}

// ListRequests godoc
// @Summary List onboarding requests, optionally by status
// @Tags requests
// @Produce json
// @Param status query string false "pending | in_review | approved | rejected | cancelled"
// @Success 200 {array} OnboardingRequest
// @Router /api/requests [get]
func (c *WorkflowController) ListRequests(ctx *fiber.Ctx) error {
	requests, err := c.Service.ListRequests(ctx.UserContext(), claims(ctx).TenantID, ctx.Query("status"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(requests)
}

type approveBody struct {
	Step  int    `json:"step"`
	Notes string `json:"notes,omitempty"`
}

// Approve godoc
// @Summary Approve the request's current step
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param body body approveBody true "Step and notes"
// @Success 200 {object} OnboardingRequest
// @Router /api/requests/{id}/approve [post]
func (c *WorkflowController) Approve(ctx *fiber.Ctx) error {
	var body approveBody
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	cl := claims(ctx)
	req, err := c.Service.Approve(ctx.UserContext(), cl.TenantID, cl.UserID, ctx.Params("id"), body.Step, body.Notes)
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(req)
}

type rejectBody struct {
	Step   int    `json:"step"`
	Reason string `json:"reason"`
}

// Reject godoc
// @Summary Reject the request at its current step
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param body body rejectBody true "Step and reason"
// @Success 200 {object} OnboardingRequest
// @Router /api/requests/{id}/reject [post]
func (c *WorkflowController) Reject(ctx *fiber.Ctx) error {
	var body rejectBody
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Reason == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	cl := claims(ctx)
	req, err := c.Service.Reject(ctx.UserContext(), cl.TenantID, cl.UserID, ctx.Params("id"), body.Step, body.Reason)
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(req)
}

// Cancel godoc
// @Summary Cancel a non-terminal request
// @Tags requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} OnboardingRequest
// @Router /api/requests/{id}/cancel [post]
func (c *WorkflowController) Cancel(ctx *fiber.Ctx) error {
	cl := claims(ctx)
	req, err := c.Service.Cancel(ctx.UserContext(), cl.TenantID, cl.UserID, ctx.Params("id"))
	if err != nil {
		return transitionErrorResponse(ctx, err)
	}
	return ctx.JSON(req)
}

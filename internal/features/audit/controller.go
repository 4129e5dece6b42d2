package audit

import (
	"go-onboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs for the tenant
// @Tags audit
// @Produce json
// @Param entity query string false "Filter by entity"
// @Param record_id query string false "Filter by record id"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {array} models.AuditLog
// @Router /api/audit [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	filters := bson.M{}
	if entity := ctx.Query("entity"); entity != "" {
		filters["entity"] = entity
	}
	if recordID := ctx.Query("record_id"); recordID != "" {
		filters["record_id"] = recordID
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 50))

	logs, err := c.Service.ListLogs(ctx.UserContext(), claims.TenantID, filters, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}

package audit

import (
	"go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, cfg *config.Config) api.Route {
	return &AuditApi{controller: controller, config: cfg}
}

func (a *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/", a.controller.ListLogs)
}

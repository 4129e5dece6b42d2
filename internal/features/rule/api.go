package rule

import (
	"go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RuleApi struct {
	controller *RuleController
	config     *config.Config
}

func NewRuleApi(controller *RuleController, cfg *config.Config) api.Route {
	return &RuleApi{controller: controller, config: cfg}
}

func (r *RuleApi) Setup(app *fiber.App) {
	group := app.Group("/api/rules", middleware.AuthMiddleware(r.config.SkipAuth))

	group.Post("/evaluate", r.controller.Evaluate)
	group.Post("/", r.controller.CreateRule)
	group.Get("/", r.controller.ListRules)
	group.Get("/:id", r.controller.GetRule)
	group.Put("/:id", r.controller.UpdateRule)
	group.Delete("/:id", r.controller.DeleteRule)
}

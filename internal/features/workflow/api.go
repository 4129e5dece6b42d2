package workflow

import (
	"go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, cfg *config.Config) api.Route {
	return &WorkflowApi{controller: controller, config: cfg}
}

func (w *WorkflowApi) Setup(app *fiber.App) {
	configs := app.Group("/api/workflows", middleware.AuthMiddleware(w.config.SkipAuth))
	configs.Get("/health", w.controller.Health)
	configs.Post("/", w.controller.CreateConfig)
	configs.Get("/", w.controller.ListConfigs)
	configs.Get("/:id", w.controller.GetConfig)
	configs.Put("/:id", w.controller.UpdateConfig)
	configs.Delete("/:id", w.controller.DeleteConfig)
	configs.Post("/:id/first-step", w.controller.SetFirstStep)
	configs.Post("/:id/reorder", w.controller.ReorderSteps)

	requests := app.Group("/api/requests", middleware.AuthMiddleware(w.config.SkipAuth))
	requests.Post("/", w.controller.CreateRequest)
	requests.Get("/", w.controller.ListRequests)
	requests.Get("/:id", w.controller.GetRequest)
	requests.Post("/:id/approve", w.controller.Approve)
	requests.Post("/:id/reject", w.controller.Reject)
	requests.Post("/:id/cancel", w.controller.Cancel)
}

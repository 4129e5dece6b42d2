package group

import (
	"go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type GroupApi struct {
	controller *GroupController
	config     *config.Config
}

func NewGroupApi(controller *GroupController, cfg *config.Config) api.Route {
	return &GroupApi{controller: controller, config: cfg}
}

func (g *GroupApi) Setup(app *fiber.App) {
	group := app.Group("/api/groups", middleware.AuthMiddleware(g.config.SkipAuth))

	group.Post("/", g.controller.CreateGroup)
	group.Get("/", g.controller.ListGroups)
	group.Get("/:id", g.controller.GetGroup)
	group.Put("/:id", g.controller.UpdateGroup)
	group.Delete("/:id", g.controller.DeleteGroup)
	group.Post("/:group_id/members", g.controller.AddMember)
	group.Delete("/:group_id/members/:user_id", g.controller.RemoveMember)
}

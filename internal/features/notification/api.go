package notification

import (
	"go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/middleware"
	"go-onboard/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *NotificationController
	config     *config.Config
}

func NewNotificationApi(controller *NotificationController, cfg *config.Config) api.Route {
	return &NotificationApi{controller: controller, config: cfg}
}

func (n *NotificationApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(n.config.SkipAuth)

	group := app.Group("/api/notifications", auth)
	group.Get("/", n.controller.List)
	group.Get("/unread-count", n.controller.UnreadCount)
	group.Post("/read-all", n.controller.MarkAllAsRead)
	group.Post("/:id/read", n.controller.MarkAsRead)

	app.Get("/api/ws/notifications", auth, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		cl := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		c.Locals("userID", cl.UserID)
		return c.Next()
	}, websocket.New(n.controller.HandleWebSocket))
}

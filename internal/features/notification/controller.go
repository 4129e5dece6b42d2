package notification

import (
	"go-onboard/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type NotificationController struct {
	Service NotificationService
	Hub     *Hub
	Log     *zap.Logger
}

func NewNotificationController(service NotificationService, hub *Hub, log *zap.Logger) *NotificationController {
	return &NotificationController{Service: service, Hub: hub, Log: log}
}

func claims(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

// List godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} fiber.Map
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *fiber.Ctx) error {
	cl := claims(ctx)
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	notifications, total, err := c.Service.ListForUser(ctx.UserContext(), cl.TenantID, cl.UserID, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// UnreadCount godoc
// @Summary Count the caller's unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} fiber.Map
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *fiber.Ctx) error {
	cl := claims(ctx)
	count, err := c.Service.UnreadCount(ctx.UserContext(), cl.TenantID, cl.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary Mark one notification read
// @Tags notifications
// @Param id path string true "Notification id"
// @Success 200 {object} fiber.Map
// @Router /api/notifications/{id}/read [post]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	if err := c.Service.MarkAsRead(ctx.UserContext(), ctx.Params("id"), claims(ctx).UserID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// MarkAllAsRead godoc
// @Summary Mark all of the caller's notifications read
// @Tags notifications
// @Success 200 {object} fiber.Map
// @Router /api/notifications/read-all [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	cl := claims(ctx)
	if err := c.Service.MarkAllAsRead(ctx.UserContext(), cl.TenantID, cl.UserID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// HandleWebSocket keeps the connection registered for pushes until the
// client goes away. Inbound messages are ignored.
func (c *NotificationController) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("userID").(string)
	if userID == "" {
		conn.Close()
		return
	}

	c.Hub.Register(userID, conn)
	defer func() {
		c.Hub.Unregister(userID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

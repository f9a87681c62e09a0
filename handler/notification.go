package handler

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grocery_store/model"
	"grocery_store/service"
	"grocery_store/utils"
)

type NotificationService interface {
	List(ctx context.Context, recipientID uint, page service.Page) (service.NotificationPage, error)
	MarkRead(ctx context.Context, id, recipientID uint) error
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
	Delete(ctx context.Context, id, recipientID uint) error
}

// LiveFeed opens the pub/sub channel of one recipient.
type LiveFeed interface {
	Subscribe(ctx context.Context, recipientID uint) *redis.PubSub
}

type NotificationHandler struct {
	notifications NotificationService
	feed          LiveFeed
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationService, feed LiveFeed, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{notifications: notifications, feed: feed, logger: logger}
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	page, err := h.notifications.List(c.UserContext(), currentUserID(c), pageFrom(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       page.Notifications,
		Limit:      utils.Ptr(page.Limit),
		Page:       utils.Ptr(page.Page),
		TotalCount: page.Total,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkRead(c.UserContext(), c.Locals("inputId").(uint), currentUserID(c)); err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, nil)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.notifications.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"updated": n})
}

func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	if err := h.notifications.Delete(c.UserContext(), c.Locals("inputId").(uint), currentUserID(c)); err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, nil)
}

// UpgradeLive lets only websocket handshakes through to Live.
func UpgradeLive(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Live streams the caller's new notifications as JSON text frames until either side hangs up.
func (h *NotificationHandler) Live(conn *websocket.Conn) {
	recipientID, _ := conn.Locals("userId").(uint)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.feed.Subscribe(ctx, recipientID)
	defer pubsub.Close()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Debug("live feed write failed", zap.Uint("recipient_id", recipientID), zap.Error(err))
				return
			}
		}
	}
}

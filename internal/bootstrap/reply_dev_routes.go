package bootstrap

import (
	"context"
	"strings"

	"reply_server/adapter/in/http"
	"reply_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// RegisterDevRoutes mounts the reply and settings routes under /dev without
// authentication, acting as devUserID.
// WARNING: Only enable in development environment!
func RegisterDevRoutes(app *fiber.App, deps *Dependencies, devUserID string) {
	devUserID = strings.TrimSpace(devUserID)
	if devUserID == "" {
		return
	}

	dev := app.Group("/dev")

	// Middleware to inject the dev user
	dev.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", devUserID)
		c.SetUserContext(context.WithValue(c.UserContext(), logger.UserIDKey, devUserID))
		return c.Next()
	})

	http.NewReplyHandler(deps.ReplyService, deps.ThreadBuilder).Register(dev)
	http.NewSettingsHandler(deps.SettingsService).Register(dev)

	logger.Warn("[DevTest] unauthenticated /dev routes enabled for user %s", devUserID)
}

package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"reply_server/pkg/apperr"
)

// GetUserID extracts the authenticated user id set by the auth middleware
func GetUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return "", apperr.ErrUnauthorized
	}
	return userID, nil
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// parseBody decodes a JSON body, mapping decode failures to BAD_REQUEST.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return apperr.BadRequest("request body is required")
	}
	if err := c.BodyParser(dest); err != nil {
		return apperr.BadRequest("invalid request body").WithError(err)
	}
	return nil
}

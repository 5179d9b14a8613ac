package utils

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a success JSON response
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	statusCode := fiber.StatusOK
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends an error JSON response for an APIError. The body
// carries the stable machine-checkable code plus the minimal client
// message; details are included only when the error defines them.
func ErrorResponse(c *fiber.Ctx, apiErr *APIError) error {
	body := fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	}
	if apiErr.Details != nil {
		body["error"].(fiber.Map)["details"] = apiErr.Details
	}

	return c.Status(apiErr.Status).JSON(body)
}

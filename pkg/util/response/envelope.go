// Package response writes the uniform success envelope.
package response

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultCreatedMessage = "Resource created successfully"

var now = time.Now

// Meta carries envelope metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the body shape for every successful response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    Meta   `json:"meta"`
}

// OK writes a 200 envelope.
func OK(c *fiber.Ctx, message string, data any) error {
	return write(c, http.StatusOK, message, data)
}

// Created writes a 201 envelope, falling back to a default message.
func Created(c *fiber.Ctx, message string, data any) error {
	if message == "" {
		message = defaultCreatedMessage
	}
	return write(c, http.StatusCreated, message, data)
}

// NoContent writes a 204 with a JSON envelope body anyway. fasthttp drops
// bodies on 204, so clients usually see an empty response.
func NoContent(c *fiber.Ctx, message string) error {
	return write(c, http.StatusNoContent, message, nil)
}

func write(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    Meta{Timestamp: now().UTC()},
	})
}

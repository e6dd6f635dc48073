package nethttp

import "github.com/gofiber/fiber/v2"

// OK responds 200 with the given payload.
func OK(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusOK).JSON(payload)
}

// Created responds 201 with the given payload.
func Created(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusCreated).JSON(payload)
}

// NoContent responds 204 with an empty body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// BadRequest responds 400 with the given error payload.
func BadRequest(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusBadRequest).JSON(payload)
}

// Unauthorized responds 401.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// Forbidden responds 403.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// NotFound responds 404.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// Conflict responds 409.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusConflict).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// UnprocessableEntity responds 422.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// InternalServerError responds 500.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ResponseError{Code: code, Title: title, Message: message})
}

// JSONResponseError responds using the status code carried by a
// ResponseError built elsewhere (e.g. a downstream ERP gateway error).
func JSONResponseError(c *fiber.Ctx, rErr ResponseError) error {
	status := rErr.StatusCode
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(rErr)
}

// ResponseError is the JSON body returned to clients for any mapped error.
type ResponseError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (r ResponseError) Error() string { return r.Message }

// ValidationKnownFieldsError reports a bad request with per-field detail.
type ValidationKnownFieldsError struct {
	Code    string            `json:"code,omitempty"`
	Title   string            `json:"title,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (r ValidationKnownFieldsError) Error() string { return r.Message }

// FlowPolicyResponseError is the body returned when a command is rejected
// by the flow policy engine — it tells the client what it CAN do.
type FlowPolicyResponseError struct {
	Code           string   `json:"code,omitempty"`
	Title          string   `json:"title,omitempty"`
	Message        string   `json:"message,omitempty"`
	Stage          string   `json:"stage,omitempty"`
	Status         string   `json:"status,omitempty"`
	AllowedActions []string `json:"allowedActions,omitempty"`
	PrimaryAction  string   `json:"primaryAction,omitempty"`
}

func (r FlowPolicyResponseError) Error() string { return r.Message }

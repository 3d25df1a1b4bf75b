package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/boxwatch/boxwatch/internal/apperror"
)

// ErrorBody is the JSON body of every failed API call.
type ErrorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Fail writes an ErrorBody with status.
func Fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorBody{OK: false, Error: msg})
}

// FailErr maps err to a status: validation errors are 400, fiber errors keep their code,
// everything else is 500 and gets logged.
func FailErr(c *fiber.Ctx, err error) error {
	var fe *fiber.Error

	switch {
	case apperror.IsValidation(err):
		return Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &fe):
		return Fail(c, fe.Code, fe.Message)
	default:
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
		return Fail(c, fiber.StatusInternalServerError, err.Error())
	}
}

// ErrorHandler is the fiber app error handler; it keeps error responses in the ErrorBody shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return FailErr(c, err)
}

package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/repositories"
	"alfredoptarigan/interview-panel/internal/services"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// StatusFor maps service and core errors onto HTTP status codes.
func StatusFor(err error) int {
	var (
		parseErr *interview.ParseError
		genErr   *interview.GenerationError
	)

	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, repositories.ErrBuildNotFound),
		errors.Is(err, repositories.ErrDocumentNotFound):
		return fiber.StatusNotFound
	case interview.IsStateError(err):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrEmptyInput):
		return fiber.StatusBadRequest
	case errors.As(err, &parseErr), errors.As(err, &genErr):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "Validation failed",
		"details": validationDetails(err),
	})
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		details = append(details, msg)
	}
	return details
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationError(c echo.Context, details ...FieldError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"message": "Validation error",
		"details": details,
	})
}

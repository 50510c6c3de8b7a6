package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusResponse is the webhook success envelope.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the error envelope used on every failure path.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusOK writes a 200 with the given status token.
func StatusOK(c echo.Context, status string) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: status})
}

// ErrorJSON writes an error envelope with the given HTTP code.
func ErrorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, ErrorResponse{Error: msg})
}

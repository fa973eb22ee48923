package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness checks for the booking service.  It does not
// touch the database; a degraded dependency shows up in logs and
// metrics, not here.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

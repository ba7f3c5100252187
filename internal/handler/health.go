package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RootMessage is the fixed confirmation string served at "/".
const RootMessage = "🚀 Go + MongoDB Notes service is running!"

// Root and Health answer without touching MongoDB, so both return 200
// even while the database is unreachable.  Root is the human-facing
// confirmation; Health is the terse probe for load balancers.
func Root(c echo.Context) error {
    return c.String(http.StatusOK, RootMessage)
}

func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

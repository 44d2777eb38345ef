package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderRequestID carries the correlation id clients attach to requests.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware echoes the caller's correlation id back on the
// response, minting one when the caller sent none, so client retries and
// server logs can be matched up.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
				c.Request().Header.Set(HeaderRequestID, rid)
			}
			c.Response().Header().Set(HeaderRequestID, rid)
			return next(c)
		}
	}
}

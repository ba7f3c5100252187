package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs one entry per request once the response is final.
// Handler errors are passed to the echo error handler first so the logged
// status matches what the client received.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()

            if err := next(c); err != nil {
                c.Error(err)
            }

            req := c.Request()
            res := c.Response()
            log.Info("HTTP Request",
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.Int("status", res.Status),
                zap.Int64("bytes", res.Size),
                zap.Duration("duration", time.Since(start)),
                zap.String("remoteIP", c.RealIP()),
                zap.String("userAgent", req.UserAgent()),
            )
            return nil
        }
    }
}

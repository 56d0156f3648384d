package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/logger"
)

const maxRequestIDLen = 64

// RequestLogger tags every request with an id (the caller's X-Request-ID
// when it looks sane, a new UUID otherwise), puts a logger carrying that id
// into the request context and writes one access log line per request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" || len(id) > maxRequestIDLen {
                id = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)

            l := base.With(slog.String("request_id", id))
            c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))

            if err := next(c); err != nil {
                // Let the error handler write the response so the status is known.
                c.Error(err)
            }

            status := c.Response().Status
            attrs := []any{
                slog.String("method", req.Method),
                slog.String("path", req.URL.Path),
                slog.String("route", c.Path()),
                slog.Int("status", status),
                slog.Duration("duration", time.Since(start)),
                slog.String("ip", c.RealIP()),
            }
            if uid, ok := UserID(c); ok {
                attrs = append(attrs, slog.Uint64("user_id", uid))
            }
            switch {
            case status >= 500:
                l.Error("request", attrs...)
            case status >= 400:
                l.Warn("request", attrs...)
            default:
                l.Info("request", attrs...)
            }
            return nil
        }
    }
}

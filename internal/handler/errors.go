package handler

import (
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/logger"
    "github.com/iliyamo/recruitment-api/internal/service"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
    Error   string            `json:"error"`
    Message string            `json:"message"`
    Fields  map[string]string `json:"fields,omitempty"`
}

var kindStatus = map[service.Kind]int{
    service.KindValidation:  http.StatusBadRequest,
    service.KindDuplicate:   http.StatusBadRequest,
    service.KindAuth:        http.StatusUnauthorized,
    service.KindNotFound:    http.StatusNotFound,
    service.KindPermission:  http.StatusForbidden,
    service.KindUnavailable: http.StatusBadGateway,
    service.KindInternal:    http.StatusInternalServerError,
}

// errorResponse maps err to a status code and body.  Internal details are
// never put in the body.
func errorResponse(err error) (int, ErrorBody) {
    var se *service.Error
    if errors.As(err, &se) {
        status := kindStatus[se.Kind]
        if se.Kind == service.KindInternal {
            return status, ErrorBody{Error: "internal_error", Message: "Something went wrong, please try again later."}
        }
        return status, ErrorBody{Error: se.Code, Message: se.Message, Fields: se.Fields}
    }

    var he *echo.HTTPError
    if errors.As(err, &he) {
        msg := http.StatusText(he.Code)
        if m, ok := he.Message.(string); ok && m != "" {
            msg = m
        } else if he.Message != nil {
            msg = fmt.Sprint(he.Message)
        }
        code := strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
        if code == "" {
            code = "error"
        }
        return he.Code, ErrorBody{Error: code, Message: msg}
    }

    return http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "Something went wrong, please try again later."}
}

// HTTPErrorHandler writes service and echo errors as ErrorBody and logs
// server-side failures with their cause.
func HTTPErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    status, body := errorResponse(err)
    if status >= http.StatusInternalServerError {
        logger.FromContext(c.Request().Context()).Error("request failed",
            slog.Int("status", status), slog.Any("err", err))
    }

    var werr error
    if c.Request().Method == http.MethodHead {
        werr = c.NoContent(status)
    } else {
        werr = c.JSON(status, body)
    }
    if werr != nil {
        logger.FromContext(c.Request().Context()).Warn("write error response", slog.Any("err", werr))
    }
}

// badRequest reports a malformed parameter or body.
func badRequest(field, msg string) error {
    return &service.Error{Kind: service.KindValidation, Code: "invalid_input", Message: msg,
        Fields: map[string]string{field: msg}}
}

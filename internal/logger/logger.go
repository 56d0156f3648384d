// Package logger wraps log/slog with the output format chosen per
// environment and a request-scoped logger carried in context.
package logger

import (
    "context"
    "io"
    "log/slog"
    "os"
    "sync"
)

var (
    mu  sync.RWMutex
    std *slog.Logger
)

// Init builds the process logger.  Development environments get a readable
// text handler at debug level; everything else gets JSON at info level.
func Init(env string) *slog.Logger {
    return InitWriter(env, os.Stdout)
}

// InitWriter is Init with an explicit destination.
func InitWriter(env string, w io.Writer) *slog.Logger {
    opts := &slog.HandlerOptions{Level: slog.LevelInfo}

    var h slog.Handler
    switch env {
    case "dev", "development", "local":
        opts.Level = slog.LevelDebug
        h = slog.NewTextHandler(w, opts)
    default:
        h = slog.NewJSONHandler(w, opts)
    }

    l := slog.New(h)
    mu.Lock()
    std = l
    mu.Unlock()
    slog.SetDefault(l)
    return l
}

// L returns the process logger, falling back to slog's default when Init
// has not run (tests, small tools).
func L() *slog.Logger {
    mu.RLock()
    l := std
    mu.RUnlock()
    if l == nil {
        return slog.Default()
    }
    return l
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
    return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger stored by the request-id
// middleware, or the process logger.
func FromContext(ctx context.Context) *slog.Logger {
    if ctx != nil {
        if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
            return l
        }
    }
    return L()
}

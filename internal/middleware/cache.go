package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/recruitment-api/internal/config"
    "github.com/iliyamo/recruitment-api/internal/logger"
)

// captureWriter copies up to limit bytes of the body while forwarding it to
// the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    switch {
    case cw.limit <= 0:
        cw.buf.Write(b)
    case cw.size < cw.limit:
        remain := cw.limit - cw.size
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// cacheKeyFrom hashes the route pattern and raw query under cfg.Prefix and
// the current content version.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, version int64) string {
    tail := strings.Join([]string{"route", c.Path(), "path", c.Request().URL.Path, "q", c.Request().URL.RawQuery}, ":")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:v%d:%x", cfg.Prefix, version, sum[:])
}

// versionKey holds a counter that is part of every cache key.  Bumping it
// orphans all stored responses; they age out through their TTL.
func versionKey(cfg config.CacheConfig) string { return cfg.Prefix + ":version" }

func cacheVersion(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) (int64, error) {
    v, err := rdb.Get(ctx, versionKey(cfg)).Int64()
    if err == redis.Nil {
        return 0, nil
    }
    return v, err
}

// InvalidateCache makes every response cached so far unreachable.
func InvalidateCache(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) error {
    if rdb == nil {
        return nil
    }
    return rdb.Incr(ctx, versionKey(cfg)).Err()
}

// NewCacheInvalidator bumps the cache version after every successful
// write that passes through it.  The bump runs just before the status line
// is sent, so a client that sees the response never reads stale content.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            switch c.Request().Method {
            case http.MethodGet, http.MethodHead, http.MethodOptions:
                return next(c)
            }
            res := c.Response()
            res.Before(func() {
                if res.Status >= http.StatusBadRequest {
                    return
                }
                ctx := c.Request().Context()
                if err := InvalidateCache(context.WithoutCancel(ctx), cfg, rdb); err != nil {
                    logger.FromContext(ctx).Warn("cache invalidation failed", slog.Any("err", err))
                }
            })
            return next(c)
        }
    }
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache serves repeated anonymous reads of public routes from
// Redis.  Only 200 responses are stored.  Requests with an Authorization
// header always reach the handler because privileged callers may see
// drafts and members see personalised flags.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get(echo.HeaderAuthorization) != "" {
                return next(c)
            }

            ctx := req.Context()
            version, err := cacheVersion(ctx, cfg, rdb)
            if err != nil {
                logger.FromContext(ctx).Warn("cache read failed", slog.Any("err", err))
                return next(c)
            }
            key := cacheKeyFrom(cfg, c, version)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, err := c.Response().Write(body)
                    return err
                }
            } else if err != redis.Nil {
                logger.FromContext(ctx).Warn("cache read failed", slog.Any("err", err))
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated() {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                logger.FromContext(ctx).Warn("cache write failed", slog.Any("err", err))
            }
            return nil
        }
    }
}

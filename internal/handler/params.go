package handler

import (
    "context"
    "math"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Paging turns page and page_size query values into bounds.  A page below
// one becomes one; a size outside 1..max falls back to def (non-positive or
// malformed) or max (too large).  Absurdly large pages are clamped so the
// offset stays representable.
type Paging struct {
    Default int
    Max     int
}

func (p Paging) parse(c echo.Context) (page, size int) {
    page, err := strconv.Atoi(c.QueryParam("page"))
    if err != nil || page < 1 {
        page = 1
    }
    size, err = strconv.Atoi(c.QueryParam("page_size"))
    switch {
    case err != nil || size < 1:
        size = p.Default
    case p.Max > 0 && size > p.Max:
        size = p.Max
    }
    // keep (page-1)*size inside an SQL OFFSET
    if size > 0 && page > math.MaxInt32/size {
        page = math.MaxInt32 / size
    }
    return page, size
}

// pageBody is the JSON envelope of every paginated list.
type pageBody[T any] struct {
    Items    []T   `json:"items"`
    Total    int64 `json:"total"`
    Page     int   `json:"page"`
    PageSize int   `json:"page_size"`
}

func newPage[T any](items []T, total int64, page, size int) pageBody[T] {
    if items == nil {
        items = []T{}
    }
    return pageBody[T]{Items: items, Total: total, Page: page, PageSize: size}
}

func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, badRequest(name, "Invalid id")
    }
    return id, nil
}

func queryFloat(c echo.Context, name string) (*float64, error) {
    s := strings.TrimSpace(c.QueryParam(name))
    if s == "" {
        return nil, nil
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return nil, badRequest(name, "Enter a number")
    }
    return &v, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
    s := strings.TrimSpace(c.QueryParam(name))
    if s == "" {
        return nil, nil
    }
    v, err := strconv.ParseBool(s)
    if err != nil {
        return nil, badRequest(name, "Enter true or false")
    }
    return &v, nil
}

// firstQuery returns the first non-empty value among names.
func firstQuery(c echo.Context, names ...string) string {
    for _, n := range names {
        if v := strings.TrimSpace(c.QueryParam(n)); v != "" {
            return v
        }
    }
    return ""
}

func utoa(v uint64) string { return strconv.FormatUint(v, 10) }

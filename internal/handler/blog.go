package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/service"
)

// BlogHandler serves published posts and categories.
type BlogHandler struct {
    Content *service.ContentCatalog
    Paging  Paging
}

func NewBlogHandler(content *service.ContentCatalog, paging Paging) *BlogHandler {
    return &BlogHandler{Content: content, Paging: paging}
}

func (h *BlogHandler) list(c echo.Context, privileged bool) error {
    page, size := h.Paging.parse(c)
    f := service.PostFilter{
        Category: firstQuery(c, "category", "categories__slug"),
        Query:    firstQuery(c, "q", "search"),
        Ordering: strings.TrimSpace(c.QueryParam("ordering")),
        Page:     page,
        PageSize: size,
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    res, err := h.Content.List(ctx, f, privileged)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, newPage(toPosts(res.Items), res.Total, res.Page, res.PageSize))
}

// List returns published posts, newest first by default.
func (h *BlogHandler) List(c echo.Context) error { return h.list(c, false) }

// Detail returns one published post with content and tags.
func (h *BlogHandler) Detail(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Content.GetBySlug(ctx, c.Param("slug"), false)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toPostDetail(p))
}

// Recent returns the five newest published posts.
func (h *BlogHandler) Recent(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    ps, err := h.Content.Recent(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toPosts(ps))
}

// Categories lists every category as name and slug.
func (h *BlogHandler) Categories(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    cats, err := h.Content.Categories(ctx)
    if err != nil {
        return err
    }
    type item struct {
        Name string `json:"name"`
        Slug string `json:"slug"`
    }
    out := make([]item, 0, len(cats))
    for _, cat := range cats {
        out = append(out, item{Name: cat.Name, Slug: cat.Slug})
    }
    return c.JSON(http.StatusOK, out)
}

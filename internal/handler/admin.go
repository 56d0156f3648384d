package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/service"
    "github.com/iliyamo/recruitment-api/internal/storage"
)

// AdminHandler serves the staff back office: listings, applications,
// accounts and blog content.
type AdminHandler struct {
    Identity     *service.IdentityService
    Listings     *service.ListingCatalog
    Applications *service.ApplicationWorkflow
    Content      *service.ContentCatalog
    Paging       Paging
    MaxUpload    int64
    Now          func() time.Time
}

func NewAdminHandler(identity *service.IdentityService, listings *service.ListingCatalog,
    applications *service.ApplicationWorkflow, content *service.ContentCatalog, paging Paging, maxUpload int64) *AdminHandler {
    return &AdminHandler{
        Identity:     identity,
        Listings:     listings,
        Applications: applications,
        Content:      content,
        Paging:       paging,
        MaxUpload:    maxUpload,
        Now:          time.Now,
    }
}

type activeReq struct {
    IsActive *bool `json:"is_active"`
}

func (r activeReq) value() (bool, error) {
    if r.IsActive == nil {
        return false, badRequest("is_active", "This field is required")
    }
    return *r.IsActive, nil
}

// ----- listings -----

// ListJobs lists every listing, inactive ones included; ?is_active filters.
func (h *AdminHandler) ListJobs(c echo.Context) error {
    f, err := listingFilter(c, h.Paging)
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    res, err := h.Listings.List(ctx, f, true)
    if err != nil {
        return err
    }
    now := h.Now()
    items := make([]listingDTO, 0, len(res.Items))
    for _, l := range res.Items {
        items = append(items, toListing(l, now, false))
    }
    return c.JSON(http.StatusOK, newPage(items, res.Total, res.Page, res.PageSize))
}

func (h *AdminHandler) GetJob(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    l, err := h.Listings.GetByID(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toListing(l, h.Now(), false))
}

func (h *AdminHandler) CreateJob(c echo.Context) error {
    var in service.ListingInput
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    l, err := h.Listings.Create(ctx, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, toListing(l, h.Now(), false))
}

func (h *AdminHandler) UpdateJob(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var in service.ListingInput
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    l, err := h.Listings.Update(ctx, id, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toListing(l, h.Now(), false))
}

// SetJobActive publishes or hides a listing.
func (h *AdminHandler) SetJobActive(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req activeReq
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    active, err := req.value()
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    l, err := h.Listings.SetActive(ctx, id, active)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toListing(l, h.Now(), false))
}

// DeleteJob removes a listing and, with it, all of its applications.
func (h *AdminHandler) DeleteJob(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Listings.Delete(ctx, id); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}

// ----- applications -----

// JobApplications pages through one listing's applications; ?status
// filters.
func (h *AdminHandler) JobApplications(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    page, size := h.Paging.parse(c)
    ctx, cancel := requestContext(c)
    defer cancel()

    res, err := h.Applications.ListForListing(ctx, id, strings.TrimSpace(c.QueryParam("status")), page, size)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, newPage(toApplications(res.Items), res.Total, res.Page, res.PageSize))
}

func (h *AdminHandler) GetApplication(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Applications.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toApplication(a))
}

func (h *AdminHandler) SetApplicationStatus(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req struct {
        Status string `json:"status"`
    }
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Applications.SetStatus(ctx, id, req.Status)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toApplication(a))
}

// ----- accounts -----

func (h *AdminHandler) ListAccounts(c echo.Context) error {
    page, size := h.Paging.parse(c)
    ctx, cancel := requestContext(c)
    defer cancel()

    items, total, err := h.Identity.ListAccounts(ctx, strings.TrimSpace(c.QueryParam("q")), page, size)
    if err != nil {
        return err
    }
    out := make([]accountDTO, 0, len(items))
    for _, a := range items {
        out = append(out, toAccount(a))
    }
    return c.JSON(http.StatusOK, newPage(out, total, page, size))
}

// SetAccountActive deactivates or reactivates an account.
func (h *AdminHandler) SetAccountActive(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req activeReq
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    active, err := req.value()
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Identity.SetActive(ctx, id, active)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAccount(a))
}

func (h *AdminHandler) SetAccountRoles(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req struct {
        IsStaff     bool `json:"is_staff"`
        IsSuperuser bool `json:"is_superuser"`
    }
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Identity.SetRoles(ctx, id, req.IsStaff, req.IsSuperuser)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAccount(a))
}

// ----- taxonomy and authors -----

func (h *AdminHandler) CreateCategory(c echo.Context) error {
    var in service.TermInput
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    cat, err := h.Content.CreateCategory(ctx, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, termDTO{ID: cat.ID, Name: cat.Name, Slug: cat.Slug})
}

func (h *AdminHandler) CreateTag(c echo.Context) error {
    var in service.TermInput
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    t, err := h.Content.CreateTag(ctx, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, termDTO{ID: t.ID, Name: t.Name, Slug: t.Slug})
}

func (h *AdminHandler) ListTags(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    tags, err := h.Content.Tags(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, tagTerms(tags))
}

func (h *AdminHandler) ListAuthors(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    as, err := h.Content.Authors(ctx)
    if err != nil {
        return err
    }
    out := make([]authorDTO, 0, len(as))
    for _, a := range as {
        out = append(out, toAuthor(a))
    }
    return c.JSON(http.StatusOK, out)
}

// CreateAuthor accepts JSON, or multipart with an "avatar" file.
func (h *AdminHandler) CreateAuthor(c echo.Context) error {
    var (
        in     service.AuthorInput
        avatar *service.Upload
    )
    if isMultipart(c) {
        id, err := formUint(c, "account_id", true)
        if err != nil {
            return err
        }
        in = service.AuthorInput{AccountID: id, Bio: c.FormValue("bio")}
        up, closeFn, err := formUpload(c, "avatar", storage.FolderAuthors, h.MaxUpload)
        defer closeFn()
        if err != nil {
            return err
        }
        avatar = up
    } else if err := bindJSON(c, &in); err != nil {
        return err
    }

    ctx, cancel := requestContext(c)
    defer cancel()
    a, err := h.Content.CreateAuthor(ctx, in, avatar)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, toAuthor(a))
}

// ----- posts -----

// ListPosts lists every post, drafts included.
func (h *AdminHandler) ListPosts(c echo.Context) error {
    return (&BlogHandler{Content: h.Content, Paging: h.Paging}).list(c, true)
}

func (h *AdminHandler) GetPost(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Content.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toPostDetail(p))
}

// bindPost reads a post from JSON or from a multipart form with an "image"
// file.  The returned close func must always be called.
func (h *AdminHandler) bindPost(c echo.Context) (service.PostInput, *service.Upload, func(), error) {
    noop := func() {}
    var in service.PostInput
    if !isMultipart(c) {
        return in, nil, noop, bindJSON(c, &in)
    }

    authorID, err := formUint(c, "author_id", true)
    if err != nil {
        return in, nil, noop, err
    }
    date, err := parseDate("date", c.FormValue("date"))
    if err != nil {
        return in, nil, noop, err
    }
    cats, err := formIDs(c, "categories")
    if err != nil {
        return in, nil, noop, err
    }
    tags, err := formIDs(c, "tags")
    if err != nil {
        return in, nil, noop, err
    }
    in = service.PostInput{
        Title:       c.FormValue("title"),
        Description: c.FormValue("description"),
        Content:     c.FormValue("content"),
        AuthorID:    authorID,
        CategoryIDs: cats,
        TagIDs:      tags,
        Date:        date,
        Draft:       c.FormValue("draft") == "true",
    }
    image, closeFn, err := formUpload(c, "image", storage.FolderBlog, h.MaxUpload)
    return in, image, closeFn, err
}

func (h *AdminHandler) CreatePost(c echo.Context) error {
    in, image, closeFn, err := h.bindPost(c)
    defer closeFn()
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Content.CreatePost(ctx, in, image)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, toPostDetail(p))
}

func (h *AdminHandler) UpdatePost(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    in, image, closeFn, err := h.bindPost(c)
    defer closeFn()
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Content.UpdatePost(ctx, id, in, image)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toPostDetail(p))
}

// SetPostDraft hides ({"draft": true}) or publishes a post.
func (h *AdminHandler) SetPostDraft(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req struct {
        Draft *bool `json:"draft"`
    }
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    if req.Draft == nil {
        return badRequest("draft", "This field is required")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Content.SetDraft(ctx, id, *req.Draft)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toPostDetail(p))
}

func (h *AdminHandler) DeletePost(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Content.DeletePost(ctx, id); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}

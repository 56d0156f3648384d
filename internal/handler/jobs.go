package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/middleware"
    "github.com/iliyamo/recruitment-api/internal/model"
    "github.com/iliyamo/recruitment-api/internal/service"
    "github.com/iliyamo/recruitment-api/internal/storage"
)

// JobsHandler serves job listings to the public and applications to
// members.
type JobsHandler struct {
    Listings     *service.ListingCatalog
    Applications *service.ApplicationWorkflow
    Paging       Paging
    MaxUpload    int64
    Now          func() time.Time
}

func NewJobsHandler(listings *service.ListingCatalog, applications *service.ApplicationWorkflow, paging Paging, maxUpload int64) *JobsHandler {
    return &JobsHandler{Listings: listings, Applications: applications, Paging: paging, MaxUpload: maxUpload, Now: time.Now}
}

// listingFilter reads the list query.  category and job_type are
// synonyms, as are q and search.
func listingFilter(c echo.Context, paging Paging) (service.ListingFilter, error) {
    page, size := paging.parse(c)
    f := service.ListingFilter{
        Category: firstQuery(c, "job_type", "category"),
        Location: c.QueryParam("location"),
        Query:    firstQuery(c, "q", "search"),
        Ordering: strings.TrimSpace(c.QueryParam("ordering")),
        Page:     page,
        PageSize: size,
    }
    var err error
    if f.MinSalary, err = queryFloat(c, "min_salary"); err != nil {
        return f, err
    }
    if f.MaxSalary, err = queryFloat(c, "max_salary"); err != nil {
        return f, err
    }
    if f.Active, err = queryBool(c, "is_active"); err != nil {
        return f, err
    }
    return f, nil
}

// appliedTo returns which of ls the caller applied to; anonymous callers
// get an empty set.
func (h *JobsHandler) appliedTo(ctx context.Context, c echo.Context, ls []model.Listing) (map[uint64]bool, error) {
    uid, ok := middleware.UserID(c)
    if !ok || len(ls) == 0 {
        return map[uint64]bool{}, nil
    }
    ids := make([]uint64, 0, len(ls))
    for _, l := range ls {
        ids = append(ids, l.ID)
    }
    return h.Applications.AppliedAmong(ctx, uid, ids)
}

func (h *JobsHandler) list(c echo.Context, privileged bool) error {
    f, err := listingFilter(c, h.Paging)
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    res, err := h.Listings.List(ctx, f, privileged)
    if err != nil {
        return err
    }
    applied, err := h.appliedTo(ctx, c, res.Items)
    if err != nil {
        return err
    }
    now := h.Now()
    items := make([]listingDTO, 0, len(res.Items))
    for _, l := range res.Items {
        items = append(items, toListing(l, now, applied[l.ID]))
    }
    return c.JSON(http.StatusOK, newPage(items, res.Total, res.Page, res.PageSize))
}

// List returns active listings with filters, search, ordering and paging.
func (h *JobsHandler) List(c echo.Context) error { return h.list(c, false) }

// Detail returns one active listing by slug.
func (h *JobsHandler) Detail(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    l, err := h.Listings.GetBySlug(ctx, c.Param("slug"), false)
    if err != nil {
        return err
    }
    applied, err := h.appliedTo(ctx, c, []model.Listing{l})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toListing(l, h.Now(), applied[l.ID]))
}

// Suggestions returns autocomplete values for the search box.
func (h *JobsHandler) Suggestions(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    out, err := h.Listings.Suggestions(ctx, c.QueryParam("q"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// Apply accepts a multipart application with a resume file.
func (h *JobsHandler) Apply(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    if !isMultipart(c) {
        return badRequest("resume", "Submit the application as multipart/form-data")
    }

    listingID, err := formUint(c, "job", true)
    if err != nil {
        return err
    }
    years, err := formUint(c, "years_of_experience", false)
    if err != nil {
        return err
    }
    in := service.ApplyInput{
        ListingID:         listingID,
        CoverLetter:       c.FormValue("cover_letter"),
        YearsOfExperience: int(min(years, 1000)),
        LinkedInURL:       c.FormValue("linkedin_url"),
        PortfolioURL:      c.FormValue("portfolio_url"),
    }

    resume, closeFn, err := formUpload(c, "resume", storage.FolderResumes, h.MaxUpload)
    defer closeFn()
    if err != nil {
        return err
    }

    ctx, cancel := requestContext(c)
    defer cancel()
    a, err := h.Applications.Apply(ctx, uid, in, resume)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "detail":      "Application submitted successfully!",
        "application": toApplication(a),
    })
}

// MyApplications pages through the caller's applications.
func (h *JobsHandler) MyApplications(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    page, size := h.Paging.parse(c)
    ctx, cancel := requestContext(c)
    defer cancel()

    res, err := h.Applications.ListMine(ctx, uid, page, size)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, newPage(toApplications(res.Items), res.Total, res.Page, res.PageSize))
}

// CheckApplication reports whether the caller applied to an active listing.
func (h *JobsHandler) CheckApplication(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    applied, a, err := h.Applications.CheckApplied(ctx, uid, id)
    if err != nil {
        return err
    }
    if !applied {
        return c.JSON(http.StatusOK, echo.Map{"has_applied": false})
    }
    return c.JSON(http.StatusOK, echo.Map{"has_applied": true, "application": toApplication(*a)})
}

// Resume returns a short-lived download link for an application's resume.
// The applicant and staff may fetch it.
func (h *JobsHandler) Resume(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    url, err := h.Applications.DocumentURL(ctx, id, uid, middleware.Role(c))
    if err != nil {
        return err
    }
    if c.QueryParam("redirect") == "true" {
        return c.Redirect(http.StatusFound, url)
    }
    return c.JSON(http.StatusOK, echo.Map{"url": url})
}

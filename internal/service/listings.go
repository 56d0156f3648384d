package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/storage"
	"github.com/iliyamo/recruitment-api/internal/utils"
)

// ListingStore is the persistence the listing catalog needs.
type ListingStore interface {
	Insert(ctx context.Context, l *model.Listing) error
	Update(ctx context.Context, l model.Listing) error
	SetActive(ctx context.Context, id uint64, active bool) error
	Delete(ctx context.Context, id uint64) ([]string, error)
	GetBySlug(ctx context.Context, slug string, includeInactive bool) (model.Listing, error)
	GetByID(ctx context.Context, id uint64) (model.Listing, error)
	Search(ctx context.Context, q repository.ListingQuery) ([]model.Listing, int64, error)
	Suggest(ctx context.Context, column, q string, limit int) ([]string, error)
}

// ListingInput is the write model for creating or editing a listing.
type ListingInput struct {
	Title        string        `json:"title" validate:"notblank,max=200"`
	Company      string        `json:"company" validate:"notblank,max=200"`
	Location     string        `json:"location" validate:"notblank,max=200"`
	Category     model.JobType `json:"job_type" validate:"job_type"`
	SalaryMin    *float64      `json:"salary_min" validate:"omitempty,gte=0,lt=100000000"`
	SalaryMax    *float64      `json:"salary_max" validate:"omitempty,gte=0,lt=100000000"`
	Description  string        `json:"description" validate:"notblank"`
	Requirements string        `json:"requirements" validate:"notblank"`
	IsActive     *bool         `json:"is_active"`
}

// ListingFilter selects listings for List.
type ListingFilter struct {
	Category  string
	Location  string
	Active    *bool // honoured for privileged callers only
	MinSalary *float64
	MaxSalary *float64
	Query     string
	Ordering  string
	Page      int
	PageSize  int
}

// Suggestion limits.
const (
	SuggestMinQuery  = 2
	suggestPerColumn = 5
	suggestMax       = 10
)

// ListingCatalog manages job listings.
type ListingCatalog struct {
	listings ListingStore
	objects  storage.ObjectStore
}

func NewListingCatalog(listings ListingStore, objects storage.ObjectStore) *ListingCatalog {
	return &ListingCatalog{listings: listings, objects: objects}
}

func (in *ListingInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Location = strings.TrimSpace(in.Location)
	in.Category = model.JobType(strings.ToLower(strings.TrimSpace(string(in.Category))))
}

func (in ListingInput) validate() error {
	if err := check(in); err != nil {
		return err
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		return fieldError("salary_max", "Must be greater than or equal to salary_min")
	}
	return nil
}

func (in ListingInput) apply(l *model.Listing) {
	l.Title = in.Title
	l.Company = in.Company
	l.Location = in.Location
	l.Category = in.Category
	l.SalaryMin = in.SalaryMin
	l.SalaryMax = in.SalaryMax
	l.Description = in.Description
	l.Requirements = in.Requirements
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
}

// Create stores a new listing with a unique slug derived from title and
// company.
func (s *ListingCatalog) Create(ctx context.Context, in ListingInput) (model.Listing, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return model.Listing{}, err
	}
	l := model.Listing{IsActive: true}
	in.apply(&l)

	base := utils.Slugify(in.Title + " " + in.Company)
	err := assignSlug(ctx, base, func(slug string) error {
		l.Slug = slug
		return s.listings.Insert(ctx, &l)
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return model.Listing{}, se
		}
		return model.Listing{}, internal("insert listing", err)
	}
	logger.FromContext(ctx).Info("listing created", slog.Uint64("listing_id", l.ID), slog.String("slug", l.Slug))
	return s.GetByID(ctx, l.ID)
}

// Update rewrites the editable fields.  The slug is kept so existing links
// stay valid.
func (s *ListingCatalog) Update(ctx context.Context, id uint64, in ListingInput) (model.Listing, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return model.Listing{}, err
	}
	l, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Listing{}, err
	}
	in.apply(&l)
	if err := s.listings.Update(ctx, l); err != nil {
		return model.Listing{}, internal("update listing", err)
	}
	return s.GetByID(ctx, id)
}

// SetActive publishes or hides a listing.
func (s *ListingCatalog) SetActive(ctx context.Context, id uint64, active bool) (model.Listing, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return model.Listing{}, err
	}
	if err := s.listings.SetActive(ctx, id, active); err != nil {
		return model.Listing{}, internal("set listing active", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the listing together with its applications, then deletes
// the resumes those applications referenced.
func (s *ListingCatalog) Delete(ctx context.Context, id uint64) error {
	docs, err := s.listings.Delete(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound("job_not_found", "Job not found", err)
	}
	if err != nil {
		return internal("delete listing", err)
	}
	for _, d := range docs {
		discardObject(ctx, s.objects, d)
	}
	logger.FromContext(ctx).Info("listing deleted", slog.Uint64("listing_id", id), slog.Int("applications", len(docs)))
	return nil
}

// GetBySlug returns an active listing, or any listing for privileged
// callers.
func (s *ListingCatalog) GetBySlug(ctx context.Context, slug string, privileged bool) (model.Listing, error) {
	l, err := s.listings.GetBySlug(ctx, slug, privileged)
	if errors.Is(err, repository.ErrListingNotFound) {
		return l, notFound("job_not_found", "Job not found", err)
	}
	if err != nil {
		return l, internal("get listing", err)
	}
	return l, nil
}

// GetByID returns a listing regardless of its active flag.
func (s *ListingCatalog) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return l, notFound("job_not_found", "Job not found", err)
	}
	if err != nil {
		return l, internal("get listing", err)
	}
	return l, nil
}

// List filters listings.  Anonymous and member callers only ever see active
// listings.
func (s *ListingCatalog) List(ctx context.Context, f ListingFilter, privileged bool) (Page[model.Listing], error) {
	q := repository.ListingQuery{
		Location:   strings.TrimSpace(f.Location),
		MinSalary:  f.MinSalary,
		MaxSalary:  f.MaxSalary,
		Search:     strings.TrimSpace(f.Query),
		Ordering:   f.Ordering,
		Page:       f.Page,
		PageSize:   f.PageSize,
		ActiveOnly: !privileged,
	}
	if privileged {
		q.Active = f.Active
	}
	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		if !model.JobType(c).Valid() {
			return Page[model.Listing]{}, fieldError("job_type", "Must be one of full_time, part_time, contract, internship, remote")
		}
		q.Category = model.JobType(c)
	}
	if !repository.ValidListingOrdering(q.Ordering) {
		q.Ordering = "-created_at"
	}

	items, total, err := s.listings.Search(ctx, q)
	if err != nil {
		return Page[model.Listing]{}, internal("search listings", err)
	}
	return Page[model.Listing]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Suggestions returns up to ten distinct titles, companies and locations of
// active listings containing q, in that order.  Queries shorter than two
// characters return nothing.
func (s *ListingCatalog) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	out := []string{}
	if len([]rune(q)) < SuggestMinQuery {
		return out, nil
	}
	seen := map[string]bool{}
	for _, col := range []string{"title", "company", "location"} {
		vals, err := s.listings.Suggest(ctx, col, q, suggestPerColumn)
		if err != nil {
			return nil, internal("suggest "+col, err)
		}
		for _, v := range vals {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
			if len(out) == suggestMax {
				return out, nil
			}
		}
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/queue"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/storage"
)

// ApplicationStore is the persistence the application workflow needs.
type ApplicationStore interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id uint64) (model.Application, error)
	GetFor(ctx context.Context, accountID, listingID uint64) (model.Application, error)
	Exists(ctx context.Context, accountID, listingID uint64) (bool, error)
	AppliedAmong(ctx context.Context, accountID uint64, listingIDs []uint64) (map[uint64]bool, error)
	ListByAccount(ctx context.Context, accountID uint64, page, size int) ([]model.Application, int64, error)
	ListByListing(ctx context.Context, listingID uint64, status model.ApplicationStatus, page, size int) ([]model.Application, int64, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ApplicationStatus) error
}

// EventPublisher delivers application events.  Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ApplicationEvent) error
}

// ApplyInput is the write model for an application.  The resume travels
// separately as an Upload.
type ApplyInput struct {
	ListingID         uint64 `json:"job" validate:"required"`
	CoverLetter       string `json:"cover_letter" validate:"max=10000"`
	YearsOfExperience int    `json:"years_of_experience" validate:"gte=0,lte=80"`
	LinkedInURL       string `json:"linkedin_url" validate:"omitempty,url,max=200"`
	PortfolioURL      string `json:"portfolio_url" validate:"omitempty,url,max=200"`
}

const msgAlreadyApplied = "You have already applied to this job."

// ApplicationWorkflow lets members apply to listings and staff review the
// applications.
type ApplicationWorkflow struct {
	applications ApplicationStore
	listings     ListingStore
	objects      storage.ObjectStore
	events       EventPublisher
	now          func() time.Time
}

func NewApplicationWorkflow(applications ApplicationStore, listings ListingStore, objects storage.ObjectStore, events EventPublisher) *ApplicationWorkflow {
	return &ApplicationWorkflow{
		applications: applications,
		listings:     listings,
		objects:      objects,
		events:       events,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (w *ApplicationWorkflow) activeListing(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := w.listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) || (err == nil && !l.IsActive) {
		return l, notFound("job_not_found", "Job not found", err)
	}
	if err != nil {
		return l, internal("get listing", err)
	}
	return l, nil
}

// Apply stores the resume and records the application.  The resume is
// uploaded before the row is written; when the row cannot be written the
// upload is deleted again, so an application never points at a missing
// document and a failed upload never leaves a row behind.
func (w *ApplicationWorkflow) Apply(ctx context.Context, accountID uint64, in ApplyInput, resume *Upload) (model.Application, error) {
	in.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	in.PortfolioURL = strings.TrimSpace(in.PortfolioURL)
	if err := check(in); err != nil {
		return model.Application{}, err
	}
	if resume == nil || resume.Body == nil {
		return model.Application{}, fieldError("resume", "This field is required")
	}

	l, err := w.activeListing(ctx, in.ListingID)
	if err != nil {
		return model.Application{}, err
	}
	// Early answer for the common case; the unique index still decides races.
	exists, err := w.applications.Exists(ctx, accountID, l.ID)
	if err != nil {
		return model.Application{}, internal("check application", err)
	}
	if exists {
		return model.Application{}, duplicate("already_applied", msgAlreadyApplied, repository.ErrAlreadyApplied)
	}

	obj, err := putObject(ctx, w.objects, storage.FolderResumes, *resume)
	if err != nil {
		return model.Application{}, err
	}

	a := model.Application{
		ListingID:         l.ID,
		AccountID:         accountID,
		DocumentID:        obj.ID,
		DocumentURL:       obj.URL,
		CoverLetter:       in.CoverLetter,
		YearsOfExperience: in.YearsOfExperience,
		LinkedInURL:       in.LinkedInURL,
		PortfolioURL:      in.PortfolioURL,
		Status:            model.StatusPending,
	}
	if err := w.applications.Create(ctx, &a); err != nil {
		discardObject(ctx, w.objects, obj.ID)
		switch {
		case errors.Is(err, repository.ErrAlreadyApplied):
			return model.Application{}, duplicate("already_applied", msgAlreadyApplied, err)
		case errors.Is(err, repository.ErrListingNotFound):
			return model.Application{}, notFound("job_not_found", "Job not found", err)
		}
		return model.Application{}, internal("create application", err)
	}

	now := w.now()
	a.AppliedAt, a.UpdatedAt = now, now
	a.ListingTitle, a.ListingCompany, a.ListingSlug = l.Title, l.Company, l.Slug

	logger.FromContext(ctx).Info("application submitted",
		slog.Uint64("application_id", a.ID), slog.Uint64("listing_id", l.ID), slog.Uint64("account_id", accountID))
	w.publish(ctx, queue.ApplicationEvent{
		Type:          queue.ApplicationSubmitted,
		ApplicationID: a.ID,
		ListingID:     l.ID,
		ListingTitle:  l.Title,
		Company:       l.Company,
		AccountID:     accountID,
		Status:        string(a.Status),
		OccurredAt:    now,
	})
	return a, nil
}

func (w *ApplicationWorkflow) publish(ctx context.Context, ev queue.ApplicationEvent) {
	if w.events == nil {
		return
	}
	if err := w.events.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("application event dropped", slog.String("event", ev.Type), slog.Any("err", err))
	}
}

// Get returns a single application.
func (w *ApplicationWorkflow) Get(ctx context.Context, id uint64) (model.Application, error) {
	a, err := w.applications.GetByID(ctx, id)
	if errors.Is(err, repository.ErrApplicationNotFound) {
		return a, notFound("application_not_found", "Application not found", err)
	}
	if err != nil {
		return a, internal("get application", err)
	}
	return a, nil
}

// SetStatus moves an application to any status.
func (w *ApplicationWorkflow) SetStatus(ctx context.Context, id uint64, raw string) (model.Application, error) {
	status, ok := model.ParseStatus(raw)
	if !ok {
		return model.Application{}, fieldError("status", "Must be one of pending, reviewed, accepted, rejected")
	}
	a, err := w.Get(ctx, id)
	if err != nil {
		return a, err
	}
	prev := a.Status
	if err := w.applications.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return a, notFound("application_not_found", "Application not found", err)
		}
		return a, internal("update application status", err)
	}
	a.Status = status
	a.UpdatedAt = w.now()

	if prev != status {
		logger.FromContext(ctx).Info("application status changed",
			slog.Uint64("application_id", id), slog.String("from", string(prev)), slog.String("to", string(status)))
		w.publish(ctx, queue.ApplicationEvent{
			Type:           queue.ApplicationStatusChanged,
			ApplicationID:  a.ID,
			ListingID:      a.ListingID,
			ListingTitle:   a.ListingTitle,
			Company:        a.ListingCompany,
			AccountID:      a.AccountID,
			Status:         string(status),
			PreviousStatus: string(prev),
			OccurredAt:     a.UpdatedAt,
		})
	}
	return a, nil
}

// ListMine pages through the caller's own applications, newest first.
func (w *ApplicationWorkflow) ListMine(ctx context.Context, accountID uint64, page, size int) (Page[model.Application], error) {
	items, total, err := w.applications.ListByAccount(ctx, accountID, page, size)
	if err != nil {
		return Page[model.Application]{}, internal("list applications", err)
	}
	return Page[model.Application]{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// CheckApplied reports whether accountID applied to an active listing and
// returns the application when it did.
func (w *ApplicationWorkflow) CheckApplied(ctx context.Context, accountID, listingID uint64) (bool, *model.Application, error) {
	if _, err := w.activeListing(ctx, listingID); err != nil {
		return false, nil, err
	}
	a, err := w.applications.GetFor(ctx, accountID, listingID)
	if errors.Is(err, repository.ErrApplicationNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, internal("check application", err)
	}
	return true, &a, nil
}

// AppliedAmong returns which of listingIDs accountID applied to.
func (w *ApplicationWorkflow) AppliedAmong(ctx context.Context, accountID uint64, listingIDs []uint64) (map[uint64]bool, error) {
	if accountID == 0 || len(listingIDs) == 0 {
		return map[uint64]bool{}, nil
	}
	m, err := w.applications.AppliedAmong(ctx, accountID, listingIDs)
	if err != nil {
		return nil, internal("applied among", err)
	}
	return m, nil
}

// ListForListing pages through the applications of one listing, optionally
// restricted to a status.
func (w *ApplicationWorkflow) ListForListing(ctx context.Context, listingID uint64, status string, page, size int) (Page[model.Application], error) {
	var st model.ApplicationStatus
	if status != "" {
		var ok bool
		if st, ok = model.ParseStatus(status); !ok {
			return Page[model.Application]{}, fieldError("status", "Must be one of pending, reviewed, accepted, rejected")
		}
	}
	if _, err := w.listings.GetByID(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return Page[model.Application]{}, notFound("job_not_found", "Job not found", err)
		}
		return Page[model.Application]{}, internal("get listing", err)
	}
	items, total, err := w.applications.ListByListing(ctx, listingID, st, page, size)
	if err != nil {
		return Page[model.Application]{}, internal("list applications", err)
	}
	return Page[model.Application]{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// DocumentURL returns a short-lived download link for the resume.  Only the
// applicant and staff may fetch it.
func (w *ApplicationWorkflow) DocumentURL(ctx context.Context, id, callerID uint64, role string) (string, error) {
	a, err := w.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if a.AccountID != callerID && !model.IsPrivileged(role) {
		return "", forbidden("You do not have permission to view this document")
	}
	url, err := w.objects.SignedURL(ctx, a.DocumentID, true)
	if errors.Is(err, storage.ErrNotFound) {
		return "", notFound("document_not_found", "Document not found", err)
	}
	if err != nil {
		return "", unavailable("storage_unavailable", "Document storage is unavailable", err)
	}
	return url, nil
}

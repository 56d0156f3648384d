package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/recruitment-api/internal/model"
)

const applicationColumns = `a.id,a.listing_id,a.account_id,a.document_id,a.document_url,a.cover_letter,
	a.years_of_experience,a.linkedin_url,a.portfolio_url,a.status,a.applied_at,a.updated_at,
	l.title,l.company,l.slug,u.email,u.first_name,u.last_name`

const applicationFrom = ` FROM applications a
	JOIN listings l ON l.id = a.listing_id
	JOIN accounts u ON u.id = a.account_id`

// ApplicationRepo persists rows of the applications table.
type ApplicationRepo struct{ db *sql.DB }

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

func scanApplication(row interface{ Scan(...any) error }) (model.Application, error) {
	var (
		a           model.Application
		status      string
		first, last string
	)
	err := row.Scan(&a.ID, &a.ListingID, &a.AccountID, &a.DocumentID, &a.DocumentURL, &a.CoverLetter,
		&a.YearsOfExperience, &a.LinkedInURL, &a.PortfolioURL, &status, &a.AppliedAt, &a.UpdatedAt,
		&a.ListingTitle, &a.ListingCompany, &a.ListingSlug, &a.ApplicantEmail, &first, &last)
	if err != nil {
		return a, err
	}
	a.Status = model.ApplicationStatus(status)
	a.ApplicantName = strings.TrimSpace(first + " " + last)
	return a, nil
}

// Create inserts a and sets a.ID.  The unique (listing_id, account_id)
// index is the authority on duplicates: a second insert for the same pair
// returns ErrAlreadyApplied no matter how the callers raced.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	if a.Status == "" {
		a.Status = model.StatusPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (listing_id,account_id,document_id,document_url,cover_letter,
		        years_of_experience,linkedin_url,portfolio_url,status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ListingID, a.AccountID, a.DocumentID, a.DocumentURL, a.CoverLetter,
		a.YearsOfExperience, a.LinkedInURL, a.PortfolioURL, string(a.Status))
	if err != nil {
		if isDuplicate(err, "uq_applications_listing_account") {
			return ErrAlreadyApplied
		}
		if isMissingReference(err) {
			return ErrListingNotFound
		}
		return fmt.Errorf("insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an application with its listing and applicant columns.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (model.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+applicationFrom+" WHERE a.id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrApplicationNotFound
	}
	return a, err
}

// GetFor fetches the account's application to the listing.
func (r *ApplicationRepo) GetFor(ctx context.Context, accountID, listingID uint64) (model.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+applicationFrom+" WHERE a.account_id=? AND a.listing_id=? LIMIT 1",
		accountID, listingID))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrApplicationNotFound
	}
	return a, err
}

// Exists reports whether the account has applied to the listing.
func (r *ApplicationRepo) Exists(ctx context.Context, accountID, listingID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE account_id=? AND listing_id=?",
		accountID, listingID).Scan(&n)
	return n > 0, err
}

// AppliedAmong returns the subset of listingIDs the account has applied to.
func (r *ApplicationRepo) AppliedAmong(ctx context.Context, accountID uint64, listingIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(listingIDs)), ",")
	args := make([]any, 0, len(listingIDs)+1)
	args = append(args, accountID)
	for _, id := range listingIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT listing_id FROM applications WHERE account_id=? AND listing_id IN ("+ph+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ListByAccount returns the account's applications, newest first.
func (r *ApplicationRepo) ListByAccount(ctx context.Context, accountID uint64, page, size int) ([]model.Application, int64, error) {
	return r.list(ctx, "a.account_id=?", []any{accountID}, page, size)
}

// ListByListing returns applications to a listing, optionally filtered by
// status, newest first.
func (r *ApplicationRepo) ListByListing(ctx context.Context, listingID uint64, status model.ApplicationStatus, page, size int) ([]model.Application, int64, error) {
	cond := "a.listing_id=?"
	args := []any{listingID}
	if status != "" {
		cond += " AND a.status=?"
		args = append(args, string(status))
	}
	return r.list(ctx, cond, args, page, size)
}

func (r *ApplicationRepo) list(ctx context.Context, cond string, args []any, page, size int) ([]model.Application, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM applications a WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(page, size)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+applicationColumns+applicationFrom+" WHERE "+cond+" ORDER BY a.applied_at DESC, a.id DESC LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Application, 0, limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateStatus sets the review status.
func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ApplicationStatus) error {
	_, err := r.db.ExecContext(ctx, "UPDATE applications SET status=? WHERE id=?", string(status), id)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/recruitment-api/internal/model"
)

const listingColumns = "id,title,company,location,category,salary_min,salary_max,description,requirements,is_active,slug,created_at,updated_at"

// ListingRepo persists rows of the listings table.
type ListingRepo struct{ db *sql.DB }

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// ListingQuery defines filters & pagination for listing search.
type ListingQuery struct {
	Category   model.JobType
	Location   string
	ActiveOnly bool
	Active     *bool // explicit filter for privileged callers; ignored when ActiveOnly
	MinSalary  *float64
	MaxSalary  *float64
	Search     string
	Ordering   string
	Page       int
	PageSize   int
}

// listingOrderings maps accepted ordering values to SQL.  The id tiebreak
// keeps pages stable when timestamps collide.
var listingOrderings = map[string]string{
	"created_at":  "created_at ASC, id ASC",
	"-created_at": "created_at DESC, id DESC",
	"salary_min":  "salary_min IS NULL, salary_min ASC, id DESC",
	"-salary_min": "salary_min DESC, id DESC",
	"salary_max":  "salary_max IS NULL, salary_max ASC, id DESC",
	"-salary_max": "salary_max DESC, id DESC",
}

// ValidListingOrdering reports whether o is an accepted ordering value.
func ValidListingOrdering(o string) bool {
	_, ok := listingOrderings[o]
	return ok
}

func scanListing(row interface{ Scan(...any) error }) (model.Listing, error) {
	var (
		l        model.Listing
		lo, hi   sql.NullFloat64
		category string
	)
	err := row.Scan(&l.ID, &l.Title, &l.Company, &l.Location, &category, &lo, &hi,
		&l.Description, &l.Requirements, &l.IsActive, &l.Slug, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	l.Category = model.JobType(category)
	if lo.Valid {
		v := lo.Float64
		l.SalaryMin = &v
	}
	if hi.Valid {
		v := hi.Float64
		l.SalaryMax = &v
	}
	return l, nil
}

// Insert writes l with the slug it carries and sets l.ID.  A slug collision
// returns ErrSlugTaken and leaves nothing behind.
func (r *ListingRepo) Insert(ctx context.Context, l *model.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (title,company,location,category,salary_min,salary_max,description,requirements,is_active,slug)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		l.Title, l.Company, l.Location, string(l.Category), l.SalaryMin, l.SalaryMax,
		l.Description, l.Requirements, l.IsActive, l.Slug)
	if err != nil {
		if isDuplicate(err, "uq_listings_slug") {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// Update rewrites the editable columns.  The slug is never changed.
func (r *ListingRepo) Update(ctx context.Context, l model.Listing) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE listings SET title=?, company=?, location=?, category=?, salary_min=?, salary_max=?,
		        description=?, requirements=?, is_active=?
		 WHERE id=?`,
		l.Title, l.Company, l.Location, string(l.Category), l.SalaryMin, l.SalaryMax,
		l.Description, l.Requirements, l.IsActive, l.ID)
	return err
}

// SetActive toggles the listing's visibility.
func (r *ListingRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE listings SET is_active=? WHERE id=?", active, id)
	return err
}

// Delete removes the listing and its applications in one transaction and
// returns the document ids those applications referenced so the caller can
// clean up the object store.
func (r *ListingRepo) Delete(ctx context.Context, id uint64) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM listings WHERE id=? FOR UPDATE", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, "SELECT document_id FROM applications WHERE listing_id=? FOR UPDATE", id)
	if err != nil {
		return nil, err
	}
	var docs []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return nil, err
		}
		if d != "" {
			docs = append(docs, d)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// The FK cascade would remove these too; deleting explicitly keeps the
	// behaviour independent of the engine's FK settings.
	if _, err := tx.ExecContext(ctx, "DELETE FROM applications WHERE listing_id=?", id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM listings WHERE id=?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return docs, nil
}

// GetBySlug fetches a listing by slug.  Inactive listings are returned only
// when includeInactive is set.
func (r *ListingRepo) GetBySlug(ctx context.Context, slug string, includeInactive bool) (model.Listing, error) {
	q := "SELECT " + listingColumns + " FROM listings WHERE slug=?"
	if !includeInactive {
		q += " AND is_active=1"
	}
	l, err := scanListing(r.db.QueryRowContext(ctx, q+" LIMIT 1", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrListingNotFound
	}
	return l, err
}

// GetByID fetches a listing by id regardless of its active flag.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrListingNotFound
	}
	return l, err
}

// Search returns one page of listings matching q and the total match count.
func (r *ListingRepo) Search(ctx context.Context, q ListingQuery) ([]model.Listing, int64, error) {
	where := []string{}
	args := []any{}

	switch {
	case q.ActiveOnly:
		where = append(where, "is_active=1")
	case q.Active != nil:
		where = append(where, "is_active=?")
		args = append(args, *q.Active)
	}
	if q.Category != "" {
		where = append(where, "category=?")
		args = append(args, string(q.Category))
	}
	if q.Location != "" {
		where = append(where, "location=?")
		args = append(args, q.Location)
	}
	if q.MinSalary != nil {
		where = append(where, "salary_min >= ?")
		args = append(args, *q.MinSalary)
	}
	if q.MaxSalary != nil {
		where = append(where, "salary_max <= ?")
		args = append(args, *q.MaxSalary)
	}
	if q.Search != "" {
		where = append(where,
			"(LOWER(title) LIKE ? OR LOWER(company) LIKE ? OR LOWER(description) LIKE ? OR LOWER(requirements) LIKE ?)")
		p := likeArg(q.Search)
		args = append(args, p, p, p, p)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := listingOrderings[q.Ordering]
	if !ok {
		order = listingOrderings["-created_at"]
	}
	limit, offset := pageBounds(q.Page, q.PageSize)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE "+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Listing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// suggestColumns whitelists the columns Suggest may read.
var suggestColumns = map[string]bool{"title": true, "company": true, "location": true}

// Suggest returns up to limit distinct values of column among active
// listings whose value contains q.
func (r *ListingRepo) Suggest(ctx context.Context, column, q string, limit int) ([]string, error) {
	if !suggestColumns[column] {
		return nil, fmt.Errorf("suggest: unsupported column %q", column)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT "+column+" FROM listings WHERE is_active=1 AND LOWER("+column+") LIKE ? ORDER BY "+column+" LIMIT ?",
		likeArg(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

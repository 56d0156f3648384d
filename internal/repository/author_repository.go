package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/recruitment-api/internal/model"
)

const authorSelect = `SELECT au.id,au.account_id,au.bio,au.avatar_id,au.avatar_url,u.first_name,u.last_name,u.email
	FROM authors au JOIN accounts u ON u.id = au.account_id`

// AuthorRepo persists rows of the authors table.
type AuthorRepo struct{ db *sql.DB }

func NewAuthorRepo(db *sql.DB) *AuthorRepo { return &AuthorRepo{db: db} }

func scanAuthor(row interface{ Scan(...any) error }) (model.Author, error) {
	var (
		a           model.Author
		first, last string
	)
	if err := row.Scan(&a.ID, &a.AccountID, &a.Bio, &a.AvatarID, &a.AvatarURL, &first, &last, &a.Email); err != nil {
		return a, err
	}
	a.Name = model.Account{FirstName: first, LastName: last, Email: a.Email}.FullName()
	return a, nil
}

// Create inserts a and sets a.ID.
func (r *AuthorRepo) Create(ctx context.Context, a *model.Author) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO authors (account_id,bio,avatar_id,avatar_url) VALUES (?,?,?,?)",
		a.AccountID, a.Bio, a.AvatarID, a.AvatarURL)
	if err != nil {
		if isDuplicate(err, "uq_authors_account") {
			return ErrAuthorExists
		}
		if isMissingReference(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("insert author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an author joined with the account name.
func (r *AuthorRepo) GetByID(ctx context.Context, id uint64) (model.Author, error) {
	a, err := scanAuthor(r.db.QueryRowContext(ctx, authorSelect+" WHERE au.id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrAuthorNotFound
	}
	return a, err
}

// List returns all authors ordered by id.
func (r *AuthorRepo) List(ctx context.Context) ([]model.Author, error) {
	rows, err := r.db.QueryContext(ctx, authorSelect+" ORDER BY au.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

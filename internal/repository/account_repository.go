package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/recruitment-api/internal/model"
)

const accountColumns = "id,email,password_hash,first_name,last_name,phone_number,is_staff,is_superuser,is_active,created_at,updated_at"

// AccountRepo persists rows of the accounts table.
type AccountRepo struct{ db *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.PhoneNumber,
		&a.IsStaff, &a.IsSuperuser, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts a and sets a.ID.  The email must already be normalised.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email,password_hash,first_name,last_name,phone_number,is_staff,is_superuser,is_active)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.Email, a.PasswordHash, a.FirstName, a.LastName, a.PhoneNumber, a.IsStaff, a.IsSuperuser, a.IsActive)
	if err != nil {
		if isDuplicate(err, "uq_accounts_email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByEmail fetches an account by normalised email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrAccountNotFound
	}
	return a, err
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrAccountNotFound
	}
	return a, err
}

// UpdateProfile rewrites the name and phone fields.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uint64, first, last, phone string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET first_name=?, last_name=?, phone_number=? WHERE id=?",
		first, last, phone, id)
	return err
}

// SetActive flips the soft-deactivation flag.
func (r *AccountRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE accounts SET is_active=? WHERE id=?", active, id)
	return err
}

// SetRoles updates the staff and superuser flags.
func (r *AccountRepo) SetRoles(ctx context.Context, id uint64, staff, superuser bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET is_staff=?, is_superuser=? WHERE id=?", staff, superuser, id)
	return err
}

// SetPassword replaces the stored hash.
func (r *AccountRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
	return err
}

// List returns accounts ordered by newest first, optionally filtered by a
// substring of email or name.
func (r *AccountRepo) List(ctx context.Context, q string, page, size int) ([]model.Account, int64, error) {
	cond := "1=1"
	args := []any{}
	if q = strings.TrimSpace(q); q != "" {
		cond = "(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)"
		p := likeArg(q)
		args = append(args, p, p, p)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(page, size)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE "+cond+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

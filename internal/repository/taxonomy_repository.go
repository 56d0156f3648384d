package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/recruitment-api/internal/model"
)

// TaxonomyRepo persists blog categories and tags.  Both tables share the
// (id, name, unique slug) shape.
type TaxonomyRepo struct{ db *sql.DB }

func NewTaxonomyRepo(db *sql.DB) *TaxonomyRepo { return &TaxonomyRepo{db: db} }

func (r *TaxonomyRepo) insert(ctx context.Context, table, name, slug string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO "+table+" (name,slug) VALUES (?,?)", name, slug)
	if err != nil {
		if isDuplicate(err, "uq_"+table+"_slug") {
			return 0, ErrSlugTaken
		}
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// InsertCategory writes c with its slug and sets c.ID.
func (r *TaxonomyRepo) InsertCategory(ctx context.Context, c *model.Category) error {
	id, err := r.insert(ctx, "categories", c.Name, c.Slug)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// InsertTag writes t with its slug and sets t.ID.
func (r *TaxonomyRepo) InsertTag(ctx context.Context, t *model.Tag) error {
	id, err := r.insert(ctx, "tags", t.Name, t.Slug)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// Categories lists every category ordered by name.
func (r *TaxonomyRepo) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,name,slug FROM categories ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Tags lists every tag ordered by name.
func (r *TaxonomyRepo) Tags(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,name,slug FROM tags ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

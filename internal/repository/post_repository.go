package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/recruitment-api/internal/model"
)

const postColumns = `p.id,p.title,p.slug,p.description,p.content,p.image_id,p.image_url,p.author_id,p.date,p.draft,p.created_at,p.updated_at,
	au.id,au.account_id,au.bio,au.avatar_id,au.avatar_url,u.first_name,u.last_name,u.email`

const postFrom = ` FROM posts p
	JOIN authors au ON au.id = p.author_id
	JOIN accounts u ON u.id = au.account_id`

// PostRepo persists posts and their category/tag links.
type PostRepo struct{ db *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

// PostQuery defines filters & pagination for post listings.
type PostQuery struct {
	CategorySlug  string
	Search        string
	Ordering      string
	IncludeDrafts bool
	Page          int
	PageSize      int
}

var postOrderings = map[string]string{
	"date":        "p.date ASC, p.id ASC",
	"-date":       "p.date DESC, p.id DESC",
	"created_at":  "p.created_at ASC, p.id ASC",
	"-created_at": "p.created_at DESC, p.id DESC",
}

// ValidPostOrdering reports whether o is an accepted ordering value.
func ValidPostOrdering(o string) bool {
	_, ok := postOrderings[o]
	return ok
}

func scanPost(row interface{ Scan(...any) error }) (model.Post, error) {
	var (
		p           model.Post
		first, last string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Content, &p.ImageID, &p.ImageURL,
		&p.AuthorID, &p.Date, &p.Draft, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.AccountID, &p.Author.Bio, &p.Author.AvatarID, &p.Author.AvatarURL,
		&first, &last, &p.Author.Email)
	if err != nil {
		return p, err
	}
	p.Author.Name = model.Account{FirstName: first, LastName: last, Email: p.Author.Email}.FullName()
	return p, nil
}

// Insert writes p and its category/tag links in one transaction and sets
// p.ID.  A slug collision rolls everything back and returns ErrSlugTaken.
func (r *PostRepo) Insert(ctx context.Context, p *model.Post, categoryIDs, tagIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (title,slug,description,content,image_id,image_url,author_id,date,draft)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Title, p.Slug, p.Description, p.Content, p.ImageID, p.ImageURL, p.AuthorID, p.Date, p.Draft)
	if err != nil {
		if isDuplicate(err, "uq_posts_slug") {
			return ErrSlugTaken
		}
		if isMissingReference(err) {
			return ErrAuthorNotFound
		}
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := linkTerms(ctx, tx, uint64(id), categoryIDs, tagIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	p.ID = uint64(id)
	return nil
}

// Update rewrites the editable columns and replaces the category/tag links.
// The slug is never changed.
func (r *PostRepo) Update(ctx context.Context, p model.Post, categoryIDs, tagIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET title=?, description=?, content=?, image_id=?, image_url=?, author_id=?, date=?, draft=?
		 WHERE id=?`,
		p.Title, p.Description, p.Content, p.ImageID, p.ImageURL, p.AuthorID, p.Date, p.Draft, p.ID); err != nil {
		if isMissingReference(err) {
			return ErrAuthorNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE post_id=?", p.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id=?", p.ID); err != nil {
		return err
	}
	if err := linkTerms(ctx, tx, p.ID, categoryIDs, tagIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func linkTerms(ctx context.Context, tx *sql.Tx, postID uint64, categoryIDs, tagIDs []uint64) error {
	for _, cid := range dedupe(categoryIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO post_categories (post_id, category_id) VALUES (?,?)", postID, cid); err != nil {
			if isMissingReference(err) {
				return ErrUnknownReference
			}
			return err
		}
	}
	for _, tid := range dedupe(tagIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO post_tags (post_id, tag_id) VALUES (?,?)", postID, tid); err != nil {
			if isMissingReference(err) {
				return ErrUnknownReference
			}
			return err
		}
	}
	return nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// SetDraft toggles the draft flag.
func (r *PostRepo) SetDraft(ctx context.Context, id uint64, draft bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE posts SET draft=? WHERE id=?", draft, id)
	return err
}

// Delete removes the post; links go with it through the FK cascade.
func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// GetByID fetches a post with author, categories and tags, drafts included.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	return r.getOne(ctx, "p.id=?", id, true)
}

// GetBySlug fetches a post with author, categories and tags.  Drafts are
// reported as missing unless includeDrafts is set.
func (r *PostRepo) GetBySlug(ctx context.Context, slug string, includeDrafts bool) (model.Post, error) {
	return r.getOne(ctx, "p.slug=?", slug, includeDrafts)
}

func (r *PostRepo) getOne(ctx context.Context, cond string, arg any, includeDrafts bool) (model.Post, error) {
	if !includeDrafts {
		cond += " AND p.draft=0"
	}
	p, err := scanPost(r.db.QueryRowContext(ctx, "SELECT "+postColumns+postFrom+" WHERE "+cond+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPostNotFound
	}
	if err != nil {
		return p, err
	}
	posts := []model.Post{p}
	if err := r.attachTerms(ctx, posts); err != nil {
		return p, err
	}
	return posts[0], nil
}

// Search returns one page of posts and the total match count.  Drafts are
// excluded unless q.IncludeDrafts is set.
func (r *PostRepo) Search(ctx context.Context, q PostQuery) ([]model.Post, int64, error) {
	where := []string{}
	args := []any{}
	if !q.IncludeDrafts {
		where = append(where, "p.draft=0")
	}
	if q.CategorySlug != "" {
		where = append(where, `EXISTS (SELECT 1 FROM post_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = ?)`)
		args = append(args, q.CategorySlug)
	}
	if q.Search != "" {
		where = append(where, "(LOWER(p.title) LIKE ? OR LOWER(p.description) LIKE ? OR LOWER(p.content) LIKE ?)")
		pat := likeArg(q.Search)
		args = append(args, pat, pat, pat)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := postOrderings[q.Ordering]
	if !ok {
		order = postOrderings["-date"]
	}
	limit, offset := pageBounds(q.Page, q.PageSize)
	posts, err := r.query(ctx,
		"SELECT "+postColumns+postFrom+" WHERE "+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Recent returns the n newest published posts.
func (r *PostRepo) Recent(ctx context.Context, n int) ([]model.Post, error) {
	return r.query(ctx,
		"SELECT "+postColumns+postFrom+" WHERE p.draft=0 ORDER BY p.date DESC, p.id DESC LIMIT ?", n)
}

func (r *PostRepo) query(ctx context.Context, q string, args ...any) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachTerms(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachTerms loads categories and tags for posts with one query per kind.
func (r *PostRepo) attachTerms(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(posts))
	args := make([]any, 0, len(posts))
	for i, p := range posts {
		idx[p.ID] = i
		args = append(args, p.ID)
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(posts)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT pc.post_id, c.id, c.name, c.slug FROM post_categories pc
		 JOIN categories c ON c.id = pc.category_id
		 WHERE pc.post_id IN (`+ph+`) ORDER BY c.name`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			pid uint64
			c   model.Category
		)
		if err := rows.Scan(&pid, &c.ID, &c.Name, &c.Slug); err != nil {
			rows.Close()
			return err
		}
		i := idx[pid]
		posts[i].Categories = append(posts[i].Categories, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.name, t.slug FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id IN (`+ph+`) ORDER BY t.name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pid uint64
			t   model.Tag
		)
		if err := rows.Scan(&pid, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		i := idx[pid]
		posts[i].Tags = append(posts[i].Tags, t)
	}
	return rows.Err()
}

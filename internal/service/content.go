package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/storage"
	"github.com/iliyamo/recruitment-api/internal/utils"
)

// PostStore persists blog posts.
type PostStore interface {
	Insert(ctx context.Context, p *model.Post, categoryIDs, tagIDs []uint64) error
	Update(ctx context.Context, p model.Post, categoryIDs, tagIDs []uint64) error
	SetDraft(ctx context.Context, id uint64, draft bool) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.Post, error)
	GetBySlug(ctx context.Context, slug string, includeDrafts bool) (model.Post, error)
	Search(ctx context.Context, q repository.PostQuery) ([]model.Post, int64, error)
	Recent(ctx context.Context, n int) ([]model.Post, error)
}

// AuthorStore persists blog authors.
type AuthorStore interface {
	Create(ctx context.Context, a *model.Author) error
	GetByID(ctx context.Context, id uint64) (model.Author, error)
	List(ctx context.Context) ([]model.Author, error)
}

// TaxonomyStore persists categories and tags.
type TaxonomyStore interface {
	InsertCategory(ctx context.Context, c *model.Category) error
	InsertTag(ctx context.Context, t *model.Tag) error
	Categories(ctx context.Context) ([]model.Category, error)
	Tags(ctx context.Context) ([]model.Tag, error)
}

// TermInput names a new category or tag.
type TermInput struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// AuthorInput creates the author profile of an account.
type AuthorInput struct {
	AccountID uint64 `json:"account_id" validate:"required"`
	Bio       string `json:"bio" validate:"max=5000"`
}

// PostInput is the write model for creating or editing a post.
type PostInput struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"notblank,max=500"`
	Content     string     `json:"content" validate:"notblank"`
	AuthorID    uint64     `json:"author_id" validate:"required"`
	CategoryIDs []uint64   `json:"categories"`
	TagIDs      []uint64   `json:"tags"`
	Date        *time.Time `json:"date"`
	Draft       bool       `json:"draft"`
}

// PostFilter selects posts for List.
type PostFilter struct {
	Category string
	Query    string
	Ordering string
	Page     int
	PageSize int
}

// RecentPostCount is the size of the recent posts feed.
const RecentPostCount = 5

// ContentCatalog manages the blog.
type ContentCatalog struct {
	posts    PostStore
	authors  AuthorStore
	taxonomy TaxonomyStore
	objects  storage.ObjectStore
}

func NewContentCatalog(posts PostStore, authors AuthorStore, taxonomy TaxonomyStore, objects storage.ObjectStore) *ContentCatalog {
	return &ContentCatalog{posts: posts, authors: authors, taxonomy: taxonomy, objects: objects}
}

func slugFailure(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal(op, err)
}

// CreateCategory adds a category with a unique slug.
func (c *ContentCatalog) CreateCategory(ctx context.Context, in TermInput) (model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return model.Category{}, err
	}
	cat := model.Category{Name: in.Name}
	err := assignSlug(ctx, utils.Slugify(in.Name), func(slug string) error {
		cat.Slug = slug
		return c.taxonomy.InsertCategory(ctx, &cat)
	})
	if err != nil {
		return model.Category{}, slugFailure("insert category", err)
	}
	return cat, nil
}

// CreateTag adds a tag with a unique slug.
func (c *ContentCatalog) CreateTag(ctx context.Context, in TermInput) (model.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return model.Tag{}, err
	}
	tag := model.Tag{Name: in.Name}
	err := assignSlug(ctx, utils.Slugify(in.Name), func(slug string) error {
		tag.Slug = slug
		return c.taxonomy.InsertTag(ctx, &tag)
	})
	if err != nil {
		return model.Tag{}, slugFailure("insert tag", err)
	}
	return tag, nil
}

func (c *ContentCatalog) Categories(ctx context.Context) ([]model.Category, error) {
	out, err := c.taxonomy.Categories(ctx)
	if err != nil {
		return nil, internal("list categories", err)
	}
	return out, nil
}

func (c *ContentCatalog) Tags(ctx context.Context) ([]model.Tag, error) {
	out, err := c.taxonomy.Tags(ctx)
	if err != nil {
		return nil, internal("list tags", err)
	}
	return out, nil
}

// CreateAuthor gives an account an author profile, optionally with an
// avatar.
func (c *ContentCatalog) CreateAuthor(ctx context.Context, in AuthorInput, avatar *Upload) (model.Author, error) {
	if err := check(in); err != nil {
		return model.Author{}, err
	}
	a := model.Author{AccountID: in.AccountID, Bio: strings.TrimSpace(in.Bio)}
	if avatar != nil {
		obj, err := putObject(ctx, c.objects, storage.FolderAuthors, *avatar)
		if err != nil {
			return model.Author{}, err
		}
		a.AvatarID, a.AvatarURL = obj.ID, obj.URL
	}
	if err := c.authors.Create(ctx, &a); err != nil {
		discardObject(ctx, c.objects, a.AvatarID)
		switch {
		case errors.Is(err, repository.ErrAuthorExists):
			return model.Author{}, duplicate("author_exists", "This account already has an author profile", err)
		case errors.Is(err, repository.ErrAccountNotFound):
			return model.Author{}, fieldError("account_id", "Unknown account")
		}
		return model.Author{}, internal("create author", err)
	}
	out, err := c.authors.GetByID(ctx, a.ID)
	if err != nil {
		return model.Author{}, internal("get author", err)
	}
	return out, nil
}

func (c *ContentCatalog) Authors(ctx context.Context) ([]model.Author, error) {
	out, err := c.authors.List(ctx)
	if err != nil {
		return nil, internal("list authors", err)
	}
	return out, nil
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

func (in PostInput) apply(p *model.Post) {
	p.Title = in.Title
	p.Description = in.Description
	p.Content = in.Content
	p.AuthorID = in.AuthorID
	p.Draft = in.Draft
	if in.Date != nil {
		p.Date = in.Date.UTC()
	}
}

func (c *ContentCatalog) requireAuthor(ctx context.Context, id uint64) error {
	_, err := c.authors.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAuthorNotFound) {
		return fieldError("author_id", "Unknown author")
	}
	if err != nil {
		return internal("get author", err)
	}
	return nil
}

func postWriteFailure(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUnknownReference):
		return validation("invalid_input", "Unknown category or tag",
			map[string]string{"categories": "Unknown category or tag", "tags": "Unknown category or tag"})
	case errors.Is(err, repository.ErrAuthorNotFound):
		return fieldError("author_id", "Unknown author")
	}
	return slugFailure(op, err)
}

// CreatePost stores a post with a unique slug and an optional cover image.
func (c *ContentCatalog) CreatePost(ctx context.Context, in PostInput, image *Upload) (model.Post, error) {
	in.normalize()
	if err := check(in); err != nil {
		return model.Post{}, err
	}
	if err := c.requireAuthor(ctx, in.AuthorID); err != nil {
		return model.Post{}, err
	}

	var p model.Post
	in.apply(&p)
	if image != nil {
		obj, err := putObject(ctx, c.objects, storage.FolderBlog, *image)
		if err != nil {
			return model.Post{}, err
		}
		p.ImageID, p.ImageURL = obj.ID, obj.URL
	}

	err := assignSlug(ctx, utils.Slugify(in.Title), func(slug string) error {
		p.Slug = slug
		return c.posts.Insert(ctx, &p, in.CategoryIDs, in.TagIDs)
	})
	if err != nil {
		discardObject(ctx, c.objects, p.ImageID)
		return model.Post{}, postWriteFailure("insert post", err)
	}
	logger.FromContext(ctx).Info("post created", slog.Uint64("post_id", p.ID), slog.String("slug", p.Slug))
	return c.Get(ctx, p.ID)
}

// UpdatePost rewrites a post.  The slug never changes.  A new image
// replaces the old one, which is deleted after the row is updated.
func (c *ContentCatalog) UpdatePost(ctx context.Context, id uint64, in PostInput, image *Upload) (model.Post, error) {
	in.normalize()
	if err := check(in); err != nil {
		return model.Post{}, err
	}
	p, err := c.Get(ctx, id)
	if err != nil {
		return p, err
	}
	if err := c.requireAuthor(ctx, in.AuthorID); err != nil {
		return model.Post{}, err
	}
	in.apply(&p)

	oldImage := ""
	if image != nil {
		obj, err := putObject(ctx, c.objects, storage.FolderBlog, *image)
		if err != nil {
			return model.Post{}, err
		}
		oldImage = p.ImageID
		p.ImageID, p.ImageURL = obj.ID, obj.URL
	}
	if err := c.posts.Update(ctx, p, in.CategoryIDs, in.TagIDs); err != nil {
		if image != nil {
			discardObject(ctx, c.objects, p.ImageID)
		}
		return model.Post{}, postWriteFailure("update post", err)
	}
	discardObject(ctx, c.objects, oldImage)
	return c.Get(ctx, id)
}

// SetDraft hides or publishes a post.
func (c *ContentCatalog) SetDraft(ctx context.Context, id uint64, draft bool) (model.Post, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return model.Post{}, err
	}
	if err := c.posts.SetDraft(ctx, id, draft); err != nil {
		return model.Post{}, internal("set draft", err)
	}
	return c.Get(ctx, id)
}

// DeletePost removes a post and its cover image.
func (c *ContentCatalog) DeletePost(ctx context.Context, id uint64) error {
	p, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return notFound("post_not_found", "Post not found", err)
		}
		return internal("delete post", err)
	}
	discardObject(ctx, c.objects, p.ImageID)
	return nil
}

// Get returns a post by id, drafts included.
func (c *ContentCatalog) Get(ctx context.Context, id uint64) (model.Post, error) {
	p, err := c.posts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrPostNotFound) {
		return p, notFound("post_not_found", "Post not found", err)
	}
	if err != nil {
		return p, internal("get post", err)
	}
	return p, nil
}

// GetBySlug returns a published post.  Privileged callers also see drafts.
func (c *ContentCatalog) GetBySlug(ctx context.Context, slug string, privileged bool) (model.Post, error) {
	p, err := c.posts.GetBySlug(ctx, slug, privileged)
	if errors.Is(err, repository.ErrPostNotFound) {
		return p, notFound("post_not_found", "Post not found", err)
	}
	if err != nil {
		return p, internal("get post", err)
	}
	return p, nil
}

// List pages through posts.  Drafts are only listed for privileged callers.
func (c *ContentCatalog) List(ctx context.Context, f PostFilter, privileged bool) (Page[model.Post], error) {
	q := repository.PostQuery{
		CategorySlug:  strings.TrimSpace(f.Category),
		Search:        strings.TrimSpace(f.Query),
		Ordering:      f.Ordering,
		IncludeDrafts: privileged,
		Page:          f.Page,
		PageSize:      f.PageSize,
	}
	if !repository.ValidPostOrdering(q.Ordering) {
		q.Ordering = "-date"
	}
	items, total, err := c.posts.Search(ctx, q)
	if err != nil {
		return Page[model.Post]{}, internal("search posts", err)
	}
	return Page[model.Post]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Recent returns the newest published posts.
func (c *ContentCatalog) Recent(ctx context.Context) ([]model.Post, error) {
	out, err := c.posts.Recent(ctx, RecentPostCount)
	if err != nil {
		return nil, internal("recent posts", err)
	}
	return out, nil
}

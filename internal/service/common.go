package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/storage"
	"github.com/iliyamo/recruitment-api/internal/utils"
)

// Page is one page of a listing query.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// Upload is a file received at the API boundary.  Size and type limits are
// enforced before it reaches a service.
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// errSlugExhausted is returned when every candidate of the bounded probe
// was taken.
var errSlugExhausted = &Error{Kind: KindDuplicate, Code: "slug_exhausted",
	Message: "Could not derive a unique slug, choose a different title"}

// assignSlug tries base, base-1, base-2 and so on, calling insert with each
// candidate.  insert must report a slug unique-index hit as
// repository.ErrSlugTaken; any other outcome ends the probe.  Because the
// index decides, two concurrent creators can never end up with one slug.
func assignSlug(ctx context.Context, base string, insert func(slug string) error) error {
	for n := 0; n < utils.MaxSlugAttempts; n++ {
		slug := utils.SlugCandidate(base, n)
		err := insert(slug)
		if !errors.Is(err, repository.ErrSlugTaken) {
			return err
		}
		logger.FromContext(ctx).Debug("slug taken, probing next", slog.String("slug", slug))
	}
	return errSlugExhausted
}

// putObject uploads u into folder.  Any store failure becomes an
// Unavailable error so nothing referencing the object is written.
func putObject(ctx context.Context, store storage.ObjectStore, folder string, u Upload) (storage.Object, error) {
	obj, err := store.Put(ctx, storage.PutInput{
		Body:        u.Body,
		Size:        u.Size,
		ContentType: u.ContentType,
		Folder:      folder,
		Filename:    u.Filename,
	})
	if err != nil {
		return storage.Object{}, unavailable("upload_failed", "Could not store the uploaded file, please try again", err)
	}
	return obj, nil
}

// discardObject deletes an object that is no longer referenced.  Failures
// leave an orphan in the store and are only logged.
func discardObject(ctx context.Context, store storage.ObjectStore, id string) {
	if id == "" {
		return
	}
	if err := store.Delete(context.WithoutCancel(ctx), id); err != nil {
		logger.FromContext(ctx).Warn("object cleanup failed", slog.String("object_id", id), slog.Any("err", err))
	}
}

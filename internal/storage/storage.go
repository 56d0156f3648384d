// Package storage keeps uploaded files (resumes, post images, author
// avatars) outside the database.  Callers only ever hold the object id and
// the URL returned at upload time.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/recruitment-api/internal/config"
)

// Folders used by the API.
const (
	FolderResumes = "resumes"
	FolderBlog    = "blog"
	FolderAuthors = "authors"
)

// ErrNotFound is returned when an object id does not exist.
var ErrNotFound = errors.New("object not found")

// Object is the reference returned by Put.
type Object struct {
	ID  string // folder/uuid.ext, stable handle used for URL and Delete
	URL string // link recorded with the owning row
}

// PutInput describes one upload.
type PutInput struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Folder      string
	Filename    string // original client filename; only its extension is kept
}

// ObjectStore is the narrow interface the services depend on.
type ObjectStore interface {
	Put(ctx context.Context, in PutInput) (Object, error)
	// SignedURL returns a time-limited download link.  With attachment set
	// the link forces a download instead of inline display.
	SignedURL(ctx context.Context, id string, attachment bool) (string, error)
	Delete(ctx context.Context, id string) error
}

// New builds the store selected by cfg.Type.  secret signs local download
// links.
func New(cfg config.StorageConfig, secret string) (ObjectStore, error) {
	expiry := time.Duration(cfg.URLExpiry) * time.Minute
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg.BasePath, cfg.BaseURL, secret, expiry)
	case "s3", "r2", "cloudflare_r2":
		return NewS3Store(cfg, expiry)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// newObjectID returns folder/<uuid><ext> where ext comes from filename.
func newObjectID(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "misc"
	}
	return folder + "/" + uuid.NewString() + ext
}

// validID rejects ids that could escape the store's namespace.
func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return false
	}
	return path.Clean(id) == id && !strings.HasPrefix(id, "..")
}

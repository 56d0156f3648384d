package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStore keeps objects on the local filesystem.  Files are served by
// the API under baseURL; private links carry an expiry and an HMAC
// signature checked by Verify.
type LocalStore struct {
	basePath string
	baseURL  string
	secret   []byte
	expiry   time.Duration
	now      func() time.Time
}

// NewLocalStore creates basePath when missing.  An empty baseURL serves
// objects from /media on the API itself.
func NewLocalStore(basePath, baseURL, secret string, expiry time.Duration) (*LocalStore, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", basePath, err)
	}
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(secret),
		expiry:   expiry,
		now:      time.Now,
	}, nil
}

// Put writes in.Body to a new file.  A partially written file is removed.
func (s *LocalStore) Put(ctx context.Context, in PutInput) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	id := newObjectID(in.Folder, in.Filename)
	full := s.path(id)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("storage: create: %w", err)
	}
	if _, err := io.Copy(f, in.Body); err != nil {
		f.Close()
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("storage: close: %w", err)
	}
	return Object{ID: id, URL: s.baseURL + "/" + id}, nil
}

// SignedURL returns a link valid for the configured expiry.
func (s *LocalStore) SignedURL(ctx context.Context, id string, attachment bool) (string, error) {
	if !validID(id) {
		return "", ErrNotFound
	}
	if _, err := os.Stat(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	exp := s.now().Add(s.expiry).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(exp, 10))
	q.Set("sig", s.sign(id, exp, attachment))
	if attachment {
		q.Set("dl", "1")
	}
	return s.baseURL + "/" + id + "?" + q.Encode(), nil
}

// Verify checks a signed link's query values for id.
func (s *LocalStore) Verify(id, expires, sig string, attachment bool) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || s.now().Unix() > exp {
		return false
	}
	want := s.sign(id, exp, attachment)
	return hmac.Equal([]byte(want), []byte(sig))
}

// Open returns the file for id.
func (s *LocalStore) Open(id string) (*os.File, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the file.  A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(id))
}

func (s *LocalStore) sign(id string, exp int64, attachment bool) string {
	m := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(m, "%s|%d|%t", id, exp, attachment)
	return hex.EncodeToString(m.Sum(nil))
}

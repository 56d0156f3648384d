package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/iliyamo/recruitment-api/internal/config"
)

// S3Store keeps objects in an S3-compatible bucket (AWS, Cloudflare R2,
// MinIO).
type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
	expiry   time.Duration
}

// NewS3Store opens a session for cfg.  A custom endpoint switches to
// path-style addressing, which R2 and MinIO require.
func NewS3Store(cfg config.StorageConfig, expiry time.Duration) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required for s3")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 session: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
		expiry:   expiry,
	}, nil
}

// Put uploads in.Body under a fresh id.
func (s *S3Store) Put(ctx context.Context, in PutInput) (Object, error) {
	id := newObjectID(in.Folder, in.Filename)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(id),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: upload %s: %w", id, err)
	}
	return Object{ID: id, URL: s.baseURL + "/" + id}, nil
}

// SignedURL presigns a GetObject request.  Forced downloads set the
// response Content-Disposition on the signed request.
func (s *S3Store) SignedURL(_ context.Context, id string, attachment bool) (string, error) {
	if !validID(id) {
		return "", ErrNotFound
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	}
	if attachment {
		in.ResponseContentDisposition = aws.String(fmt.Sprintf(`attachment; filename="%s"`, path.Base(id)))
	}
	req, _ := s.client.GetObjectRequest(in)
	u, err := req.Presign(s.expiry)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", id, err)
	}
	return u, nil
}

// Delete removes the object.  A missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

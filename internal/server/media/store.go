// Package media pushes staged upload files to an S3-compatible bucket
// (MinIO, R2, AWS) and removes replaced assets.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/google/uuid"
)

// Delete results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

var ErrNoFile = errors.New("no local file")

// UploadResult describes a stored object.
type UploadResult struct {
	SecureURL string
	Key       string
}

// DeleteResult reports the outcome of a delete; Result is ResultOK or ResultNotFound.
type DeleteResult struct {
	Result string
}

// ObjectAPI is the part of *s3.Client used by the store.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

type S3Store struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	logger    logging.Logger
}

// NewS3Store builds an S3 client from the server configuration.
func NewS3Store(ctx context.Context, c *config.Config, logger logging.Logger) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(c.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	endpoint := strings.TrimSuffix(c.S3BaseEndpoint, "/")
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return NewStore(client, c.S3Bucket, c.S3PublicURL, logger), nil
}

// NewStore wraps an existing client.
func NewStore(client ObjectAPI, bucket, publicURL string, logger logging.Logger) *S3Store {
	if !strings.HasSuffix(publicURL, "/") {
		publicURL += "/"
	}
	return &S3Store{client: client, bucket: bucket, publicURL: publicURL, logger: logger}
}

// ObjectKey returns a fresh key under media/YYYY/M/D keeping the file extension.
// Avatars and cover images share the prefix.
func ObjectKey(localPath string) string {
	d := now()
	ext := strings.ToLower(filepath.Ext(localPath))
	return fmt.Sprintf("media/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// URLFor returns the public URL of key.
func (s *S3Store) URLFor(key string) string {
	return s.publicURL + key
}

// KeyFromURL derives the object key from a public URL. It returns "" for URLs
// that were not produced by this store.
func (s *S3Store) KeyFromURL(assetURL string) string {
	key, ok := strings.CutPrefix(assetURL, s.publicURL)
	if !ok {
		return ""
	}
	return key
}

// Upload stores the file at localPath and returns its public URL.
// The local file is left in place; the caller owns the staging area.
func (s *S3Store) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := ObjectKey(localPath)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	res := &UploadResult{SecureURL: s.URLFor(key), Key: key}
	s.logger.Debug(ctx, "file uploaded", "key", key, "url", res.SecureURL)
	return res, nil
}

// Delete removes the object behind assetURL. Unknown URLs and missing
// objects yield ResultNotFound without an error.
func (s *S3Store) Delete(ctx context.Context, assetURL string) (*DeleteResult, error) {
	key := s.KeyFromURL(assetURL)
	if key == "" {
		return &DeleteResult{Result: ResultNotFound}, nil
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return &DeleteResult{Result: ResultNotFound}, nil
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("delete object %s: %w", key, err)
	}

	return &DeleteResult{Result: ResultOK}, nil
}

package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/proteinpath/protein-path-go/internal/apperr"
)

type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads photos to an S3 bucket under meals/<owner>/<meal>.<ext>.
type S3Store struct {
	client    objectClient
	bucket    string
	publicURL string
}

// NewS3Store loads the default AWS credential chain for region. publicURL is
// the prefix returned URLs are built on; it defaults to the bucket endpoint.
func NewS3Store(ctx context.Context, bucket, region, publicURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, publicURL), nil
}

func newS3Store(client objectClient, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, ownerID, mealID string, data []byte) (string, error) {
	contentType := ContentType(data)
	key := fmt.Sprintf("meals/%s/%s%s", ownerID, mealID, extension(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Error("uploading meal photo failed", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("%w: uploading photo: %w", apperr.ErrStorage, err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete implements Store. URLs outside publicURL are not ours and are ignored.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting photo: %w", apperr.ErrStorage, err)
	}
	return nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		if _, sub, ok := strings.Cut(contentType, "/"); ok {
			return "." + sub
		}
		return ""
	}
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Store handles audio, cover, and profile image objects on AWS S3.
type S3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// StoredObject is the result of an upload.
type StoredObject struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewS3Store creates a new S3 store.
func NewS3Store(region, bucket, baseURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// Store uploads a file under folder/{year}/{month}/{ownerID}/{uuid}{ext} and
// returns its key and public URL.
func (s *S3Store) Store(ctx context.Context, data []byte, folder, ownerID, originalFilename string) (*StoredObject, error) {
	extension := filepath.Ext(originalFilename)
	now := time.Now()
	key := fmt.Sprintf("%s/%d/%02d/%s/%s%s",
		folder, now.Year(), now.Month(), ownerID, uuid.New().String(), extension)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType(extension)),
		CacheControl: aws.String("max-age=3600"),
		Metadata: map[string]string{
			"owner-id":          ownerID,
			"original-filename": originalFilename,
			"upload-timestamp":  now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &StoredObject{
		Key:  key,
		URL:  fmt.Sprintf("%s/%s", strings.TrimSuffix(s.baseURL, "/"), key),
		Size: int64(len(data)),
	}, nil
}

// Delete removes an object by key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket.
func (s *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", s.bucket, err)
	}
	return nil
}

// contentType returns the MIME type for file extensions we accept.
func contentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

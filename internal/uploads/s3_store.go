package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes accepted uploads to an S3 bucket and returns public URLs
// rooted at baseURL.
type S3Store struct {
	bucket   string
	baseURL  string
	s3Client S3API
}

// NewS3Store creates an S3-backed file store. baseURL is the public prefix
// under which stored keys are reachable, e.g. a CloudFront distribution.
func NewS3Store(s3Client S3API, bucket, baseURL string) *S3Store {
	return &S3Store{
		bucket:   bucket,
		baseURL:  strings.TrimRight(baseURL, "/"),
		s3Client: s3Client,
	}
}

// Save uploads the content under key and returns its public URL.
func (s *S3Store) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("uploads: s3 bucket not configured")
	}

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploads: s3 put %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

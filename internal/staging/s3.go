package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store is the secondary Blob Staging backend for deployments that want
// staged files off the worker's local disk (e.g. worker and submitter on
// separate hosts).
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed Store. It probes the bucket once at
// startup and logs (but does not fail) if the probe comes back negative,
// mirroring the teacher's S3Storage constructor.
func NewS3Store(ctx context.Context, client *s3.Client, bucket, prefix string) (*S3Store, error) {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		log.Printf("staging: warning - bucket access check failed for %s: %v", bucket, err)
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3Store) key(jobID string) string {
	return s.prefix + jobID
}

func (s *S3Store) Put(ctx context.Context, jobID string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read upload for job %s: %w", jobID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(jobID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("stage file for job %s: %w", jobID, err)
	}
	return int64(len(data)), nil
}

func (s *S3Store) Open(ctx context.Context, jobID string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(jobID)),
	})
	if err != nil {
		return nil, fmt.Errorf("open staged file for job %s: %w", jobID, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, jobID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(jobID)),
	})
	var nsk *types.NoSuchKey
	if err != nil && !errors.As(err, &nsk) {
		return fmt.Errorf("delete staged file for job %s: %w", jobID, err)
	}
	return nil
}

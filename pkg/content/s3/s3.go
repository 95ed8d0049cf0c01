// Package s3 implements a content store backed by Amazon S3 or any
// S3-compatible object storage (MinIO, Cubbit DS3, ...).
//
// Each blob is one object whose key is the ContentID, under an optional key
// prefix. Blobs are immutable once written, so S3's last-write-wins model
// never produces torn content.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/Schwartzmorn/filevault/pkg/content"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// S3ContentStore implements content.WritableContentStore and
// content.GarbageCollectableStore over an S3 bucket.
//
// Thread Safety:
// Safe for concurrent use. Each ContentID is written at most once, so
// concurrent requests never race on the same object.
type S3ContentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "filevault/content/".
	KeyPrefix string
}

// NewS3ContentStore creates an S3-based content store and verifies bucket
// access. It does not create the bucket.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3ContentStore) objectKey(id vault.ContentID) string {
	return s.keyPrefix + string(id)
}

func (s *S3ContentStore) contentID(key string) vault.ContentID {
	if s.keyPrefix != "" && len(key) > len(s.keyPrefix) {
		key = key[len(s.keyPrefix):]
	}
	return vault.ContentID(key)
}

func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	// HeadObject reports missing objects as NotFound, not NoSuchKey.
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// ReadContent downloads the object and returns a reader for streaming it.
// The caller must close the reader.
func (s *S3ContentStore) ReadContent(ctx context.Context, id vault.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

// GetContentSize returns the object size via a HEAD request.
func (s *S3ContentStore) GetContentSize(ctx context.Context, id vault.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	if result.ContentLength == nil {
		return 0, fmt.Errorf("content length not available for %s", id)
	}

	return uint64(*result.ContentLength), nil
}

// ContentExists reports whether the object exists.
func (s *S3ContentStore) ContentExists(ctx context.Context, id vault.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// WriteContent uploads the complete blob. S3 PutObject is atomic: the object
// is either fully visible or absent, never partial.
func (s *S3ContentStore) WriteContent(ctx context.Context, id vault.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

// Delete removes an object. S3 DeleteObject succeeds on missing keys, which
// matches the idempotent-delete contract.
func (s *S3ContentStore) Delete(ctx context.Context, id vault.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// ListAllContent returns the IDs of every object under the key prefix.
func (s *S3ContentStore) ListAllContent(ctx context.Context) ([]vault.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []vault.ContentID

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			ids = append(ids, s.contentID(*obj.Key))
		}
	}

	return ids, nil
}

// DeleteBatch removes objects in chunks of up to 1000 (the S3 per-request
// limit), reporting per-object failures.
func (s *S3ContentStore) DeleteBatch(ctx context.Context, ids []vault.ContentID) (map[vault.ContentID]error, error) {
	failures := make(map[vault.ContentID]error)

	const maxBatchSize = 1000

	for i := 0; i < len(ids); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(ids); j++ {
				failures[ids[j]] = err
			}
			return failures, err
		}

		end := i + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, id := range batch {
			objects[j] = types.ObjectIdentifier{
				Key: aws.String(s.objectKey(id)),
			}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			for _, id := range batch {
				failures[id] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			msg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				msg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[s.contentID(*deleteErr.Key)] = errors.New(msg)
		}
	}

	return failures, nil
}

package wsbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// TemplateStore is an optional cross-instance cache of compiled template
// skeletons: a fleet of server instances rendering the same components
// shares one set of compilations instead of re-parsing per process. The
// in-process TemplateCache in the engine stays authoritative for a single
// runtime; the store only short-circuits the first parse of each distinct
// template.
type TemplateStore interface {
	// Load returns the stored compilation for key, and whether one exists.
	Load(ctx context.Context, key string) (*compiledTemplate, bool, error)

	// Store persists ct under key, overwriting any prior entry.
	Store(ctx context.Context, key string, ct *compiledTemplate) error
}

// s3API is the slice of the S3 client the store uses, an interface so
// tests substitute a stub without a live bucket.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3TemplateStore persists compiled templates as JSON objects in an S3
// bucket.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := wsbackend.NewS3TemplateStore(s3.NewFromConfig(cfg), "my-bucket", "templates/")
type S3TemplateStore struct {
	client s3API
	bucket string
	prefix string
}

// NewS3TemplateStore returns a store writing under prefix in bucket.
func NewS3TemplateStore(client *s3.Client, bucket, prefix string) *S3TemplateStore {
	return newS3TemplateStore(client, bucket, prefix)
}

func newS3TemplateStore(client s3API, bucket, prefix string) *S3TemplateStore {
	return &S3TemplateStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3TemplateStore) key(key string) string { return s.prefix + key + ".json" }

// Load implements TemplateStore.
func (s *S3TemplateStore) Load(ctx context.Context, key string) (*compiledTemplate, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("template store get: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("template store read: %w", err)
	}
	var ct compiledTemplate
	if err := json.Unmarshal(body, &ct); err != nil {
		return nil, false, fmt.Errorf("template store decode: %w", err)
	}
	return &ct, true, nil
}

// Store implements TemplateStore.
func (s *S3TemplateStore) Store(ctx context.Context, key string, ct *compiledTemplate) error {
	body, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("template store encode: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("template store put: %w", err)
	}
	return nil
}

// Package blobstore stores and serves uploaded images through S3.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the minimal S3 surface the client needs; *s3.Client satisfies it.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("blobstore: object not found")

// Object is a stored blob with its served content type.
type Object struct {
	ContentType string
	Body        []byte
}

// Store is the read/write interface consumed by the media handlers.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) (Object, error)
}

// Client wraps an S3 bucket holding uploaded images.
type Client struct {
	api    s3API
	bucket string
}

func New(api s3API, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("blobstore: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("blobstore: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket}, nil
}

func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("blobstore: key must not be empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %q: %w", key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (Object, error) {
	if strings.TrimSpace(key) == "" {
		return Object{}, ErrNotFound
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("blobstore: get %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, fmt.Errorf("blobstore: read %q: %w", key, err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}
	return Object{ContentType: contentType, Body: body}, nil
}

package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// S3API is the subset of the S3 client the backing uses, so tests can
// substitute a fake without a real bucket.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backing persists values as objects in an S3 bucket, one object per key
// under a common prefix. Suited to state shared across deployments.
// Notifications are in-process only.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	backing := storage.NewS3Backing(s3.NewFromConfig(cfg), "my-bucket",
//	    storage.WithS3Prefix("app-state/"))
type S3Backing struct {
	client  S3API
	bucket  string
	prefix  string
	enc     Encoder
	timeout time.Duration
	subs    *subscriptions
}

// S3Option configures S3Backing behavior.
type S3Option func(*s3Config)

type s3Config struct {
	prefix  string
	enc     Encoder
	timeout time.Duration
}

// WithS3Prefix sets the object key prefix. Default: "vango-storage/".
func WithS3Prefix(prefix string) S3Option {
	return func(c *s3Config) {
		c.prefix = prefix
	}
}

// WithS3Encoder sets the value encoder. Default: the compressed binary
// encoder.
func WithS3Encoder(enc Encoder) S3Option {
	return func(c *s3Config) {
		c.enc = enc
	}
}

// WithS3Timeout bounds each API call. Default: 15 seconds.
func WithS3Timeout(d time.Duration) S3Option {
	return func(c *s3Config) {
		c.timeout = d
	}
}

// NewS3Backing creates an S3-backed storage medium.
func NewS3Backing(client S3API, bucket string, opts ...S3Option) *S3Backing {
	cfg := &s3Config{
		prefix:  "vango-storage/",
		enc:     Default,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &S3Backing{
		client:  client,
		bucket:  bucket,
		prefix:  cfg.prefix,
		enc:     cfg.enc,
		timeout: cfg.timeout,
		subs:    newSubscriptions("s3"),
	}
}

// Name implements the metrics/log label.
func (b *S3Backing) Name() string { return "s3" }

// Encoder returns the configured value encoder.
func (b *S3Backing) Encoder() Encoder { return b.enc }

func (b *S3Backing) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *S3Backing) objectKey(key string) string {
	return b.prefix + key
}

// Load implements Backing.
func (b *S3Backing) Load(key string) (Encoded, bool, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}
	return string(data), true, nil
}

// Store implements Backing.
func (b *S3Backing) Store(key string, e Encoded) error {
	value, err := encodedString(e)
	if err != nil {
		return err
	}

	ctx, cancel := b.ctx()
	defer cancel()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        strings.NewReader(value),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	return err
}

// Remove implements Backing. S3 deletes are idempotent, so a missing key is
// not an error.
func (b *S3Backing) Remove(key string) error {
	ctx, cancel := b.ctx()
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	return err
}

// Keys implements Lister, paging through the prefix and stripping it.
func (b *S3Backing) Keys() ([]string, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	var keys []string
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(b.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, strings.TrimPrefix(*obj.Key, b.prefix))
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

// Subscribe implements Subscriber.
func (b *S3Backing) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	return b.subs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (b *S3Backing) Unsubscribe(key string) {
	b.subs.unsubscribe(key)
}

// notify broadcasts the key's current value to in-process subscribers.
func (b *S3Backing) notify(key string) {
	b.subs.notify(key)
}

// Package storage archives uploaded images in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newObjectID = uuid.NewString
)

// Archive stores an uploaded image and returns the object key.
type Archive interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures S3Archive. Endpoint may point at MinIO; path-style
// addressing is used whenever it is set.
type Options struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

type S3Archive struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
}

func NewS3Archive(ctx context.Context, o Options) (*S3Archive, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(opt *s3.Options) {
		if o.Endpoint != "" {
			opt.BaseEndpoint = aws.String(o.Endpoint)
			opt.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: o.Bucket, now: time.Now}, nil
}

// ObjectKey lays uploads out by UTC day: uploads/YYYY/M/D/<id>.
func ObjectKey(t time.Time, id string) string {
	t = t.UTC()
	return fmt.Sprintf("uploads/%d/%d/%d/%s", t.Year(), int(t.Month()), t.Day(), id)
}

func (a *S3Archive) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	key := ObjectKey(a.now(), newObjectID())

	in := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	return key, nil
}

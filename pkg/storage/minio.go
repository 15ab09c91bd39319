// Package storage publishes files to an S3-compatible bucket such as MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether a bucket is configured.
func (c MinioConfig) Enabled() bool { return c.Bucket != "" }

// Uploader puts files into one bucket under a key prefix. The bucket is
// created on first use if it does not exist.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string

	once      sync.Once
	bucketErr error
}

func NewUploader(ctx context.Context, cfg MinioConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: no bucket configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key is the object key a local file is stored under.
func (u *Uploader) Key(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.once.Do(func() {
		_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)})
		if err == nil {
			return
		}
		_, err = u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(u.bucket)})
		if err != nil {
			u.bucketErr = fmt.Errorf("failed to create bucket %s: %w", u.bucket, err)
		}
	})
	return u.bucketErr
}

// Publish uploads file under Key(file).
func (u *Uploader) Publish(ctx context.Context, file string) error {
	return u.Upload(ctx, file, u.Key(file))
}

// Upload puts file into the bucket under key.
func (u *Uploader) Upload(ctx context.Context, file, key string) error {
	if err := u.ensureBucket(ctx); err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put %s/%s: %w", u.bucket, key, err)
	}
	return nil
}

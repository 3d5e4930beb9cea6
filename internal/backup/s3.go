package backup

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

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}
)

// S3Options configures S3Uploader. Empty keys use the default AWS
// credential chain; a BaseEndpoint selects an S3-compatible server such as
// MinIO and switches to path-style addressing.
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

type S3Uploader struct {
	opts S3Options
	now  func() time.Time
}

func NewS3Uploader(opts S3Options) *S3Uploader {
	return &S3Uploader{opts: opts, now: time.Now}
}

func (u *S3Uploader) client(ctx context.Context) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(u.opts.Region)}
	if u.opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(u.opts.AccessKey, u.opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if u.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(u.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ObjectKey places name under prefix/yyyy/mm/dd with a random component so
// repeated uploads never overwrite each other.
func (u *S3Uploader) ObjectKey(name string) string {
	d := u.now().UTC()
	return fmt.Sprintf("%s%d/%02d/%02d/%s-%s", u.opts.Prefix, d.Year(), d.Month(), d.Day(), uuid.New(), name)
}

func (u *S3Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	c, err := u.client(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	key := u.ObjectKey(name)
	err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return key, nil
}

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/opendatabs/odsync/internal/utils"
)

var ErrNoBucket = errors.New("publish: s3 bucket missing")

type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint selects an S3 compatible store (path style addressing).
	Endpoint string
	Prefix   string
}

func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return ErrNoBucket
	}
	return nil
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads artifacts as objects under Prefix.
type S3 struct {
	cfg    S3Config
	client s3API
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
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
	})
	return &S3{cfg: cfg, client: client}, nil
}

func (s *S3) key(a *Artifact) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return a.RemoteName()
	}
	return path.Join(prefix, a.RemoteName())
}

func (s *S3) Name() string {
	return "s3://" + path.Join(s.cfg.Bucket, strings.Trim(s.cfg.Prefix, "/"))
}

func (s *S3) Deliver(ctx context.Context, a *Artifact) error {
	file, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	key := s.key(a)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(utils.DetectContentType(key)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

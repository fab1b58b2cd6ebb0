package keymaterial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/did-ledger-adapter/interfaces"
)

const defaultS3Region = "us-east-1"

type S3SourceConfig struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string

	AccessKey string
	SecretKey string
	// UseEnvCredentials resolves credentials through the SDK default chain
	// instead of reading the bucket anonymously.
	UseEnvCredentials bool
}

// S3Source reads one object from S3 or an S3-compatible store.
type S3Source struct {
	client      *s3.S3
	bucket      string
	key         string
	log         *slog.Logger
	locationURI string
}

func NewS3Source(cfg S3SourceConfig, log *slog.Logger) (*S3Source, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	awsCfg := aws.Config{
		Region: aws.String(region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	switch {
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	case !cfg.UseEnvCredentials:
		awsCfg.Credentials = credentials.AnonymousCredentials
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Key, region)
	if cfg.Endpoint != "" {
		uri += "&endpoint=" + cfg.Endpoint
	}

	return &S3Source{
		client:      s3.New(sess),
		bucket:      cfg.Bucket,
		key:         cfg.Key,
		log:         log,
		locationURI: uri,
	}, nil
}

func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == s3.ErrCodeNoSuchBucket) {
			return nil, fmt.Errorf("%w: s3://%s/%s", interfaces.ErrKeyMaterialNotFound, s.bucket, s.key)
		}
		s.log.Error("Failed to get object from S3",
			slog.String("bucket", s.bucket),
			slog.String("key", s.key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read object body: %v", interfaces.ErrSourceUnavailable, err)
	}

	s.log.Debug("Read key material from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

func (s *S3Source) Name() string {
	return "s3"
}

func (s *S3Source) LocationURI() string {
	return s.locationURI
}

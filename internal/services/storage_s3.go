package services

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
)

// objectUploader is the part of manager.Uploader used by S3Storage
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage writes artifacts to an S3 compatible bucket
type S3Storage struct {
	uploader objectUploader
	bucket   string
	prefix   string
	logger   *logrus.Logger
}

// NewS3Storage creates an S3 backed storage. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg config.S3Config, logger *logrus.Logger) (*S3Storage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return newS3Storage(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Storage(uploader objectUploader, bucket, prefix string, logger *logrus.Logger) *S3Storage {
	return &S3Storage{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}
}

// Store uploads data under <prefix>/<uuid>.<extension> and returns its
// s3://bucket/key location
func (s *S3Storage) Store(ctx context.Context, data []byte, extension string) (string, error) {
	key := path.Join(s.prefix, artifactName(extension))

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", newAppError("storage", "s3 upload failed", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.WithFields(logrus.Fields{
		"location": location,
		"bytes":    len(data),
	}).Debug("Artifact uploaded")

	return location, nil
}

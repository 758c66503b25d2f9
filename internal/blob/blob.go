// Package blob stores note attachments in S3-compatible object storage.
// The flow is presigned-URL based: the store never proxies bytes through
// application state, it mints a short-lived PUT URL, uploads, and hands out
// GET URLs on demand.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/netx"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

const presignExpiry = 15 * time.Minute

// Config carries the S3 connection settings.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string // MinIO or other S3-compatible endpoint; empty for AWS
	AccessKey    string
	SecretKey    string
}

// Store mints presigned URLs against one bucket.
type Store struct {
	cfg Config
}

func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%02d/%v", d.Year(), d.Month(), uuid.New())
}

func (s *Store) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey, s.cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		}
	})
	return newS3PresignClient(client), nil
}

// Upload stores data under a fresh key and returns the attachment
// descriptor to embed in the owning note.
func (s *Store) Upload(ctx context.Context, name string, data []byte) (models.Attachment, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return models.Attachment{}, err
	}

	key := storageKey()
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return models.Attachment{}, err
	}

	if err := uploadToPresignedURL(req.URL, data); err != nil {
		return models.Attachment{}, err
	}

	return models.Attachment{Key: key, Name: name, Size: int64(len(data))}, nil
}

// DownloadURL returns a short-lived GET URL for an attachment key.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

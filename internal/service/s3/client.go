package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"filevault/internal/config"
	"filevault/internal/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultEndpoint = "https://storage.yandexcloud.net"
	defaultRegion   = "ru-central1"
)

// Client выдает подписанные ссылки и удаляет объекты в S3-совместимом хранилище
type Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// NewClient создает клиента и проверяет доступ к бакету
func NewClient(ctx context.Context, conf config.S3Config, ttl time.Duration) (*Client, error) {
	c, err := newClient(conf, ttl)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return c, nil
}

func newClient(conf config.S3Config, ttl time.Duration) (*Client, error) {
	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	endpoint := conf.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	region := conf.Region
	if region == "" {
		region = defaultRegion
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(endpoint),
		Region:           region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	return &Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    conf.Bucket,
		ttl:       ttl,
	}, nil
}

// PresignGet возвращает временную ссылку на скачивание объекта под именем fileName
func (c *Client) PresignGet(ctx context.Context, key, fileName string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if fileName != "" {
		input.ResponseContentDisposition = aws.String(
			mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}

	req, err := c.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}

// DeleteObject удаляет объект; отсутствующий объект ошибкой не считается
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	logging.Debug("object deleted", zap.String("bucket", c.bucket), zap.String("key", key))
	return nil
}

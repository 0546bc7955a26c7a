package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the S3 endpoint and bucket.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// MinioBucket is a Bucket backed by minio-go.
type MinioBucket struct {
	client *minio.Client
	name   string
	region string
}

// NewMinioBucket builds a client for cfg. No request is made until the
// bucket is used.
func NewMinioBucket(cfg Config) (*MinioBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioBucket{client: client, name: cfg.Bucket, region: cfg.Region}, nil
}

// Open builds the store described by cfg.
func Open(cfg Config) (*Store, error) {
	bucket, err := NewMinioBucket(cfg)
	if err != nil {
		return nil, err
	}
	return New(bucket, cfg.Key), nil
}

// Ensure creates the bucket if it does not exist.
func (b *MinioBucket) Ensure(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region})
}

// Read downloads key, mapping NoSuchKey and NoSuchBucket to ErrObjectNotFound.
func (b *MinioBucket) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err)
	}
	return data, nil
}

// Write uploads data to key with the run summary as metadata.
func (b *MinioBucket) Write(ctx context.Context, key string, data []byte, summary string) error {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if summary != "" {
		opts.UserMetadata = map[string]string{"Plumber-Summary": summary}
	}
	_, err := b.client.PutObject(ctx, b.name, key, bytes.NewReader(data), int64(len(data)), opts)
	return err
}

func mapError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"ElderCare360/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 stores patient photos in one bucket of an S3 compatible service.
type S3 struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

/*
* Load the default AWS config for the configured region
* Static keys from the config win over the default credential chain
* A custom endpoint switches to path-style addressing (MinIO, LocalStack)
 */
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	creds := awsCfg.Credentials
	if cfg.AccessKey != "" {
		access, secret := cfg.AccessKey, cfg.SecretKey
		creds = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: access, SecretAccessKey: secret, Source: "eldercare config"}, nil
		}))
	}
	opts := s3.Options{
		Region:       awsCfg.Region,
		Credentials:  creds,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: awsCfg.BaseEndpoint,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	publicURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
		}
	}
	return &S3{client: s3.New(opts), bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// Put uploads body under key and returns the public URL of the object.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	// The SDK needs a seekable body to sign and checksum the payload.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3) URL(key string) string {
	return s.publicURL + "/" + key
}

// PhotoKey is the object key of a patient photo. nonce keeps two uploads for the same cedula apart.
func PhotoKey(caregiverID, cedula, nonce string) string {
	return fmt.Sprintf("patients/%s/%s-%s.jpg", caregiverID, cedula, nonce)
}

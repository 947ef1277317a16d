package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// cidMetadataKey is the object metadata key S3-compatible IPFS pinning
// gateways use to report the content identifier.
const cidMetadataKey = "cid"

// S3Store pins content through an S3-compatible IPFS gateway.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	gateway  string
}

// NewS3Store connects to the gateway described by cfg. gateway is the public
// HTTP prefix content is served from.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, gateway string) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage is not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		gateway:  gateway,
	}, nil
}

// Put uploads obj and reads the CID back from the object's metadata. When
// the gateway reports none, the locally computed CID is used.
func (s *S3Store) Put(ctx context.Context, obj Object) (Result, error) {
	key := path.Join(uuid.NewString(), sanitizeFilename(obj.Filename))
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(obj.Content),
		ContentType: aws.String(contentType),
		Metadata:    obj.Metadata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("uploading %s: %w", key, err)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Result{}, fmt.Errorf("reading back %s: %w", key, err)
	}

	cid := head.Metadata[cidMetadataKey]
	if cid == "" {
		cid = ContentID(obj.Content)
	}
	return Result{
		Locator: cid,
		URL:     GatewayURL(s.gateway, cid),
		Size:    len(obj.Content),
	}, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "content"
	}
	return name
}

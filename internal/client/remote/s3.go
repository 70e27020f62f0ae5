package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes an S3-compatible bucket (MinIO in development).
type S3Config struct {
	AccessKey     string
	SecretKey     string
	Region        string
	Bucket        string
	BaseEndpoint  string
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Attachments implements Attachments on an S3 bucket with path-style
// addressing. Public URLs have the form PublicBaseURL/bucket/path.
type S3Attachments struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

// NewS3Attachments builds the S3 client from static credentials. Extra
// options are applied after the defaults.
func NewS3Attachments(ctx context.Context, c S3Config, optFns ...func(*s3.Options)) (*S3Attachments, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := []func(*s3.Options){func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	}}
	opts = append(opts, optFns...)

	public := c.PublicBaseURL
	if public == "" {
		public = c.BaseEndpoint
	}

	return &S3Attachments{
		client:        newS3ClientFromConfig(cfg, opts...),
		bucket:        c.Bucket,
		publicBaseURL: strings.TrimRight(public, "/"),
	}, nil
}

func (a *S3Attachments) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, in); err != nil {
		return mapS3Error(err)
	}
	return nil
}

func (a *S3Attachments) Remove(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	err = mapS3Error(err)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (a *S3Attachments) PublicURL(key string) string {
	return a.publicBaseURL + "/" + a.bucket + "/" + key
}

func (a *S3Attachments) PathFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, a.publicBaseURL+"/"+a.bucket+"/")
}

// StoragePath is the object key of a photo. It is derived from the local
// photo ID so a retried upload overwrites the same object.
func StoragePath(owner, timeEntryID, localPhotoID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "photo"
	}
	return fmt.Sprintf("%s/%s/%s-%s", owner, timeEntryID, localPhotoID, name)
}

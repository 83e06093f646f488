// Package s3 implements the blob store on an S3 compatible bucket. In a
// local-only deployment this is a MinIO instance on the field laptop or NAS.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"specimencore/internal/blob/core"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Store implements core.Store using a single bucket. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds construction parameters.
type Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"` // optional; e.g. http://localhost:9000 for MinIO
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// New creates an S3 blob store from Config. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Put is create-only: a Head request rejects existing keys and the conditional
// write guards the race between that check and the upload.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if _, err := s.Head(ctx, key); err == nil {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Info{}, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		IfNoneMatch:   aws.String("*"),
	}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if statusOf(err) == http.StatusPreconditionFailed {
			return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
		}
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.Info{}, nil, s.mapErr(key, err)
	}
	info := fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.Info{}, s.mapErr(key, err)
	}
	return fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete checks with Head first so the existed flag is accurate.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, core.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), "\""),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) mapErr(key string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) || statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return fmt.Errorf("s3 %s: %w", key, err)
}

func statusOf(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func fromHead(key string, size int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.Info {
	lm := time.Now().UTC()
	if lastModified != nil {
		lm = *lastModified
	}
	return core.Info{
		Key:          key,
		Size:         size,
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), "\""),
		Metadata:     md,
		LastModified: lm,
	}
}

package writers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
)

// s3Target разобранный адрес s3://bucket/key
type s3Target struct {
	bucket string
	key    string
}

// parseS3 разбирает output_path вида s3://bucket/key
func parseS3(path string) (s3Target, bool, error) {
	rest, ok := strings.CutPrefix(path, "s3://")
	if !ok {
		return s3Target{}, false, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return s3Target{}, true, fmt.Errorf("invalid s3 url %q, expected s3://bucket/key", path)
	}
	return s3Target{bucket: bucket, key: key}, true, nil
}

// output место назначения файлового writer'а
type output struct {
	path   string
	target *s3Target
	params strategy.Params
}

func newOutput(p strategy.Params, writerType string) (*output, error) {
	path, err := requireString(p, writerType, "output_path")
	if err != nil {
		return nil, err
	}
	target, isS3, err := parseS3(path)
	if err != nil {
		return nil, err
	}
	o := &output{path: path, params: p}
	if isS3 {
		o.target = &target
	}
	return o, nil
}

// write вызывает fn с локальным путем. Для s3 файл пишется во временный
// каталог и затем загружается через S3 manager.
func (o *output) write(ctx context.Context, fn func(local string) error) error {
	if o.target == nil {
		if dir := filepath.Dir(o.path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		return fn(o.path)
	}

	dir, err := os.MkdirTemp("", "datagen-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, filepath.Base(o.target.key))
	if err := fn(local); err != nil {
		return err
	}
	return o.upload(ctx, local)
}

func (o *output) upload(ctx context.Context, local string) error {
	var opts []func(*awsconfig.LoadOptions) error
	if region := o.params.String("s3_region"); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	// явные ключи для S3-совместимых хранилищ (MinIO)
	if key := o.params.String("s3_access_key"); key != "" {
		provider := credentials.NewStaticCredentialsProvider(key, o.params.String("s3_secret_key"), "")
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := o.params.String("s3_endpoint")
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if endpoint != "" {
			so.BaseEndpoint = aws.String(endpoint)
			so.UsePathStyle = true
		}
	})

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.target.bucket),
		Key:    aws.String(o.target.key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", o.target.bucket, o.target.key, err)
	}

	log.Info().Str("bucket", o.target.bucket).Str("key", o.target.key).Msg("file uploaded to s3")
	return nil
}

// createFile создает файл, закрывая его после fn
func createFile(path string, fn func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		// parquet writer закрывает файл сам
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return fn(f)
}

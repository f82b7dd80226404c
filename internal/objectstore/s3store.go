// s3store.go — хранилище выписок в S3-совместимом bucket (AWS S3, MinIO).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config — параметры подключения к bucket.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint — URL S3-совместимого сервиса (пустая строка — AWS)
	Endpoint  string
	AccessKey string
	SecretKey string
}

// s3API — используемое подмножество *s3.Client (для подмены в тестах).
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store — объекты в S3 bucket.
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store создаёт S3Store.
// Если заданы ключи доступа — используются статические credentials,
// иначе стандартная цепочка AWS (env, профиль, IAM-роль).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO и большинство S3-совместимых сервисов требуют path-style
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Bucket возвращает имя bucket.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// List выполняет ListObjectsV2 по префиксу. Токен — NextContinuationToken S3.
func (s *S3Store) List(ctx context.Context, prefix string, pageSize int, token string) (*Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(max(pageSize, 1))), //nolint:gosec // G115: pageSize ограничен конфигурацией
	}
	if token != "" {
		input.StartAfter = aws.String(token)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("листинг s3://%s/%s: %w", s.bucket, prefix, err)
	}

	page := &Page{Objects: make([]ObjectInfo, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Name:         aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	if aws.ToBool(out.IsTruncated) && len(page.Objects) > 0 {
		page.NextToken = page.Objects[len(page.Objects)-1].Name
	}

	return page, nil
}

// Properties выполняет HeadObject.
func (s *S3Store) Properties(ctx context.Context, name string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("получение свойств s3://%s/%s: %w", s.bucket, name, err)
	}

	return &ObjectInfo{
		Name:         name,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

// Open выполняет GetObject и возвращает тело объекта.
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("чтение s3://%s/%s: %w", s.bucket, name, err)
	}

	return out.Body, &ObjectInfo{
		Name:         name,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

// Ping выполняет HeadBucket.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("bucket %s недоступен: %w", s.bucket, err)
	}
	return nil
}

// isS3NotFound распознаёт отсутствие объекта.
// HeadObject не возвращает тело ответа, поэтому кроме типизированных ошибок
// проверяется HTTP-статус 404.
func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

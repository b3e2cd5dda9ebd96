// Package storage は投稿画像のオブジェクトストレージ実装を提供する。
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ImageStore は投稿画像の保存・削除インターフェース。
type ImageStore interface {
	// Upload は画像データを保存し、ストレージキーを返す。
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	// Delete は画像を削除する。
	Delete(ctx context.Context, key string) error
	// PublicURL はストレージキーから公開URLを組み立てる。
	PublicURL(key string) string
}

// Config はS3互換ストレージの接続設定。
type Config struct {
	Bucket    string
	Endpoint  string // 空の場合はAWS標準エンドポイント
	AccessKey string
	SecretKey string
	Region    string
}

// S3ImageStore はS3互換ストレージを使用したImageStoreの実装。
// AWS S3のほかMinIO等のS3互換ストレージでも動作する。
type S3ImageStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
}

// NewS3ImageStore はS3ImageStoreを生成する。
func NewS3ImageStore(cfg Config) (*S3ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "ap-northeast-2"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// カスタムエンドポイントではパススタイルを使用する
			o.UsePathStyle = true
		}
	})

	return &S3ImageStore{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		region:   region,
	}, nil
}

// EnsureBucket は起動時にバケットの存在を確認し、なければ作成する。
func (s *S3ImageStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	slog.Info("creating storage bucket", slog.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// 並行起動時のBucketAlreadyOwnedByYouは無視する
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Upload は画像データを保存し、ストレージキーを返す。
// キーはUUIDベースで生成され、Content-Typeから拡張子を推定する。
func (s *S3ImageStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("image data is empty")
	}

	key := "images/" + uuid.New().String() + extensionFor(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	slog.Debug("image uploaded",
		slog.String("key", key),
		slog.Int("size", len(data)),
	)
	return key, nil
}

// Delete は画像を削除する。存在しないキーの削除はエラーにならない。
func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// PublicURL はストレージキーから公開URLを組み立てる。
func (s *S3ImageStore) PublicURL(key string) string {
	if s.endpoint != "" {
		return strings.TrimSuffix(s.endpoint, "/") + "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// extensionFor はContent-Typeから保存用の拡張子を返す。
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// compile-time interface check
var _ ImageStore = (*S3ImageStore)(nil)

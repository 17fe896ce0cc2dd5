package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Api is the subset of the S3 client the stager uses; fakes implement it
// in tests.
type S3Api interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	manager.ListObjectsV2APIClient
}

// S3Config configures the S3 client. Endpoint and static credentials are
// optional; when unset the default AWS chain applies.
type S3Config struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type S3Stager struct {
	client     S3Api
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

var _ Stager = (*S3Stager)(nil)

// NewS3Stager builds a stager against the real S3 service.
func NewS3Stager(cfg S3Config) (*S3Stager, error) {
	client, err := initializeS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}
	return NewS3StagerFromClient(client), nil
}

// NewS3StagerFromClient wraps an existing client (or a fake in tests).
func NewS3StagerFromClient(client S3Api) *S3Stager {
	return &S3Stager{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}
}

func createS3Config(cfg S3Config, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{}

	if cfg.EndpointURL != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) { // nolint:staticcheck
			return aws.Endpoint{ // nolint:staticcheck
				PartitionID:       "aws",
				URL:               cfg.EndpointURL,
				SigningRegion:     cfg.Region,
				HostnameImmutable: true, // Important for MinIO
			}, nil
		})
		opts = append(opts, aws_config.WithEndpointResolverWithOptions(resolver)) // nolint:staticcheck
	}

	if cfg.Region != "" {
		opts = append(opts, aws_config.WithRegion(cfg.Region))
	}

	if creds != nil {
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	return aws_config.LoadDefaultConfig(context.Background(), opts...)
}

func initializeS3Client(cfg S3Config) (*s3.Client, error) {
	var creds aws.CredentialsProvider = nil
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	awsCfg, err := createS3Config(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	// If no credentials can be loaded from the environment fall back to
	// anonymous credentials; this is needed to access public buckets.
	if _, err := awsCfg.Credentials.Retrieve(context.Background()); err != nil {
		awsCfg, err = createS3Config(cfg, aws.AnonymousCredentials{})
		if err != nil {
			return nil, fmt.Errorf("failed to create aws config with anonymous credentials: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing is needed for MinIO-style endpoints.
		o.UsePathStyle = true
	})

	return client, nil
}

func (s *S3Stager) UploadFile(ctx context.Context, localPath, destURI string) (string, error) {
	bucket, key, err := ParseS3Path(destURI)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, bucket, key, err)
	}
	slog.Info("object uploaded", "bucket", bucket, "key", key)

	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (s *S3Stager) UploadDir(ctx context.Context, localDir, destPrefix string) (string, error) {
	bucket, prefix, err := ParseS3Path(destPrefix)
	if err != nil {
		return "", err
	}
	prefix = strings.TrimSuffix(prefix, "/")

	err = filepath.Walk(localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk directory %s: %w", localDir, err)
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s relative to %s: %w", p, localDir, err)
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		file, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", p, err)
		}
		defer file.Close()

		if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   file,
		}); err != nil {
			return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", p, bucket, key, err)
		}
		slog.Info("object uploaded", "bucket", bucket, "key", key)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error uploading directory %s to s3://%s/%s: %w", localDir, bucket, prefix, err)
	}

	return fmt.Sprintf("s3://%s/%s", bucket, prefix), nil
}

func (s *S3Stager) Download(ctx context.Context, srcURI, localPath string) error {
	bucket, key, err := ParseS3Path(srcURI)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for download %s: %w", filepath.Dir(localPath), err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		file.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	slog.Info("object downloaded", "bucket", bucket, "key", key, "dest", localPath)

	return nil
}

func (s *S3Stager) List(ctx context.Context, prefixURI string) ([]string, error) {
	bucket, prefix, err := ParseS3Path(prefixURI)
	if err != nil {
		return nil, err
	}

	var uris []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && !strings.HasSuffix(*obj.Key, "/") {
				uris = append(uris, fmt.Sprintf("s3://%s/%s", bucket, *obj.Key))
			}
		}
	}

	return uris, nil
}

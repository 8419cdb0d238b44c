package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"f2f-dating-app/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	awscreds "github.com/aws/aws-sdk-go/aws/credentials"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// StorageService stores profile photos in MinIO when an endpoint is
// configured and in S3 otherwise.
type StorageService struct {
	cfg         *config.Config
	s3Client    *s3.S3
	minioClient *minio.Client
	useMinIO    bool
	log         *logrus.Entry
}

func NewStorageService(cfg *config.Config, log *logrus.Entry) (*StorageService, error) {
	service := &StorageService{cfg: cfg, log: log.WithField("component", "storage")}

	if cfg.MinIOEndpoint != "" {
		service.useMinIO = true
		minioClient, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		service.minioClient = minioClient
	} else {
		sess, err := awssession.NewSession(&aws.Config{
			Region: aws.String(cfg.AWSRegion),
			Credentials: awscreds.NewStaticCredentials(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		service.s3Client = s3.New(sess)
	}

	return service, nil
}

// UploadFile stores the object under key and returns its public URL.
func (s *StorageService) UploadFile(ctx context.Context, file io.Reader, size int64, key, contentType string) (string, error) {
	if s.useMinIO {
		return s.uploadToMinIO(ctx, file, size, key, contentType)
	}
	return s.uploadToS3(ctx, file, key, contentType)
}

func (s *StorageService) DeleteFile(ctx context.Context, fileURL string) error {
	key := s.extractKeyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("invalid file URL")
	}

	if s.useMinIO {
		return s.deleteFromMinIO(ctx, key)
	}
	return s.deleteFromS3(ctx, key)
}

func (s *StorageService) uploadToS3(ctx context.Context, file io.Reader, key, contentType string) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *StorageService) uploadToMinIO(ctx context.Context, file io.Reader, size int64, key, contentType string) (string, error) {
	_, err := s.minioClient.PutObject(ctx, s.cfg.S3Bucket, key, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *StorageService) publicURL(key string) string {
	if s.useMinIO {
		protocol := "http"
		if s.cfg.MinIOUseSSL {
			protocol = "https"
		}
		return fmt.Sprintf("%s://%s/%s/%s", protocol, s.cfg.MinIOEndpoint, s.cfg.S3Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.AWSRegion, key)
}

func (s *StorageService) deleteFromS3(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *StorageService) deleteFromMinIO(ctx context.Context, key string) error {
	if err := s.minioClient.RemoveObject(ctx, s.cfg.S3Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}

// extractKeyFromURL reverses publicURL.
func (s *StorageService) extractKeyFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil || u.Host == "" {
		return ""
	}
	p := strings.TrimPrefix(u.Path, "/")

	if strings.HasSuffix(u.Host, "amazonaws.com") {
		return p
	}
	if s.cfg.MinIOEndpoint != "" && u.Host == s.cfg.MinIOEndpoint {
		return strings.TrimPrefix(p, s.cfg.S3Bucket+"/")
	}
	return ""
}

// CreateBucket makes sure the photo bucket exists.
func (s *StorageService) CreateBucket(ctx context.Context) error {
	if s.useMinIO {
		exists, err := s.minioClient.BucketExists(ctx, s.cfg.S3Bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			if err := s.minioClient.MakeBucket(ctx, s.cfg.S3Bucket, minio.MakeBucketOptions{Region: s.cfg.AWSRegion}); err != nil {
				return fmt.Errorf("failed to create MinIO bucket: %w", err)
			}
			s.log.WithField("bucket", s.cfg.S3Bucket).Info("bucket created")
		}
		return nil
	}

	_, err := s.s3Client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.cfg.S3Bucket),
	})
	if err != nil && !strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("failed to create S3 bucket: %w", err)
	}
	return nil
}

// PhotoKey builds the object key for a new profile photo of userID.
func PhotoKey(userID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return path.Join("profiles", userID, uuid.NewString()+ext)
}

// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds the upload size limit")
	ErrObjectNotFound = errors.New("stored object not found")
)

// StorageService puts order files in S3 when credentials are configured
// and on the local filesystem otherwise.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
	log      *logrus.Entry
}

type StoredObject struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// UploadPolicy bounds one upload. Size overruns are hard errors; a
// content type outside AcceptTypes only produces a warning, since
// customers legitimately send all sorts of documents.
type UploadPolicy struct {
	MaxBytes    int64
	AcceptTypes []string
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	svc := &StorageService{
		config: cfg,
		log:    logrus.WithField("service", "storage"),
	}

	if cfg.Storage.AWSAccessKeyID == "" {
		if err := os.MkdirAll(cfg.Storage.LocalDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create local storage dir: %w", err)
		}
		svc.log.WithField("dir", cfg.Storage.LocalDir).Info("Using local file storage")
		return svc, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Storage.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			cfg.Storage.AWSAccessKeyID,
			cfg.Storage.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	svc.s3Client = s3.New(sess)
	return svc, nil
}

// DefaultUploadPolicy is the order file exchange policy: a hard size cap
// and a short list of expected document types.
func (s *StorageService) DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes: s.config.Storage.MaxUploadMB * 1024 * 1024,
		AcceptTypes: []string{
			"application/pdf",
			"application/zip",
			"text/plain",
			"application/octet-stream",
		},
	}
}

// Save stores one multipart upload under the given key. It returns the
// stored object plus any policy warnings; warnings never block the save.
func (s *StorageService) Save(ctx context.Context, key string, file multipart.File, header *multipart.FileHeader, policy UploadPolicy) (*StoredObject, []string, error) {
	if policy.MaxBytes > 0 && header.Size > policy.MaxBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, header.Size, policy.MaxBytes)
	}

	contentType := guessContentType(header)

	var warnings []string
	if len(policy.AcceptTypes) > 0 {
		accepted := false
		for _, t := range policy.AcceptTypes {
			if contentType == t {
				accepted = true
				break
			}
		}
		if !accepted {
			warnings = append(warnings, fmt.Sprintf("unexpected content type %q for %s", contentType, header.Filename))
		}
	}

	var reader io.Reader = file
	if policy.MaxBytes > 0 {
		reader = io.LimitReader(file, policy.MaxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to read upload: %w", err)
	}
	if policy.MaxBytes > 0 && int64(len(data)) > policy.MaxBytes {
		return nil, warnings, fmt.Errorf("%w: stream larger than declared size", ErrFileTooLarge)
	}

	if s.s3Client != nil {
		err = s.putS3(ctx, key, data, contentType)
	} else {
		err = s.putLocal(key, data)
	}
	if err != nil {
		return nil, warnings, err
	}

	return &StoredObject{
		Key:         key,
		Name:        filepath.Base(header.Filename),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, warnings, nil
}

func (s *StorageService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.s3Client != nil {
		out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Storage.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s from S3: %w", key, err)
		}
		return out.Body, nil
	}

	path, err := s.localPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.Storage.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s from S3: %w", key, err)
		}
		return nil
	}

	path, err := s.localPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// OrderFileKey builds a stable storage key for one order file slot.
// Re-uploads to the same slot produce fresh keys so stale CDN or cache
// entries never serve the old document.
func (s *StorageService) OrderFileKey(orderCode, slot, filename string) string {
	now := time.Now().UTC()
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("order-files/%04d/%02d/%s/%s_%s%s",
		now.Year(), now.Month(), orderCode, slot, uuid.New().String()[:8], ext)
}

func (s *StorageService) putS3(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.Storage.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) putLocal(key string, data []byte) error {
	path, err := s.localPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *StorageService) localPath(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.config.Storage.LocalDir, clean), nil
}

func guessContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
		// TypeByExtension may append a charset parameter
		if i := strings.Index(byExt, ";"); i > 0 {
			return byExt[:i]
		}
		return byExt
	}
	return "application/octet-stream"
}

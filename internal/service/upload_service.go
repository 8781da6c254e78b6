package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/client"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/pkg/apperr"
)

// UploadService stores candidate resumes in object storage.
type UploadService struct {
	objects client.ObjectStorage
	logger  *zap.Logger
}

func NewUploadService(objects client.ObjectStorage, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{objects: objects, logger: logger}
}

// UploadResume stores a resume under a fresh key and returns its public URL.
func (s *UploadService) UploadResume(ctx context.Context, file *Upload, size int64) (*model.UploadResponse, error) {
	if s.objects == nil {
		return nil, apperr.Server("File storage is not configured", nil)
	}

	key := fmt.Sprintf("resumes/%s%s", uuid.New().String(), strings.ToLower(path.Ext(file.Filename)))
	url, err := s.objects.Upload(ctx, key, file.Body, file.ContentType)
	if err != nil {
		return nil, apperr.Server("Failed to upload resume", err)
	}

	s.logger.Info("resume uploaded", zap.String("key", key), zap.Int64("size", size))
	return &model.UploadResponse{
		Key:         key,
		URL:         url,
		ContentType: file.ContentType,
		Size:        size,
	}, nil
}

// DeleteResume removes a previously uploaded resume.
func (s *UploadService) DeleteResume(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, "resumes/") {
		return apperr.Validation("Invalid resume key")
	}
	if s.objects == nil {
		return apperr.Server("File storage is not configured", nil)
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		return apperr.Server("Failed to delete resume", err)
	}
	return nil
}

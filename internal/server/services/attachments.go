package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/filex"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
)

// Usage is a user's attachment storage in bytes.
type Usage struct {
	Used  int64 `json:"used"`
	Quota int64 `json:"quota"`
}

// refreshStorageUsed recomputes the user's usage from the store and saves it.
func refreshStorageUsed(ctx context.Context, m repomanager.RepositoryManager, store attachments.Store, userID int64) (int64, error) {
	used, err := store.UsageBytes(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := m.Users(m.Conn()).SetStorageUsed(ctx, userID, used); err != nil {
		return 0, err
	}
	return used, nil
}

type AttachmentService struct {
	repomanager  repomanager.RepositoryManager
	store        attachments.Store
	logger       logging.Logger
	maxFileSize  int64
	defaultQuota int64
}

func NewAttachmentService(m repomanager.RepositoryManager, store attachments.Store, logger logging.Logger,
	maxFileSize, defaultQuota int64) *AttachmentService {
	if defaultQuota <= 0 {
		defaultQuota = common.DefaultStorageQuota
	}
	return &AttachmentService{
		repomanager:  m,
		store:        store,
		logger:       logger,
		maxFileSize:  maxFileSize,
		defaultQuota: defaultQuota,
	}
}

func (s *AttachmentService) quota(u *models.User) int64 {
	if u.StorageQuota > 0 {
		return u.StorageQuota
	}
	return s.defaultQuota
}

// Upload checks the size limit and the quota before anything is written,
// then stores data and returns the attachment metadata to put on a message.
func (s *AttachmentService) Upload(ctx context.Context, userID int64, filename, contentType string, data []byte) (*models.Attachment, error) {
	size := int64(len(data))
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, the limit is %d", common.ErrValidation, filename, size, s.maxFileSize)
	}

	user, err := s.repomanager.Users(s.repomanager.Conn()).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := s.store.UsageBytes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if quota := s.quota(user); used+size > quota {
		return nil, fmt.Errorf("%w: %d of %d bytes used", common.ErrStorageQuotaExceeded, used, quota)
	}

	name, err := s.store.Save(ctx, userID, filename, data)
	if err != nil {
		return nil, err
	}
	if _, err := refreshStorageUsed(ctx, s.repomanager, s.store, userID); err != nil {
		s.logger.Warn(ctx, "storage usage refresh failed", "user_id", userID, "error", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.logger.Debug(ctx, "attachment stored", "user_id", userID, "path", name, "size", size)
	return &models.Attachment{Filename: filex.SanitizeName(filename), Path: name, Size: size, MimeType: contentType}, nil
}

// Remove deletes one stored file and reports whether it existed.
func (s *AttachmentService) Remove(ctx context.Context, userID int64, storedName string) (bool, error) {
	ok, err := s.store.Delete(ctx, userID, storedName)
	if err != nil {
		return false, err
	}
	if ok {
		if _, err := refreshStorageUsed(ctx, s.repomanager, s.store, userID); err != nil {
			s.logger.Warn(ctx, "storage usage refresh failed", "user_id", userID, "error", err)
		}
	}
	return ok, nil
}

func (s *AttachmentService) Load(ctx context.Context, userID int64, storedName string) ([]byte, error) {
	return s.store.Load(ctx, userID, storedName)
}

func (s *AttachmentService) Usage(ctx context.Context, userID int64) (*Usage, error) {
	user, err := s.repomanager.Users(s.repomanager.Conn()).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := s.store.UsageBytes(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Usage{Used: used, Quota: s.quota(user)}, nil
}

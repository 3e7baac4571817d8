package service

import (
	"context"
	"errors"
	"strings"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
	"scan2cal/calendar-app/internal/storage"
)

// TextService reads cleaned document text. There is no cache and no retry:
// a missing object usually means the cleaner has not finished yet.
type TextService interface {
	GetText(ctx context.Context, p domain.Principal, key string) (string, error)
	GetUploadText(ctx context.Context, p domain.Principal, uploadID string) (string, error)
}

type textService struct {
	uploadRepo repository.UploadRepository
	storage    storage.FileStorage
	log        logging.Logger
}

func NewTextService(uploadRepo repository.UploadRepository, fileStorage storage.FileStorage, log logging.Logger) TextService {
	if log == nil {
		log = logging.Nop()
	}
	return &textService{uploadRepo: uploadRepo, storage: fileStorage, log: log}
}

// GetText fetches the cleaned text at key. Keys outside the caller's cleaned
// folder are reported exactly like missing ones.
func (s *textService) GetText(ctx context.Context, p domain.Principal, key string) (string, error) {
	if p.IsZero() {
		return "", ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "text", "get", "account_id", p.AccountID, "key", key)

	key = strings.TrimSpace(key)
	if !storage.HasPrefixStrict(key, storage.CleanedPrefix(p.Folder())) {
		logFailure(ctx, log, "text key outside folder", ErrNotFound)
		return "", ErrNotFound
	}
	return s.read(ctx, log, key)
}

// GetUploadText resolves the upload's clean key, then reads it.
func (s *textService) GetUploadText(ctx context.Context, p domain.Principal, uploadID string) (string, error) {
	if p.IsZero() {
		return "", ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "text", "get_upload", "account_id", p.AccountID, "upload_id", uploadID)

	upload, err := s.uploadRepo.GetByIDForAccount(ctx, uploadID, p.AccountID)
	if err != nil {
		err = fromRepo("get upload", err)
		logFailure(ctx, log, "text lookup failed", err)
		return "", err
	}
	return s.read(ctx, log.With("key", upload.CleanKey), upload.CleanKey)
}

func (s *textService) read(ctx context.Context, log logging.Logger, key string) (string, error) {
	data, err := s.storage.ReadObject(ctx, key)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		log.Warn(ctx, "cleaned text not available yet")
		return "", ErrNotFound
	case err != nil:
		err = infraErr("read text", err)
		logFailure(ctx, log, "text read failed", err)
		return "", err
	}
	return string(data), nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
	"scan2cal/calendar-app/internal/storage"
)

// DefaultContentType is signed when a file spec names no content type.
const DefaultContentType = "application/octet-stream"

// FileSpec names one file the caller is about to upload.
type FileSpec struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// PresignedUpload is a single-use PUT target.
type PresignedUpload struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ConfirmRequest reports a finished PUT. ETag and Size are client hints.
type ConfirmRequest struct {
	Key  string `json:"key" binding:"required"`
	ETag string `json:"etag,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

// CleanedSource is a cleaned text object the caller can extract events from.
// UploadID is empty when no upload row points at the key.
type CleanedSource struct {
	Key          string    `json:"key"`
	UploadID     string    `json:"uploadId,omitempty"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

type UploadService interface {
	Presign(ctx context.Context, p domain.Principal, files []FileSpec) ([]PresignedUpload, error)
	Confirm(ctx context.Context, p domain.Principal, req ConfirmRequest) (*domain.Upload, error)
	ListUploads(ctx context.Context, p domain.Principal) ([]domain.Upload, error)
	DeleteUpload(ctx context.Context, p domain.Principal, uploadID string) error
	ListCleanedSources(ctx context.Context, p domain.Principal) ([]CleanedSource, error)
}

// UploadOption customizes an UploadService.
type UploadOption func(*uploadService)

// WithClock replaces time.Now for key dates and timestamps.
func WithClock(now func() time.Time) UploadOption {
	return func(s *uploadService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random id placed in every upload key.
func WithIDGenerator(newID func() string) UploadOption {
	return func(s *uploadService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

type uploadService struct {
	uploadRepo repository.UploadRepository
	storage    storage.FileStorage
	now        func() time.Time
	newID      func() string
	log        logging.Logger
}

func NewUploadService(uploadRepo repository.UploadRepository, fileStorage storage.FileStorage, log logging.Logger, opts ...UploadOption) UploadService {
	if log == nil {
		log = logging.Nop()
	}
	s := &uploadService{
		uploadRepo: uploadRepo,
		storage:    fileStorage,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Presign signs one PUT per file. URLs are generated concurrently and
// returned in input order; any signing failure fails the whole batch.
func (s *uploadService) Presign(ctx context.Context, p domain.Principal, files []FileSpec) ([]PresignedUpload, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "upload", "presign", "account_id", p.AccountID)

	// 1. Validate input
	verr := &ValidationError{}
	if len(files) == 0 {
		verr.add("files", "at least one file is required")
	}
	for i, f := range files {
		if strings.TrimSpace(f.Filename) == "" {
			verr.add(fmt.Sprintf("files[%d].filename", i), "filename is required")
		}
	}
	if err := verr.orNil(); err != nil {
		logFailure(ctx, log, "presign rejected", err)
		return nil, err
	}

	// 2. Build keys up front so ids and dates do not depend on scheduling
	now := s.now()
	out := make([]PresignedUpload, len(files))
	for i, f := range files {
		contentType := strings.TrimSpace(f.ContentType)
		if contentType == "" {
			contentType = DefaultContentType
		}
		out[i] = PresignedUpload{
			Key:         storage.BuildUploadKey(p.Folder(), now, s.newID(), strings.TrimSpace(f.Filename)),
			ContentType: contentType,
			ExpiresAt:   now.Add(storage.PresignedUploadExpiry),
		}
	}

	// 3. Sign concurrently
	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			url, err := s.storage.GeneratePresignedUploadURL(gctx, out[i].Key, out[i].ContentType, storage.PresignedUploadExpiry)
			if err != nil {
				return fmt.Errorf("presign %s: %w", out[i].Key, err)
			}
			out[i].URL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		err = infraErr("presign upload", err)
		logFailure(ctx, log, "presign failed", err)
		return nil, err
	}

	log.Info(ctx, "presigned uploads", "count", len(out))
	return out, nil
}

// Confirm records a finished upload. The object itself is not inspected and
// repeated confirmations create repeated rows.
func (s *uploadService) Confirm(ctx context.Context, p domain.Principal, req ConfirmRequest) (*domain.Upload, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "upload", "confirm", "account_id", p.AccountID)

	key := strings.TrimSpace(req.Key)
	switch {
	case key == "":
		err := newValidationError("key", "key is required")
		logFailure(ctx, log, "confirm rejected", err)
		return nil, err
	case !storage.HasPrefixStrict(key, storage.UploadPrefix(p.Folder())):
		err := newValidationError("key", "key is outside the caller's upload folder")
		logFailure(ctx, log, "confirm rejected", err)
		return nil, err
	}

	upload := &domain.Upload{
		AccountID:  p.AccountID,
		BucketName: s.storage.BucketName(),
		ObjectKey:  key,
		CleanKey:   storage.DeriveCleanKey(key),
		Status:     domain.UploadStatusUploaded,
		Size:       req.Size,
		ETag:       strings.TrimSpace(req.ETag),
		CreatedAt:  s.now().UTC(),
	}
	id, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		err = fromRepo("create upload", err)
		logFailure(ctx, log, "confirm failed", err)
		return nil, err
	}
	upload.ID = id

	log.Info(ctx, "upload confirmed", "upload_id", id, "clean_key", upload.CleanKey)
	return upload, nil
}

// ListUploads returns the caller's uploads, oldest first.
func (s *uploadService) ListUploads(ctx context.Context, p domain.Principal) ([]domain.Upload, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	uploads, err := s.uploadRepo.ListByAccount(ctx, p.AccountID)
	if err != nil {
		err = fromRepo("list uploads", err)
		logFailure(ctx, serviceLogger(ctx, s.log, "upload", "list", "account_id", p.AccountID), "listing uploads failed", err)
		return nil, err
	}
	if uploads == nil {
		uploads = []domain.Upload{}
	}
	return uploads, nil
}

// DeleteUpload removes the raw object, the cleaned text and then the row.
func (s *uploadService) DeleteUpload(ctx context.Context, p domain.Principal, uploadID string) error {
	if p.IsZero() {
		return ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "upload", "delete", "account_id", p.AccountID, "upload_id", uploadID)

	upload, err := s.uploadRepo.GetByIDForAccount(ctx, uploadID, p.AccountID)
	if err != nil {
		err = fromRepo("get upload", err)
		logFailure(ctx, log, "delete upload failed", err)
		return err
	}

	for _, key := range []string{upload.ObjectKey, upload.CleanKey} {
		if key == "" {
			continue
		}
		if err := s.storage.DeleteObject(ctx, key); err != nil {
			err = infraErr("delete object", err)
			logFailure(ctx, log, "delete upload failed", err)
			return err
		}
	}

	if err := s.uploadRepo.DeleteForAccount(ctx, upload.ID, p.AccountID); err != nil {
		err = fromRepo("delete upload", err)
		logFailure(ctx, log, "delete upload failed", err)
		return err
	}
	log.Info(ctx, "upload deleted")
	return nil
}

// ListCleanedSources merges the caller's cleaned objects with the upload rows
// pointing at them. Sources backed by an upload come first in upload order,
// the remaining objects follow in listing order.
func (s *uploadService) ListCleanedSources(ctx context.Context, p domain.Principal) ([]CleanedSource, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "upload", "list_cleaned", "account_id", p.AccountID)

	objects, err := s.storage.ListObjects(ctx, storage.CleanedPrefix(p.Folder()))
	if err != nil {
		err = infraErr("list cleaned objects", err)
		logFailure(ctx, log, "listing cleaned sources failed", err)
		return nil, err
	}
	uploads, err := s.uploadRepo.ListByAccount(ctx, p.AccountID)
	if err != nil {
		err = fromRepo("list uploads", err)
		logFailure(ctx, log, "listing cleaned sources failed", err)
		return nil, err
	}

	byKey := make(map[string]storage.ObjectInfo, len(objects))
	for _, o := range objects {
		byKey[o.Key] = o
	}

	seen := make(map[string]bool, len(objects))
	sources := make([]CleanedSource, 0, len(objects))
	for _, u := range uploads {
		obj, ok := byKey[u.CleanKey]
		if !ok || seen[u.CleanKey] {
			continue
		}
		seen[u.CleanKey] = true
		sources = append(sources, CleanedSource{Key: obj.Key, UploadID: u.ID, Size: obj.Size, LastModified: obj.LastModified})
	}
	for _, o := range objects {
		if seen[o.Key] {
			continue
		}
		seen[o.Key] = true
		sources = append(sources, CleanedSource{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
	}
	return sources, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/storage"
)

func newTestUploadService(repo *fakeUploadRepo, st *fakeStorage) UploadService {
	return NewUploadService(repo, st, nil, WithClock(fixedClock), WithIDGenerator(sequentialIDs("id-")))
}

func TestPresign_BuildsKeysInInputOrder(t *testing.T) {
	svc := newTestUploadService(newFakeUploadRepo(), newFakeStorage())

	got, err := svc.Presign(context.Background(), owner, []FileSpec{
		{Filename: "syllabus.pdf", ContentType: "application/pdf"},
		{Filename: "My Notes (v2).json"},
		{Filename: "  timetable.pdf ", ContentType: " application/pdf "},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "uploads/u42/2025/03/01/id-1-syllabus.pdf", got[0].Key)
	assert.Equal(t, "uploads/u42/2025/03/01/id-2-My-Notes-v2.json", got[1].Key)
	assert.Equal(t, "uploads/u42/2025/03/01/id-3-timetable.pdf", got[2].Key)

	assert.Equal(t, "application/pdf", got[0].ContentType)
	assert.Equal(t, DefaultContentType, got[1].ContentType)
	assert.Equal(t, "application/pdf", got[2].ContentType)

	for _, p := range got {
		assert.Contains(t, p.URL, p.Key)
		assert.Contains(t, p.URL, "X-Amz-Expires=60")
		assert.Equal(t, fixedNow.Add(storage.PresignedUploadExpiry), p.ExpiresAt)
	}
}

func TestPresign_Rejections(t *testing.T) {
	svc := newTestUploadService(newFakeUploadRepo(), newFakeStorage())
	ctx := context.Background()

	_, err := svc.Presign(ctx, domain.Principal{}, []FileSpec{{Filename: "a.pdf"}})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Presign(ctx, owner, nil)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "files")

	_, err = svc.Presign(ctx, owner, []FileSpec{{Filename: "a.pdf"}, {Filename: "  "}})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"files[1].filename": "filename is required"}, vErr.FieldErrors)
}

func TestPresign_StorageFailureIsInfrastructure(t *testing.T) {
	st := newFakeStorage()
	st.presignErr = errors.New("credentials expired")
	svc := newTestUploadService(newFakeUploadRepo(), st)

	_, err := svc.Presign(context.Background(), owner, []FileSpec{{Filename: "a.pdf"}, {Filename: "b.pdf"}})
	var iErr *InfrastructureError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, "infrastructure", ErrorKind(err))
}

func TestConfirm(t *testing.T) {
	repo := newFakeUploadRepo()
	svc := newTestUploadService(repo, newFakeStorage())
	ctx := context.Background()
	size := int64(2048)

	up, err := svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-1-syllabus.pdf", ETag: `"abc"`, Size: &size})
	require.NoError(t, err)
	assert.Equal(t, "up-1", up.ID)
	assert.Equal(t, "cleaned/u42/2025/03/01/id-1-syllabus.txt", up.CleanKey)
	assert.Equal(t, domain.UploadStatusUploaded, up.Status)
	assert.Equal(t, "scan2cal-test", up.BucketName)
	assert.Equal(t, owner.AccountID, up.AccountID)
	assert.Equal(t, &size, up.Size)

	_, err = svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-1-syllabus.pdf"})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 2, "confirm is not idempotent")
}

func TestConfirm_RejectsForeignKeys(t *testing.T) {
	repo := newFakeUploadRepo()
	svc := newTestUploadService(repo, newFakeStorage())

	for _, key := range []string{"", "uploads/u7/2025/03/01/x.pdf", "cleaned/u42/x.txt", "uploads/u42/", "uploads/u420/x.pdf"} {
		_, err := svc.Confirm(context.Background(), owner, ConfirmRequest{Key: key})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "key %q", key)
	}
	assert.Empty(t, repo.rows)

	_, err := svc.Confirm(context.Background(), domain.Principal{}, ConfirmRequest{Key: "uploads/u42/a.pdf"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeleteUpload(t *testing.T) {
	repo := newFakeUploadRepo()
	st := newFakeStorage()
	svc := newTestUploadService(repo, st)
	ctx := context.Background()

	up, err := svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-1-a.pdf"})
	require.NoError(t, err)
	st.put(up.ObjectKey, "%PDF")
	st.put(up.CleanKey, "text")

	assert.ErrorIs(t, svc.DeleteUpload(ctx, stranger, up.ID), ErrNotFound)
	assert.Empty(t, st.deleted)

	require.NoError(t, svc.DeleteUpload(ctx, owner, up.ID))
	assert.Equal(t, []string{up.ObjectKey, up.CleanKey}, st.deleted)
	assert.Empty(t, repo.rows)

	assert.ErrorIs(t, svc.DeleteUpload(ctx, owner, up.ID), ErrNotFound)
}

func TestListCleanedSources_MergesRowsFirst(t *testing.T) {
	repo := newFakeUploadRepo()
	st := newFakeStorage()
	svc := newTestUploadService(repo, st)
	ctx := context.Background()

	st.put("cleaned/u42/2025/01/01/manual.txt", "x")
	st.put("cleaned/u42/2025/03/01/id-1-b.txt", "bb")
	st.put("cleaned/u7/2025/03/01/other.txt", "zzz")

	_, err := svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-1-b.pdf"})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-1-b.pdf"})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, owner, ConfirmRequest{Key: "uploads/u42/2025/03/01/id-2-pending.pdf"})
	require.NoError(t, err)

	got, err := svc.ListCleanedSources(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, CleanedSource{Key: "cleaned/u42/2025/03/01/id-1-b.txt", UploadID: "up-1", Size: 2, LastModified: fixedNow}, got[0])
	assert.Equal(t, CleanedSource{Key: "cleaned/u42/2025/01/01/manual.txt", Size: 1, LastModified: fixedNow}, got[1])
}

func TestListUploads_NeverNil(t *testing.T) {
	svc := newTestUploadService(newFakeUploadRepo(), newFakeStorage())
	got, err := svc.ListUploads(context.Background(), owner)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

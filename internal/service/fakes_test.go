package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
	"scan2cal/calendar-app/internal/storage"
)

var (
	owner    = domain.Principal{AccountID: "acc-1", FolderKey: "u42"}
	stranger = domain.Principal{AccountID: "acc-2", FolderKey: "u7"}
	fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedNow }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// --- storage ---

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	modified   map[string]time.Time
	deleted    []string
	presignErr error
	readErr    error
	listErr    error
	deleteErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, modified: map[string]time.Time{}}
}

func (f *fakeStorage) put(key, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = []byte(body)
	f.modified[key] = fixedNow
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, contentType string, expires time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://s3.test/bucket/%s?X-Amz-Expires=%d&content-type=%s", key, int(expires.Seconds()), contentType), nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/bucket/" + key, nil
}

func (f *fakeStorage) ReadObject(_ context.Context, key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeStorage) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v)), LastModified: f.modified[k]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) BucketName() string { return "scan2cal-test" }

// --- uploads ---

type fakeUploadRepo struct {
	rows      []domain.Upload
	nextID    func() string
	createErr error
	listErr   error
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{nextID: sequentialIDs("up-")}
}

func (f *fakeUploadRepo) Create(_ context.Context, u *domain.Upload) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	row := *u
	row.ID = f.nextID()
	f.rows = append(f.rows, row)
	return row.ID, nil
}

func (f *fakeUploadRepo) GetByIDForAccount(_ context.Context, id, accountID string) (*domain.Upload, error) {
	for _, r := range f.rows {
		if r.ID == id && r.AccountID == accountID {
			out := r
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUploadRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Upload, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Upload
	for _, r := range f.rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeUploadRepo) DeleteForAccount(_ context.Context, id, accountID string) error {
	for i, r := range f.rows {
		if r.ID == id && r.AccountID == accountID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- calendars ---

type fakeCalendarRepo struct {
	calendars map[string]*domain.Calendar
	order     []string
	nextID    func() string
	calls     int
	err       error
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{calendars: map[string]*domain.Calendar{}, nextID: sequentialIDs("cal-")}
}

func cloneCalendar(c *domain.Calendar) *domain.Calendar {
	out := *c
	out.Events = append([]domain.Event{}, c.Events...)
	return &out
}

func (f *fakeCalendarRepo) Create(_ context.Context, c *domain.Calendar) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	stored := cloneCalendar(c)
	if stored.ID == "" {
		stored.ID = f.nextID()
	}
	stored.Version = 1
	f.calendars[stored.ID] = stored
	f.order = append(f.order, stored.ID)
	return stored.ID, nil
}

func (f *fakeCalendarRepo) ListByAccount(_ context.Context, accountID string) ([]domain.CalendarSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.CalendarSummary
	for _, id := range f.order {
		c, ok := f.calendars[id]
		if !ok || c.AccountID != accountID {
			continue
		}
		out = append(out, domain.CalendarSummary{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt, EventCount: len(c.Events)})
	}
	return out, nil
}

func (f *fakeCalendarRepo) GetByIDForAccount(_ context.Context, id, accountID string) (*domain.Calendar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.calendars[id]
	if !ok || c.AccountID != accountID {
		return nil, repository.ErrNotFound
	}
	return cloneCalendar(c), nil
}

func (f *fakeCalendarRepo) Save(_ context.Context, c *domain.Calendar, expected *int64) (*domain.Calendar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	existing, ok := f.calendars[c.ID]
	switch {
	case ok && existing.AccountID != c.AccountID:
		return nil, repository.ErrNotFound
	case ok && expected != nil && *expected != existing.Version:
		return nil, repository.ErrConflict
	case ok:
		existing.Name = c.Name
		existing.Events = append([]domain.Event{}, c.Events...)
		existing.UpdatedAt = c.UpdatedAt
		existing.Version++
		return cloneCalendar(existing), nil
	case expected != nil:
		return nil, repository.ErrNotFound
	}
	stored := cloneCalendar(c)
	stored.Version = 1
	stored.CreatedAt = c.UpdatedAt
	f.calendars[c.ID] = stored
	f.order = append(f.order, c.ID)
	return cloneCalendar(stored), nil
}

func (f *fakeCalendarRepo) DeleteForAccount(_ context.Context, id, accountID string) (*domain.Calendar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.calendars[id]
	if !ok || c.AccountID != accountID {
		return nil, repository.ErrNotFound
	}
	delete(f.calendars, id)
	return c, nil
}

// --- accounts ---

type fakeAccountRepo struct {
	bySubject map[string]*domain.Account
	nextID    func() string
	err       error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{bySubject: map[string]*domain.Account{}, nextID: sequentialIDs("acc-")}
}

func (f *fakeAccountRepo) UpsertBySubject(_ context.Context, a *domain.Account) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	stored, ok := f.bySubject[a.Subject]
	if !ok {
		stored = &domain.Account{ID: f.nextID(), Subject: a.Subject, CreatedAt: fixedNow}
		f.bySubject[a.Subject] = stored
	}
	stored.AccessToken = a.AccessToken
	stored.RefreshToken = a.RefreshToken
	stored.IDToken = a.IDToken
	stored.UpdatedAt = fixedNow
	out := *stored
	return &out, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	for _, a := range f.bySubject {
		if a.ID == id {
			out := *a
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- extraction ---

type fakeExtractor struct {
	events []domain.Event
	err    error
	texts  []string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) ([]domain.Event, error) {
	f.texts = append(f.texts, text)
	return f.events, f.err
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scan2cal/calendar-app/internal/domain"
)

func newTestCalendarService(repo *fakeCalendarRepo) CalendarService {
	svc := NewCalendarService(repo, nil)
	svc.(*calendarService).now = fixedClock
	return svc
}

func allDay(title, start string) domain.Event {
	return domain.Event{Title: title, Start: start, AllDay: true}
}

func TestSave_ReplacesWholeArray(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	a, b, c := allDay("A", "2025-04-01"), allDay("B", "2025-04-02"), allDay("C", "2025-04-03")

	first, err := svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Term", Events: []domain.Event{a, b}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	second, err := svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Term", Events: []domain.Event{c}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	got, err := svc.Get(ctx, owner, "5")
	require.NoError(t, err)
	if diff := cmp.Diff([]domain.Event{c}, got.Events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_NormalizesEvents(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())

	saved, err := svc.Save(context.Background(), owner, SaveRequest{ID: "x", Name: "  Spring  ", Events: []domain.Event{
		{Title: " ", Start: "2025-04-07T10:00", End: domain.StringPtr(""), ExtendedProps: domain.ExtendedProps{Location: domain.StringPtr("  ")}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Spring", saved.Name)
	want := []domain.Event{{Title: domain.DefaultEventTitle, Start: "2025-04-07T10:00:00"}}
	if diff := cmp.Diff(want, saved.Events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_RejectsMalformedEventsBeforeWriting(t *testing.T) {
	repo := newFakeCalendarRepo()
	svc := newTestCalendarService(repo)

	_, err := svc.Save(context.Background(), owner, SaveRequest{ID: "5", Name: "", Events: []domain.Event{
		allDay("ok", "2025-04-01"),
		{Title: "bad", Start: "2025-04-02T10:00:00", End: domain.StringPtr("2025-04-02T09:00:00")},
		{Title: "worse", Start: "soon"},
	}})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "name")
	assert.Contains(t, vErr.FieldErrors, "events[1].end")
	assert.Contains(t, vErr.FieldErrors, "events[2].start")
	assert.Zero(t, repo.calls)
}

func TestSave_ForeignIDIsNotFound(t *testing.T) {
	repo := newFakeCalendarRepo()
	svc := newTestCalendarService(repo)
	ctx := context.Background()

	_, err := svc.Save(ctx, stranger, SaveRequest{ID: "5", Name: "Theirs"})
	require.NoError(t, err)

	_, err = svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Mine", Events: []domain.Event{allDay("A", "2025-04-01")}})
	assert.ErrorIs(t, err, ErrNotFound)

	theirs, err := svc.Get(ctx, stranger, "5")
	require.NoError(t, err)
	assert.Equal(t, "Theirs", theirs.Name)
	assert.Empty(t, theirs.Events)
}

func TestSave_ExpectedVersion(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	v1, err := svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Term"})
	require.NoError(t, err)

	stale := v1.Version
	_, err = svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Term", ExpectedVersion: &stale})
	require.NoError(t, err)

	_, err = svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Term", ExpectedVersion: &stale})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "conflict", ErrorKind(err))
}

func TestDelete_NotOwnedEqualsMissing(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	cal, err := svc.Create(ctx, owner, "Mine", "")
	require.NoError(t, err)

	_, errForeign := svc.Delete(ctx, stranger, cal.ID)
	_, errMissing := svc.Delete(ctx, stranger, "does-not-exist")
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)

	deleted, err := svc.Delete(ctx, owner, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, &DeletedCalendar{ID: cal.ID, Name: "Mine"}, deleted)

	_, err = svc.Get(ctx, owner, cal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalendar_UnauthorizedBeforePersistence(t *testing.T) {
	repo := newFakeCalendarRepo()
	svc := newTestCalendarService(repo)
	ctx := context.Background()
	anon := domain.Principal{}

	_, err := svc.Create(ctx, anon, "x", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.List(ctx, anon)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Get(ctx, anon, "5")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Save(ctx, anon, SaveRequest{ID: "5", Name: "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Delete(ctx, anon, "5")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.ImportICS(ctx, anon, "x", []byte("BEGIN:VCALENDAR"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Zero(t, repo.calls)
}

func TestCreateAndList(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	empty, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = svc.Create(ctx, owner, "  ", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	cal, err := svc.Create(ctx, owner, "Fall", "courses")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cal.Version)
	assert.NotNil(t, cal.Events)

	_, err = svc.Save(ctx, owner, SaveRequest{ID: cal.ID, Name: "Fall", Events: []domain.Event{allDay("A", "2025-09-01")}})
	require.NoError(t, err)

	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cal.ID, list[0].ID)
	assert.Equal(t, 1, list[0].EventCount)
	assert.Equal(t, "courses", list[0].Description)
}

func TestRepositoryFailureIsInfrastructure(t *testing.T) {
	repo := newFakeCalendarRepo()
	repo.err = errors.New("connection refused")
	svc := newTestCalendarService(repo)

	_, err := svc.Get(context.Background(), owner, "5")
	var iErr *InfrastructureError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, "get calendar", iErr.Op)
}

const sampleICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:a@test\r\nDTSTAMP:20250301T120000Z\r\nDTSTART;VALUE=DATE:20250410\r\nSUMMARY:Midterm\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportICS(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	cal, err := svc.ImportICS(ctx, owner, " ", []byte(sampleICS))
	require.NoError(t, err)
	assert.Equal(t, DefaultImportName, cal.Name)
	assert.Equal(t, []domain.Event{allDay("Midterm", "2025-04-10")}, cal.Events)

	stored, err := svc.Get(ctx, owner, cal.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Events, 1)
}

func TestImportICS_Rejections(t *testing.T) {
	repo := newFakeCalendarRepo()
	svc := newTestCalendarService(repo)
	ctx := context.Background()

	for name, data := range map[string]string{
		"empty":     "",
		"no events": "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\nEND:VCALENDAR\r\n",
	} {
		_, err := svc.ImportICS(ctx, owner, "x", []byte(data))
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, name)
	}

	_, err := svc.ImportICS(ctx, owner, "x", []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\nEND:VCALENDAR\r\n"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, MsgNoEvents, vErr.FieldErrors["ics"])
	assert.Zero(t, repo.calls)
}

func TestExportICS(t *testing.T) {
	svc := newTestCalendarService(newFakeCalendarRepo())
	ctx := context.Background()

	_, err := svc.Save(ctx, owner, SaveRequest{ID: "5", Name: "Fall Term", Events: []domain.Event{allDay("Midterm", "2025-04-10")}})
	require.NoError(t, err)

	filename, data, err := svc.ExportICS(ctx, owner, "5")
	require.NoError(t, err)
	assert.Equal(t, "Fall-Term.ics", filename)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:Midterm")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250410")

	_, _, err = svc.ExportICS(ctx, stranger, "5")
	assert.ErrorIs(t, err, ErrNotFound)
}

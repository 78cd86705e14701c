package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type fakeCalendar struct {
	listQuery url.Values
	inserted  *gcal.Event
	items     []*gcal.Event
}

func (f *fakeCalendar) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/events"):
			f.listQuery = r.URL.Query()
			json.NewEncoder(w).Encode(map[string]any{"items": f.items})
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/events"):
			var event gcal.Event
			json.NewDecoder(r.Body).Decode(&event)
			event.Id = "evt-1"
			f.inserted = &event
			json.NewEncoder(w).Encode(event)
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeCalendar) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	svc, err := gcal.NewService(context.Background(), option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("calendar service: %v", err)
	}
	return NewClient(svc, nil, zap.NewNop())
}

func TestUpcomingEventsWindow(t *testing.T) {
	fake := &fakeCalendar{items: []*gcal.Event{
		{Id: "e1", Summary: "Dentist", Start: &gcal.EventDateTime{DateTime: "2026-09-01T10:00:00Z"}},
		{Id: "e2", Summary: "Holiday", Start: &gcal.EventDateTime{Date: "2026-09-02"}},
	}}
	client := newTestClient(t, fake)
	client.now = func() time.Time {
		return time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC)
	}

	events, err := client.UpcomingEvents(context.Background())
	if err != nil {
		t.Fatalf("UpcomingEvents: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Start.DateTime == "" || events[0].Start.Date != "" {
		t.Errorf("timed event start = %+v", events[0].Start)
	}
	if events[1].Start.Date != "2026-09-02" {
		t.Errorf("all-day event start = %+v", events[1].Start)
	}

	if got := fake.listQuery.Get("timeMin"); got != "2026-09-01T00:00:00Z" {
		t.Errorf("timeMin = %q, want local midnight", got)
	}
	if got := fake.listQuery.Get("singleEvents"); got != "true" {
		t.Errorf("singleEvents = %q", got)
	}
	if got := fake.listQuery.Get("orderBy"); got != "startTime" {
		t.Errorf("orderBy = %q", got)
	}
}

func TestAddTimedEvent(t *testing.T) {
	fake := &fakeCalendar{}
	client := newTestClient(t, fake)

	start := time.Date(2026, 9, 3, 18, 0, 0, 0, time.UTC)
	event, err := client.AddEvent(context.Background(), "Family dinner", start, false)
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	if event.ID != "evt-1" {
		t.Errorf("ID = %q", event.ID)
	}
	if fake.inserted.Start.DateTime != "2026-09-03T18:00:00Z" {
		t.Errorf("start = %q", fake.inserted.Start.DateTime)
	}
	if fake.inserted.End.DateTime != "2026-09-03T19:00:00Z" {
		t.Errorf("end = %q, want one hour after start", fake.inserted.End.DateTime)
	}
}

func TestAddAllDayEvent(t *testing.T) {
	fake := &fakeCalendar{}
	client := newTestClient(t, fake)

	start := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	if _, err := client.AddEvent(context.Background(), "School holiday", start, true); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	if fake.inserted.Start.Date != "2026-09-04" || fake.inserted.Start.DateTime != "" {
		t.Errorf("start = %+v, want date-only", fake.inserted.Start)
	}
	if fake.inserted.End.Date != "2026-09-04" {
		t.Errorf("end = %+v, want same date", fake.inserted.End)
	}
}

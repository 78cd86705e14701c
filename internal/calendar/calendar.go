// Package calendar reads and adds events on the family's primary
// Google calendar. Events are never updated or deleted here.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const maxUpcomingEvents = 50

// Event is the calendar entry shape served to the UI. Exactly one of
// Start.DateTime / Start.Date is set, matching timed vs all-day
// events.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   EventTime `json:"start"`
	End     EventTime `json:"end"`
}

// EventTime carries either an instant or a date-only value.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Client wraps the calendar service.
type Client struct {
	svc            *gcal.Service
	onUnauthorized func()
	log            *zap.Logger

	now func() time.Time
}

// NewClient creates a Client for the primary calendar.
func NewClient(svc *gcal.Service, onUnauthorized func(), log *zap.Logger) *Client {
	return &Client{
		svc:            svc,
		onUnauthorized: onUnauthorized,
		log:            log,
		now:            time.Now,
	}
}

// UpcomingEvents lists events from local midnight onward, expanded and
// ordered by start time, capped at 50.
func (c *Client) UpcomingEvents(ctx context.Context) ([]Event, error) {
	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	resp, err := c.svc.Events.List("primary").
		TimeMin(midnight.Format(time.RFC3339)).
		MaxResults(maxUpcomingEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, c.check(fmt.Errorf("failed to list events: %w", err))
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, fromAPI(item))
	}
	return events, nil
}

// AddEvent creates an event. All-day events use the date-only form
// with end date equal to start date, which is how the calendar API
// expects single all-day entries.
func (c *Client) AddEvent(ctx context.Context, summary string, start time.Time, allDay bool) (Event, error) {
	event := &gcal.Event{Summary: summary}
	if allDay {
		date := start.Format("2006-01-02")
		event.Start = &gcal.EventDateTime{Date: date}
		event.End = &gcal.EventDateTime{Date: date}
	} else {
		event.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)}
		event.End = &gcal.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)}
	}

	created, err := c.svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return Event{}, c.check(fmt.Errorf("failed to create event: %w", err))
	}
	c.log.Info("calendar event created", zap.String("summary", summary))
	return fromAPI(created), nil
}

func fromAPI(item *gcal.Event) Event {
	out := Event{ID: item.Id, Summary: item.Summary}
	if item.Start != nil {
		out.Start = EventTime{DateTime: item.Start.DateTime, Date: item.Start.Date}
	}
	if item.End != nil {
		out.End = EventTime{DateTime: item.End.DateTime, Date: item.End.Date}
	}
	return out
}

func (c *Client) check(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 401 && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return err
}

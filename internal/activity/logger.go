// Package activity keeps a per-day NDJSON trail of every bus event so the
// lab can see who changed what on a given shift.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/panicerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

const prefix = "activity"

type entry struct {
	*eventbus.Event
	LoggedAt time.Time `json:"loggedAt"`
}

// Logger appends events to daily log documents.
type Logger struct {
	store storage.Storage
	loc   *time.Location
	now   func() time.Time
}

func NewLogger(store storage.Storage, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{store: store, loc: loc, now: time.Now}
}

func logPath(day date.Date) string {
	return fmt.Sprintf("%s/events_%s.ndjson", prefix, day)
}

// Log appends event to the log of the day it was created on.
func (l *Logger) Log(ctx context.Context, event *eventbus.Event) error {
	line, err := json.Marshal(entry{Event: event, LoggedAt: l.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	line = append(line, '\n')
	if err := l.store.Append(ctx, logPath(date.Of(event.CreatedAt.In(l.loc))), line); err != nil {
		return cerr.WrapStorageWriteError("activity log", err)
	}
	return nil
}

// Run logs every bus event until ctx ends.
func (l *Logger) Run(ctx context.Context, bus *eventbus.Bus) {
	subID, ch := bus.Subscribe(256)
	defer bus.Unsubscribe(subID)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			err := panicerr.Do(func() {
				if err := l.Log(ctx, event); err != nil {
					slog.ErrorContext(ctx, "failed to log activity", "event_id", event.ID, "error", err)
				}
			})
			if err != nil {
				slog.ErrorContext(ctx, "activity logger panicked", "event_id", event.ID, "error", err)
			}
		}
	}
}

// Filter narrows a day's events. Zero fields match everything.
type Filter struct {
	Type       eventbus.Type
	ResourceID string
}

func (f Filter) match(e *eventbus.Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	return true
}

// Read returns the events logged for day in the order they were written.
// Lines that fail to decode are skipped.
func (l *Logger) Read(ctx context.Context, day date.Date, f Filter) ([]*eventbus.Event, error) {
	data, err := l.store.Read(ctx, logPath(day))
	if errors.Is(err, storage.ErrNotFound) {
		return []*eventbus.Event{}, nil
	}
	if err != nil {
		return nil, cerr.WrapStorageReadError("activity log", err)
	}
	events := []*eventbus.Event{}
	for line := range bytes.Lines(data) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil || e.Event == nil {
			slog.WarnContext(ctx, "skipping malformed activity line", "day", day.String(), "error", err)
			continue
		}
		if f.match(e.Event) {
			events = append(events, e.Event)
		}
	}
	return events, nil
}

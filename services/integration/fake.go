package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"slotline/models"
)

// FakeCalendar is an in-memory CalendarClient for tests and local runs.
type FakeCalendar struct {
	mu     sync.Mutex
	Busy   []models.Interval
	Events map[string]models.Interval
	Fail   bool

	nextID int
}

func NewFakeCalendar() *FakeCalendar {
	return &FakeCalendar{Events: make(map[string]models.Interval)}
}

func (f *FakeCalendar) GetBusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return nil, errors.New("calendar unavailable")
	}
	query := models.Interval{Start: start, End: end}
	var out []models.Interval
	for _, iv := range f.Busy {
		if iv.Overlaps(query) {
			out = append(out, iv)
		}
	}
	for _, iv := range f.Events {
		if iv.Overlaps(query) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (f *FakeCalendar) CreateEvent(ctx context.Context, booking *models.Booking) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return "", errors.New("calendar unavailable")
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.Events[id] = models.Interval{Start: booking.StartTime, End: booking.EndTime()}
	return id, nil
}

func (f *FakeCalendar) UpdateEvent(ctx context.Context, eventID string, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return errors.New("calendar unavailable")
	}
	if _, ok := f.Events[eventID]; !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	f.Events[eventID] = models.Interval{Start: booking.StartTime, End: booking.EndTime()}
	return nil
}

func (f *FakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return errors.New("calendar unavailable")
	}
	delete(f.Events, eventID)
	return nil
}

// FakeCRM is an in-memory CRMClient for tests and local runs.
type FakeCRM struct {
	mu       sync.Mutex
	Contacts map[string]string // contactID -> last status
	Fail     bool

	nextID int
}

func NewFakeCRM() *FakeCRM {
	return &FakeCRM{Contacts: make(map[string]string)}
}

func (f *FakeCRM) UpsertContact(ctx context.Context, booking *models.Booking) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return "", errors.New("crm unavailable")
	}
	f.nextID++
	id := fmt.Sprintf("ct-%d", f.nextID)
	f.Contacts[id] = booking.Status
	return id, nil
}

func (f *FakeCRM) UpdateStatus(ctx context.Context, contactID, bookingStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return errors.New("crm unavailable")
	}
	if _, ok := f.Contacts[contactID]; !ok {
		return fmt.Errorf("contact %s not found", contactID)
	}
	f.Contacts[contactID] = bookingStatus
	return nil
}

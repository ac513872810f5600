package utils

import (
	"fmt"
	"testing"

	"watershed-sync/src/models"
)

func numberedEvents(n int) []models.MProgressEvent {
	events := make([]models.MProgressEvent, n)
	for i := range events {
		events[i] = models.MProgressEvent{Kind: models.EventLog, Message: fmt.Sprintf("event %d", i)}
	}
	return events
}

func TestEventBuffer(t *testing.T) {
	t.Run("append below capacity keeps insertion order", func(t *testing.T) {
		rb := NewEventBuffer(5)
		for _, e := range numberedEvents(3) {
			rb.Append(e)
		}
		if rb.Size() != 3 {
			t.Fatalf("Size() = %d; want 3", rb.Size())
		}
		all := rb.GetAll()
		for i, e := range all {
			want := fmt.Sprintf("event %d", i)
			if e.Message != want {
				t.Errorf("GetAll()[%d] = %q; want %q", i, e.Message, want)
			}
		}
	})

	t.Run("overflow drops the oldest", func(t *testing.T) {
		rb := NewEventBuffer(3)
		for _, e := range numberedEvents(5) {
			rb.Append(e)
		}
		if rb.Size() != 3 {
			t.Fatalf("Size() = %d; want the capacity 3", rb.Size())
		}
		all := rb.GetAll()
		if all[0].Message != "event 2" || all[2].Message != "event 4" {
			t.Errorf("GetAll() = %q..%q; want event 2..event 4", all[0].Message, all[2].Message)
		}
	})

	t.Run("latest window is oldest first", func(t *testing.T) {
		rb := NewEventBuffer(10)
		for _, e := range numberedEvents(6) {
			rb.Append(e)
		}
		latest := rb.GetLatest(3)
		if len(latest) != 3 {
			t.Fatalf("GetLatest(3) returned %d events; want 3", len(latest))
		}
		if latest[0].Message != "event 3" || latest[2].Message != "event 5" {
			t.Errorf("GetLatest(3) = %q..%q; want event 3..event 5", latest[0].Message, latest[2].Message)
		}
	})

	t.Run("latest clamps to what is buffered", func(t *testing.T) {
		rb := NewEventBuffer(10)
		for _, e := range numberedEvents(2) {
			rb.Append(e)
		}
		if got := rb.GetLatest(100); len(got) != 2 {
			t.Errorf("GetLatest(100) returned %d events; want 2", len(got))
		}
		if got := rb.GetLatest(0); len(got) != 0 {
			t.Errorf("GetLatest(0) returned %d events; want 0", len(got))
		}
	})

	t.Run("clear empties without reallocating", func(t *testing.T) {
		rb := NewEventBuffer(4)
		for _, e := range numberedEvents(4) {
			rb.Append(e)
		}
		rb.Clear()
		if rb.Size() != 0 {
			t.Errorf("Size() after Clear = %d; want 0", rb.Size())
		}
		if rb.Capacity() != 4 {
			t.Errorf("Capacity() after Clear = %d; want 4", rb.Capacity())
		}
		if got := rb.GetAll(); len(got) != 0 {
			t.Errorf("GetAll() after Clear returned %d events; want 0", len(got))
		}
	})

	t.Run("zero capacity falls back to the default", func(t *testing.T) {
		rb := NewEventBuffer(0)
		if rb.Capacity() != 256 {
			t.Errorf("Capacity() = %d; want the 256 default", rb.Capacity())
		}
	})
}

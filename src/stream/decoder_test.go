package stream

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"watershed-sync/src/helpers"
	"watershed-sync/src/models"
)

const stageRecordJSON = `{
	"code": "00065",
	"site_number": "02198500",
	"name": "SAVANNAH RIVER AT CLYO",
	"times": ["2025-03-01T00:00:00Z", "2025-03-01T00:15:00Z"],
	"values": [9.61, 9.64]
}`

const flowRecordJSON = `{
	"code": "00060",
	"site_number": "02197000",
	"name": "SAVANNAH RIVER AT AUGUSTA",
	"times": [1740787200, 1740790800],
	"values": [6230.0, 6310.0]
}`

func collectRecords() (*[]*models.MSiteRecord, func(*models.MSiteRecord) error) {
	var got []*models.MSiteRecord
	return &got, func(r *models.MSiteRecord) error {
		got = append(got, r)
		return nil
	}
}

func TestRecordScanner(t *testing.T) {
	t.Run("single record emits once", func(t *testing.T) {
		got, emit := collectRecords()
		s := NewRecordScanner(emit)
		if err := s.Feed([]byte(stageRecordJSON)); err != nil {
			t.Fatalf("Feed() err = %v; want nil", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() err = %v; want nil", err)
		}
		if len(*got) != 1 {
			t.Fatalf("emitted %d records; want 1", len(*got))
		}
		rec := (*got)[0]
		if rec.SiteNumber != "02198500" || rec.Code != "00065" {
			t.Errorf("record = %s/%s; want 02198500/00065", rec.SiteNumber, rec.Code)
		}
		if len(rec.Times) != 2 || len(rec.Values) != 2 {
			t.Errorf("record has %d times and %d values; want 2 and 2", len(rec.Times), len(rec.Values))
		}
	})

	t.Run("concatenated records emit in order", func(t *testing.T) {
		got, emit := collectRecords()
		s := NewRecordScanner(emit)
		if err := s.Feed([]byte(stageRecordJSON + "\n" + flowRecordJSON)); err != nil {
			t.Fatalf("Feed() err = %v; want nil", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() err = %v; want nil", err)
		}
		if len(*got) != 2 {
			t.Fatalf("emitted %d records; want 2", len(*got))
		}
		if (*got)[0].Code != "00065" || (*got)[1].Code != "00060" {
			t.Errorf("order = %s, %s; want 00065, 00060", (*got)[0].Code, (*got)[1].Code)
		}
	})

	t.Run("epoch timestamps decode to UTC", func(t *testing.T) {
		got, emit := collectRecords()
		s := NewRecordScanner(emit)
		if err := s.Feed([]byte(flowRecordJSON)); err != nil {
			t.Fatalf("Feed() err = %v; want nil", err)
		}
		rec := (*got)[0]
		if rec.Times[0].Unix() != 1740787200 {
			t.Errorf("Times[0] = %v; want epoch 1740787200", rec.Times[0])
		}
	})

	t.Run("braces and quotes inside strings are ignored", func(t *testing.T) {
		got, emit := collectRecords()
		s := NewRecordScanner(emit)
		tricky := `{"code":"00065","site_number":"1","name":"BRACE } AND \" QUOTE {","times":[0,60],"values":[1,2]}`
		if err := s.Feed([]byte(tricky)); err != nil {
			t.Fatalf("Feed() err = %v; want nil", err)
		}
		if len(*got) != 1 {
			t.Fatalf("emitted %d records; want 1", len(*got))
		}
		if (*got)[0].Name != `BRACE } AND " QUOTE {` {
			t.Errorf("name = %q; survived string handling wrong", (*got)[0].Name)
		}
	})

	t.Run("chunking never changes the result", func(t *testing.T) {
		payload := []byte(stageRecordJSON + flowRecordJSON + stageRecordJSON)
		rng := rand.New(rand.NewSource(42))

		for trial := 0; trial < 50; trial++ {
			got, emit := collectRecords()
			s := NewRecordScanner(emit)
			for i := 0; i < len(payload); {
				n := 1 + rng.Intn(17)
				if i+n > len(payload) {
					n = len(payload) - i
				}
				if err := s.Feed(payload[i : i+n]); err != nil {
					t.Fatalf("trial %d: Feed() err = %v; want nil", trial, err)
				}
				i += n
			}
			if err := s.Close(); err != nil {
				t.Fatalf("trial %d: Close() err = %v; want nil", trial, err)
			}
			if len(*got) != 3 {
				t.Fatalf("trial %d: emitted %d records; want 3", trial, len(*got))
			}
		}
	})

	t.Run("message object kills the stream", func(t *testing.T) {
		got, emit := collectRecords()
		s := NewRecordScanner(emit)
		err := s.Feed([]byte(`{"message": "watershed not found"}`))
		var provider *helpers.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("Feed() err = %v; want ProviderError", err)
		}
		if !strings.Contains(err.Error(), "watershed not found") {
			t.Errorf("err = %v; want the provider message carried through", err)
		}
		if len(*got) != 0 {
			t.Errorf("emitted %d records; want 0", len(*got))
		}
	})

	t.Run("failure is sticky", func(t *testing.T) {
		_, emit := collectRecords()
		s := NewRecordScanner(emit)
		first := s.Feed([]byte(`{"message": "boom"}`))
		if first == nil {
			t.Fatal("Feed() err = nil; want failure")
		}
		second := s.Feed([]byte(stageRecordJSON))
		if !errors.Is(second, first) {
			t.Errorf("second Feed() err = %v; want the original %v", second, first)
		}
		if closeErr := s.Close(); !errors.Is(closeErr, first) {
			t.Errorf("Close() err = %v; want the original %v", closeErr, first)
		}
	})

	t.Run("truncated stream fails on close", func(t *testing.T) {
		_, emit := collectRecords()
		s := NewRecordScanner(emit)
		if err := s.Feed([]byte(`{"code": "00065", "site_`)); err != nil {
			t.Fatalf("Feed() err = %v; want nil until close", err)
		}
		err := s.Close()
		var provider *helpers.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("Close() err = %v; want ProviderError", err)
		}
	})

	t.Run("undecodable object fails", func(t *testing.T) {
		_, emit := collectRecords()
		s := NewRecordScanner(emit)
		err := s.Feed([]byte(`{"times": "not-a-list"}`))
		var provider *helpers.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("Feed() err = %v; want ProviderError", err)
		}
	})

	t.Run("emit failure propagates and sticks", func(t *testing.T) {
		sinkErr := errors.New("store full")
		s := NewRecordScanner(func(*models.MSiteRecord) error { return sinkErr })
		if err := s.Feed([]byte(stageRecordJSON)); !errors.Is(err, sinkErr) {
			t.Fatalf("Feed() err = %v; want %v", err, sinkErr)
		}
		if err := s.Feed([]byte(flowRecordJSON)); !errors.Is(err, sinkErr) {
			t.Errorf("second Feed() err = %v; want sticky %v", err, sinkErr)
		}
	})
}

package app_test

import (
	"context"
	"testing"
	"time"

	"stagecast/internal/app"
	"stagecast/internal/domain"
)

// flakyEventStore fails its first failures calls with a transient error.
type flakyEventStore struct {
	failures int
	calls    int
}

func (s *flakyEventStore) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	s.calls++
	if s.calls <= s.failures {
		return domain.Event{}, domain.Transientf(nil, "store throttled")
	}
	return domain.Event{ID: eventID, Status: domain.EventLive}, nil
}

func (s *flakyEventStore) SetActiveActivity(context.Context, string, string, string) error {
	s.calls++
	return domain.NotFoundf("event not found")
}

func testPolicy() app.RetryPolicy {
	return app.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	inner := &flakyEventStore{failures: 2}
	store := app.RetryingEventStore{Inner: inner, Policy: testPolicy()}

	event, err := store.GetEvent(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("expected recovery after transient failures, got %v", err)
	}
	if event.ID != "event-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryGivesUpAfterBound(t *testing.T) {
	inner := &flakyEventStore{failures: 100}
	store := app.RetryingEventStore{Inner: inner, Policy: testPolicy()}

	_, err := store.GetEvent(context.Background(), "event-1")
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient error after exhausting retries, got %v", err)
	}
	if inner.calls != 4 { // initial attempt + 3 retries
		t.Fatalf("expected 4 attempts, got %d", inner.calls)
	}
}

func TestRetryNeverRetriesPermanentErrors(t *testing.T) {
	inner := &flakyEventStore{}
	store := app.RetryingEventStore{Inner: inner, Policy: testPolicy()}

	err := store.SetActiveActivity(context.Background(), "event-1", "", "act-1")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not-found to propagate, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("not-found must not be retried, got %d attempts", inner.calls)
	}
}

package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"stagecast/internal/domain"
	"stagecast/internal/infra/memory"
)

func TestActivityCacheReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := memory.NewStore()
	cache := NewActivityCache(client, inner, time.Minute)

	activity := domain.Activity{
		ID: "poll-1", EventID: "e1", Name: "Poll", Type: domain.TypePoll,
		Status: domain.StatusReady,
		Poll:   &domain.PollConfig{Question: "Q?", ShowResultsLive: true},
	}
	if err := cache.CreateActivity(ctx, activity); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := cache.FindActivityByID(ctx, "poll-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Poll.Question != "Q?" {
		t.Fatalf("unexpected activity: %+v", got)
	}
	if !mr.Exists("activity:poll-1") {
		t.Fatalf("expected activity cached after read")
	}

	// A status write invalidates the cached record.
	if err := cache.SetActivityStatus(ctx, "poll-1", domain.StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if mr.Exists("activity:poll-1") {
		t.Fatalf("expected cache invalidated after write")
	}

	got, err = cache.FindActivityByID(ctx, "poll-1")
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("expected fresh status after invalidation, got %s", got.Status)
	}

	if _, err := cache.FindActivityByID(ctx, "missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not-found to pass through, got %v", err)
	}
}

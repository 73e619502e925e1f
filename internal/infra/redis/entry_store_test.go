package redis

import (
	"context"
	"testing"

	"stagecast/internal/domain"
)

func TestEntryStoreConditionalWrite(t *testing.T) {
	ctx := context.Background()
	store := NewEntryStore(newTestClient(t))

	entry := domain.RaffleEntry{ID: "e1", RaffleID: "raffle-1", ParticipantID: "p1", ParticipantName: "Alice"}
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	entry.ID = "e2"
	if err := store.CreateEntry(ctx, entry); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate entry error, got %v", err)
	}

	stored, found, err := store.EntryByParticipant(ctx, "raffle-1", "p1")
	if err != nil || !found {
		t.Fatalf("get entry: found=%v err=%v", found, err)
	}
	if stored.ID != "e1" || stored.ParticipantName != "Alice" {
		t.Fatalf("expected first-writer entry, got %+v", stored)
	}
}

func TestEntryStoreWinnersRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewEntryStore(newTestClient(t))

	winners, err := store.Winners(ctx, "raffle-1")
	if err != nil || winners != nil {
		t.Fatalf("expected no winners yet, got %v err=%v", winners, err)
	}

	if err := store.SetWinners(ctx, "raffle-1", []string{"p2", "p3"}); err != nil {
		t.Fatalf("set winners: %v", err)
	}
	winners, err = store.Winners(ctx, "raffle-1")
	if err != nil {
		t.Fatalf("get winners: %v", err)
	}
	if len(winners) != 2 || winners[0] != "p2" || winners[1] != "p3" {
		t.Fatalf("unexpected winners: %v", winners)
	}

	// Redraws overwrite.
	if err := store.SetWinners(ctx, "raffle-1", []string{"p1"}); err != nil {
		t.Fatalf("overwrite winners: %v", err)
	}
	winners, _ = store.Winners(ctx, "raffle-1")
	if len(winners) != 1 || winners[0] != "p1" {
		t.Fatalf("expected overwritten winners, got %v", winners)
	}
}

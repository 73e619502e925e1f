package app_test

import (
	"context"
	"math/rand"
	"testing"

	"stagecast/internal/app"
	"stagecast/internal/domain"
	"stagecast/internal/infra/memory"
)

func newRaffleFixture(t *testing.T) (*app.RaffleService, *memory.Store, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.PutEvent(domain.Event{ID: "event-1", Status: domain.EventLive})

	lifecycle := app.NewLifecycleServiceWithClock(store, store, fixedClock(), sequentialIDs("raf"))
	activity, err := lifecycle.Create(ctx, "event-1", app.NewActivity{Type: domain.TypeRaffle, Name: "Grand Prize"})
	if err != nil {
		t.Fatalf("create raffle activity: %v", err)
	}
	svc := app.NewRaffleServiceWithRand(store, store, fixedClock(), sequentialIDs("entry"), rand.New(rand.NewSource(1)))
	return svc, store, activity.ID
}

func TestRaffleConfigureValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, raffleID := newRaffleFixture(t)

	if _, err := svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: " ", EntryMethod: domain.EntryAutomatic, WinnerCount: 1}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank prize, got %v", err)
	}
	if _, err := svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "T-shirt", EntryMethod: "telepathy", WinnerCount: 1}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for bad entry method, got %v", err)
	}
	if _, err := svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "T-shirt", EntryMethod: domain.EntryAutomatic, WinnerCount: 0}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for zero winners, got %v", err)
	}

	configured, err := svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "T-shirt", EntryMethod: domain.EntryManual, WinnerCount: 2})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if configured.Status != domain.StatusReady || configured.Raffle.WinnerCount != 2 || configured.Raffle.Winners != nil {
		t.Fatalf("unexpected configured raffle: %+v", configured.Raffle)
	}
}

func TestRaffleRestartPermitted(t *testing.T) {
	ctx := context.Background()
	svc, _, raffleID := newRaffleFixture(t)

	if _, err := svc.Start(ctx, raffleID); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error starting an unconfigured raffle, got %v", err)
	}

	if _, err := svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "Mug", EntryMethod: domain.EntryAutomatic, WinnerCount: 1}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := svc.Start(ctx, raffleID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Unlike polls, restarting a live raffle is allowed.
	if _, err := svc.Start(ctx, raffleID); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestDuplicateEntryRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, raffleID := newRaffleFixture(t)

	_, _ = svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "Mug", EntryMethod: domain.EntryAutomatic, WinnerCount: 1})

	if _, err := svc.Enter(ctx, raffleID, "p1", "Alice"); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict entering a non-live raffle, got %v", err)
	}

	_, _ = svc.Start(ctx, raffleID)

	if _, err := svc.Enter(ctx, raffleID, "", "Alice"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank participant id, got %v", err)
	}
	if _, err := svc.Enter(ctx, raffleID, "p1", " "); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if _, err := svc.Enter(ctx, raffleID, "p1", "Alice"); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if _, err := svc.Enter(ctx, raffleID, "p1", "Alice"); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate-entry rejection, got %v", err)
	}
}

func TestDrawWinners(t *testing.T) {
	ctx := context.Background()
	svc, store, raffleID := newRaffleFixture(t)

	_, _ = svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "Mug", EntryMethod: domain.EntryAutomatic, WinnerCount: 2})
	_, _ = svc.Start(ctx, raffleID)

	if _, err := svc.DrawWinners(ctx, raffleID, 0); !domain.IsKind(err, domain.KindInsufficientEntries) {
		t.Fatalf("expected insufficient-entries with no entries, got %v", err)
	}

	for _, p := range []struct{ id, name string }{{"p1", "Alice"}, {"p2", "Bob"}, {"p3", "Cara"}} {
		if _, err := svc.Enter(ctx, raffleID, p.id, p.name); err != nil {
			t.Fatalf("enter %s: %v", p.id, err)
		}
	}

	winners, err := svc.DrawWinners(ctx, raffleID, 0)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(winners))
	}
	seen := map[string]bool{}
	valid := map[string]bool{"p1": true, "p2": true, "p3": true}
	for _, w := range winners {
		if !valid[w.ParticipantID] {
			t.Fatalf("winner %s is not an entrant", w.ParticipantID)
		}
		if seen[w.ParticipantID] {
			t.Fatalf("winner %s drawn twice", w.ParticipantID)
		}
		seen[w.ParticipantID] = true
	}

	// Winners are persisted onto the activity and the entry store.
	activity, _ := store.FindActivityByID(ctx, raffleID)
	if len(activity.Raffle.Winners) != 2 {
		t.Fatalf("winners not persisted on activity: %+v", activity.Raffle)
	}
	if got := store.Winners(raffleID); len(got) != 2 {
		t.Fatalf("winners not recorded in entry store: %v", got)
	}

	if _, err := svc.DrawWinners(ctx, raffleID, 5); !domain.IsKind(err, domain.KindInsufficientEntries) {
		t.Fatalf("expected insufficient-entries drawing 5 of 3, got %v", err)
	}

	// Redraws overwrite the stored winners.
	redrawn, err := svc.DrawWinners(ctx, raffleID, 1)
	if err != nil {
		t.Fatalf("redraw: %v", err)
	}
	activity, _ = store.FindActivityByID(ctx, raffleID)
	if len(activity.Raffle.Winners) != 1 || activity.Raffle.Winners[0] != redrawn[0].ParticipantID {
		t.Fatalf("redraw did not overwrite winners: %+v", activity.Raffle.Winners)
	}
}

func TestEndRaffleAssemblesResults(t *testing.T) {
	ctx := context.Background()
	svc, store, raffleID := newRaffleFixture(t)

	_, _ = svc.Configure(ctx, raffleID, app.RaffleSetup{PrizeDescription: "Concert tickets", EntryMethod: domain.EntryAutomatic, WinnerCount: 1})
	_, _ = svc.Start(ctx, raffleID)
	_, _ = svc.Enter(ctx, raffleID, "p1", "Alice")
	_, _ = svc.Enter(ctx, raffleID, "p2", "Bob")
	if _, err := svc.DrawWinners(ctx, raffleID, 0); err != nil {
		t.Fatalf("draw: %v", err)
	}

	results, err := svc.End(ctx, raffleID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if results.PrizeDescription != "Concert tickets" || results.TotalEntries != 2 || len(results.Winners) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	winner := results.Winners[0]
	if winner.Name != "Alice" && winner.Name != "Bob" {
		t.Fatalf("winner name not joined from entries: %+v", winner)
	}

	ended, _ := store.FindActivityByID(ctx, raffleID)
	if ended.Status != domain.StatusCompleted {
		t.Fatalf("expected raffle completed, got %s", ended.Status)
	}
	if _, err := svc.End(ctx, raffleID); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict ending twice, got %v", err)
	}
}

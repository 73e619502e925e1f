package app_test

import (
	"context"
	"testing"

	"stagecast/internal/app"
	"stagecast/internal/domain"
	"stagecast/internal/infra/memory"
)

func newPollFixture(t *testing.T) (*app.PollService, *memory.Store, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.PutEvent(domain.Event{ID: "event-1", Status: domain.EventLive})

	lifecycle := app.NewLifecycleServiceWithClock(store, store, fixedClock(), sequentialIDs("poll"))
	activity, err := lifecycle.Create(ctx, "event-1", app.NewActivity{Type: domain.TypePoll, Name: "Color Poll"})
	if err != nil {
		t.Fatalf("create poll activity: %v", err)
	}
	svc := app.NewPollServiceWithClock(store, store, fixedClock(), sequentialIDs("opt"))
	return svc, store, activity.ID
}

func TestPollConfigureValidation(t *testing.T) {
	ctx := context.Background()
	svc, store, pollID := newPollFixture(t)

	if _, err := svc.Configure(ctx, pollID, "  ", []string{"Red", "Blue"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank question, got %v", err)
	}
	if _, err := svc.Configure(ctx, pollID, "Favorite color?", []string{"Red"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for single option, got %v", err)
	}
	if _, err := svc.Configure(ctx, pollID, "Favorite color?", []string{"Red", " "}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank option, got %v", err)
	}

	configured, err := svc.Configure(ctx, pollID, "Favorite color?", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if configured.Status != domain.StatusReady || len(configured.Poll.Options) != 2 {
		t.Fatalf("unexpected configured poll: %+v", configured)
	}
	for _, opt := range configured.Poll.Options {
		if opt.ID == "" || opt.VoteCount != 0 {
			t.Fatalf("option not initialized: %+v", opt)
		}
	}

	// A live poll cannot be reconfigured.
	if _, err := svc.Start(ctx, pollID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Configure(ctx, pollID, "New question?", []string{"A", "B"}); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict reconfiguring a live poll, got %v", err)
	}

	// Wrong activity type is rejected.
	_ = store.CreateActivity(ctx, domain.Activity{ID: "quiz-x", EventID: "event-1", Type: domain.TypeQuiz, Quiz: &domain.QuizConfig{}})
	if _, err := svc.Configure(ctx, "quiz-x", "Q?", []string{"A", "B"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for non-poll activity, got %v", err)
	}
}

func TestPollStartGuards(t *testing.T) {
	ctx := context.Background()
	svc, _, pollID := newPollFixture(t)

	if _, err := svc.Start(ctx, pollID); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error starting an unconfigured poll, got %v", err)
	}

	if _, err := svc.Configure(ctx, pollID, "Q?", []string{"A", "B"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := svc.Start(ctx, pollID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(ctx, pollID); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict restarting a live poll, got %v", err)
	}
}

func TestDuplicateVoteRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, pollID := newPollFixture(t)

	configured, err := svc.Configure(ctx, pollID, "Favorite color?", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	red := configured.Poll.Options[0].ID
	blue := configured.Poll.Options[1].ID
	if _, err := svc.Start(ctx, pollID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.SubmitVote(ctx, pollID, "p1", []string{red}); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, "p1", []string{blue}); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate-vote rejection, got %v", err)
	}

	results, err := svc.Results(ctx, pollID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.TotalVotes != 1 {
		t.Fatalf("expected 1 total vote, got %d", results.TotalVotes)
	}
	if results.Options[0].VoteCount != 1 || results.Options[1].VoteCount != 0 {
		t.Fatalf("unexpected tally: %+v", results.Options)
	}
}

func TestSubmitVoteGuards(t *testing.T) {
	ctx := context.Background()
	svc, _, pollID := newPollFixture(t)

	configured, _ := svc.Configure(ctx, pollID, "Q?", []string{"A", "B"})
	optA := configured.Poll.Options[0].ID

	// Voting before the poll starts is a state conflict.
	if _, err := svc.SubmitVote(ctx, pollID, "p1", []string{optA}); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict voting on a non-live poll, got %v", err)
	}

	_, _ = svc.Start(ctx, pollID)

	if _, err := svc.SubmitVote(ctx, pollID, "  ", []string{optA}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for blank participant, got %v", err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, "p1", nil); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, "p1", []string{optA, "bogus"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for multi-select on single-vote poll, got %v", err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, "p1", []string{"bogus"}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for unknown option id, got %v", err)
	}
}

func TestEndPollReturnsFinalTally(t *testing.T) {
	ctx := context.Background()
	svc, store, pollID := newPollFixture(t)

	configured, _ := svc.Configure(ctx, pollID, "Q?", []string{"A", "B"})
	optA := configured.Poll.Options[0].ID
	optB := configured.Poll.Options[1].ID

	if _, err := svc.End(ctx, pollID); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict ending a non-live poll, got %v", err)
	}

	_, _ = svc.Start(ctx, pollID)
	_, _ = svc.SubmitVote(ctx, pollID, "p1", []string{optA})
	_, _ = svc.SubmitVote(ctx, pollID, "p2", []string{optB})
	_, _ = svc.SubmitVote(ctx, pollID, "p3", []string{optA})

	results, err := svc.End(ctx, pollID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if results.TotalVotes != 3 || results.Options[0].VoteCount != 2 || results.Options[1].VoteCount != 1 {
		t.Fatalf("unexpected final tally: %+v", results)
	}

	ended, _ := store.FindActivityByID(ctx, pollID)
	if ended.Status != domain.StatusCompleted {
		t.Fatalf("expected poll completed, got %s", ended.Status)
	}
}

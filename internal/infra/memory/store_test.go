package memory

import (
	"context"
	"testing"

	"stagecast/internal/domain"
)

func TestSetActiveActivityCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutEvent(domain.Event{ID: "e1", Status: domain.EventLive})

	if err := store.SetActiveActivity(ctx, "e1", "", "a1"); err != nil {
		t.Fatalf("first swap: %v", err)
	}
	// Stale expected value must fail.
	if err := store.SetActiveActivity(ctx, "e1", "", "a2"); !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected conflict on stale expected value, got %v", err)
	}
	if err := store.SetActiveActivity(ctx, "e1", "a1", "a2"); err != nil {
		t.Fatalf("second swap: %v", err)
	}

	event, err := store.GetEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.ActiveActivityID != "a2" {
		t.Fatalf("expected pointer a2, got %q", event.ActiveActivityID)
	}

	if err := store.SetActiveActivity(ctx, "missing", "", "a1"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestConditionalWritesRejectDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	vote := domain.PollVote{ID: "v1", PollID: "poll-1", ParticipantID: "p1", OptionIDs: []string{"o1"}}
	if err := store.CreateVote(ctx, vote); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	vote.ID = "v2"
	if err := store.CreateVote(ctx, vote); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate vote error, got %v", err)
	}

	entry := domain.RaffleEntry{ID: "r1", RaffleID: "raffle-1", ParticipantID: "p1", ParticipantName: "Alice"}
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	entry.ID = "r2"
	if err := store.CreateEntry(ctx, entry); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate entry error, got %v", err)
	}

	answer := domain.Answer{ID: "ans1", ParticipantID: "p1", QuestionID: "q1", SelectedOptionID: "o1"}
	if err := store.CreateAnswer(ctx, answer); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	answer.ID = "ans2"
	if err := store.CreateAnswer(ctx, answer); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate answer error, got %v", err)
	}
}

func TestFindActivitiesByEventSortsByOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, a := range []domain.Activity{
		{ID: "a3", EventID: "e1", Type: domain.TypePoll, Order: 2, Poll: &domain.PollConfig{}},
		{ID: "a1", EventID: "e1", Type: domain.TypeQuiz, Order: 0, Quiz: &domain.QuizConfig{}},
		{ID: "a2", EventID: "e1", Type: domain.TypeRaffle, Order: 1, Raffle: &domain.RaffleConfig{}},
		{ID: "b1", EventID: "e2", Type: domain.TypeQuiz, Order: 0, Quiz: &domain.QuizConfig{}},
	} {
		if err := store.CreateActivity(ctx, a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
	}

	activities, err := store.FindActivitiesByEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(activities))
	}
	for i, want := range []string{"a1", "a2", "a3"} {
		if activities[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, activities[i].ID)
		}
	}
}

func TestDeleteActivityCascadesChildRecords(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.CreateActivity(ctx, domain.Activity{ID: "poll-1", EventID: "e1", Type: domain.TypePoll, Poll: &domain.PollConfig{}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.CreateVote(ctx, domain.PollVote{ID: "v1", PollID: "poll-1", ParticipantID: "p1", OptionIDs: []string{"o1"}})

	if err := store.DeleteActivity(ctx, "poll-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	votes, _ := store.VotesForPoll(ctx, "poll-1")
	if len(votes) != 0 {
		t.Fatalf("expected votes cascaded, got %d", len(votes))
	}
	if _, found, _ := store.VoteByParticipant(ctx, "poll-1", "p1"); found {
		t.Fatalf("expected vote index cascaded")
	}
}

func TestActivityReadsDoNotAliasStoreState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.CreateActivity(ctx, domain.Activity{
		ID: "poll-1", EventID: "e1", Type: domain.TypePoll,
		Poll: &domain.PollConfig{Question: "Q?", Options: []domain.PollOption{{ID: "o1", Text: "A"}}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	read, _ := store.FindActivityByID(ctx, "poll-1")
	read.Poll.Options[0].Text = "mutated"
	read.Poll.Question = "mutated"

	again, _ := store.FindActivityByID(ctx, "poll-1")
	if again.Poll.Question != "Q?" || again.Poll.Options[0].Text != "A" {
		t.Fatalf("store state was mutated through a read: %+v", again.Poll)
	}
}

package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"stagecast/internal/domain"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestVoteStoreConditionalWrite(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore(newTestClient(t))

	vote := domain.PollVote{ID: "v1", PollID: "poll-1", ParticipantID: "p1", OptionIDs: []string{"o1"}}
	if err := store.CreateVote(ctx, vote); err != nil {
		t.Fatalf("first vote: %v", err)
	}

	vote.ID = "v2"
	vote.OptionIDs = []string{"o2"}
	if err := store.CreateVote(ctx, vote); !domain.IsKind(err, domain.KindDuplicate) {
		t.Fatalf("expected duplicate vote error, got %v", err)
	}

	// The first write won; the stored vote is unchanged.
	stored, found, err := store.VoteByParticipant(ctx, "poll-1", "p1")
	if err != nil || !found {
		t.Fatalf("get vote: found=%v err=%v", found, err)
	}
	if stored.ID != "v1" || stored.OptionIDs[0] != "o1" {
		t.Fatalf("expected first-writer vote, got %+v", stored)
	}
}

func TestVoteStoreListsAllVotes(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore(newTestClient(t))

	for _, p := range []string{"p1", "p2", "p3"} {
		vote := domain.PollVote{ID: "v-" + p, PollID: "poll-1", ParticipantID: p, OptionIDs: []string{"o1"}}
		if err := store.CreateVote(ctx, vote); err != nil {
			t.Fatalf("vote %s: %v", p, err)
		}
	}

	votes, err := store.VotesForPoll(ctx, "poll-1")
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	if len(votes) != 3 {
		t.Fatalf("expected 3 votes, got %d", len(votes))
	}

	if _, found, err := store.VoteByParticipant(ctx, "poll-1", "p9"); err != nil || found {
		t.Fatalf("expected no vote for p9, found=%v err=%v", found, err)
	}
}

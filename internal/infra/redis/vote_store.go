// Package redis backs the high-churn child records (votes, raffle entries)
// and a read-through activity cache with Redis. Uniqueness keys map to hash
// fields so the duplicate check and the write are a single HSETNX.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stagecast/internal/domain"
)

// VoteStore keeps poll votes in one hash per poll:
// HSETNX poll:{pollID}:votes {participantID} {vote JSON}
type VoteStore struct {
	client *redis.Client
}

func NewVoteStore(client *redis.Client) *VoteStore {
	return &VoteStore{client: client}
}

func (s *VoteStore) key(pollID string) string {
	return "poll:" + pollID + ":votes"
}

func (s *VoteStore) CreateVote(ctx context.Context, vote domain.PollVote) error {
	data, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	created, err := s.client.HSetNX(ctx, s.key(vote.PollID), vote.ParticipantID, data).Result()
	if err != nil {
		return domain.Transientf(err, "redis: create vote")
	}
	if !created {
		return domain.Duplicatef("participant %s already voted in poll %s", vote.ParticipantID, vote.PollID)
	}
	return nil
}

func (s *VoteStore) VotesForPoll(ctx context.Context, pollID string) ([]domain.PollVote, error) {
	raw, err := s.client.HGetAll(ctx, s.key(pollID)).Result()
	if err != nil {
		return nil, domain.Transientf(err, "redis: list votes")
	}
	votes := make([]domain.PollVote, 0, len(raw))
	for _, data := range raw {
		var vote domain.PollVote
		if err := json.Unmarshal([]byte(data), &vote); err != nil {
			return nil, fmt.Errorf("unmarshal vote: %w", err)
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

func (s *VoteStore) VoteByParticipant(ctx context.Context, pollID, participantID string) (domain.PollVote, bool, error) {
	data, err := s.client.HGet(ctx, s.key(pollID), participantID).Result()
	if err == redis.Nil {
		return domain.PollVote{}, false, nil
	}
	if err != nil {
		return domain.PollVote{}, false, domain.Transientf(err, "redis: get vote")
	}
	var vote domain.PollVote
	if err := json.Unmarshal([]byte(data), &vote); err != nil {
		return domain.PollVote{}, false, fmt.Errorf("unmarshal vote: %w", err)
	}
	return vote, true, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stagecast/internal/domain"
)

// EntryStore keeps raffle entries in one hash per raffle, mirroring VoteStore:
// HSETNX raffle:{raffleID}:entries {participantID} {entry JSON}
// The last drawn winners live under raffle:{raffleID}:winners.
type EntryStore struct {
	client *redis.Client
}

func NewEntryStore(client *redis.Client) *EntryStore {
	return &EntryStore{client: client}
}

func (s *EntryStore) entriesKey(raffleID string) string {
	return "raffle:" + raffleID + ":entries"
}

func (s *EntryStore) winnersKey(raffleID string) string {
	return "raffle:" + raffleID + ":winners"
}

func (s *EntryStore) CreateEntry(ctx context.Context, entry domain.RaffleEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	created, err := s.client.HSetNX(ctx, s.entriesKey(entry.RaffleID), entry.ParticipantID, data).Result()
	if err != nil {
		return domain.Transientf(err, "redis: create entry")
	}
	if !created {
		return domain.Duplicatef("participant %s already entered raffle %s", entry.ParticipantID, entry.RaffleID)
	}
	return nil
}

func (s *EntryStore) EntriesForRaffle(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	raw, err := s.client.HGetAll(ctx, s.entriesKey(raffleID)).Result()
	if err != nil {
		return nil, domain.Transientf(err, "redis: list entries")
	}
	entries := make([]domain.RaffleEntry, 0, len(raw))
	for _, data := range raw {
		var entry domain.RaffleEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *EntryStore) EntryByParticipant(ctx context.Context, raffleID, participantID string) (domain.RaffleEntry, bool, error) {
	data, err := s.client.HGet(ctx, s.entriesKey(raffleID), participantID).Result()
	if err == redis.Nil {
		return domain.RaffleEntry{}, false, nil
	}
	if err != nil {
		return domain.RaffleEntry{}, false, domain.Transientf(err, "redis: get entry")
	}
	var entry domain.RaffleEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return domain.RaffleEntry{}, false, fmt.Errorf("unmarshal entry: %w", err)
	}
	return entry, true, nil
}

func (s *EntryStore) SetWinners(ctx context.Context, raffleID string, winnerIDs []string) error {
	data, err := json.Marshal(winnerIDs)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	if err := s.client.Set(ctx, s.winnersKey(raffleID), data, 0).Err(); err != nil {
		return domain.Transientf(err, "redis: set winners")
	}
	return nil
}

// Winners returns the last drawn winner ids, or nil when none were drawn.
func (s *EntryStore) Winners(ctx context.Context, raffleID string) ([]string, error) {
	data, err := s.client.Get(ctx, s.winnersKey(raffleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Transientf(err, "redis: get winners")
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal winners: %w", err)
	}
	return ids, nil
}

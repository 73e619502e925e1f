package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stagecast/internal/domain"
)

// RetryPolicy bounds the automatic retries applied to transient store
// failures. Not-found, validation, conflict, and duplicate errors are never
// retried; they propagate immediately.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the small fixed bound the engines expect.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if domain.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx))
}

// RetryingEventStore wraps an EventStore with the retry policy.
type RetryingEventStore struct {
	Inner  EventStore
	Policy RetryPolicy
}

func (s RetryingEventStore) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	var event domain.Event
	err := s.Policy.run(ctx, func() error {
		var err error
		event, err = s.Inner.GetEvent(ctx, eventID)
		return err
	})
	return event, err
}

func (s RetryingEventStore) SetActiveActivity(ctx context.Context, eventID, expected, next string) error {
	return s.Policy.run(ctx, func() error {
		return s.Inner.SetActiveActivity(ctx, eventID, expected, next)
	})
}

// RetryingActivityStore wraps an ActivityStore with the retry policy.
type RetryingActivityStore struct {
	Inner  ActivityStore
	Policy RetryPolicy
}

func (s RetryingActivityStore) FindActivityByID(ctx context.Context, activityID string) (domain.Activity, error) {
	var activity domain.Activity
	err := s.Policy.run(ctx, func() error {
		var err error
		activity, err = s.Inner.FindActivityByID(ctx, activityID)
		return err
	})
	return activity, err
}

func (s RetryingActivityStore) FindActivitiesByEvent(ctx context.Context, eventID string) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := s.Policy.run(ctx, func() error {
		var err error
		activities, err = s.Inner.FindActivitiesByEvent(ctx, eventID)
		return err
	})
	return activities, err
}

func (s RetryingActivityStore) CreateActivity(ctx context.Context, activity domain.Activity) error {
	return s.Policy.run(ctx, func() error { return s.Inner.CreateActivity(ctx, activity) })
}

func (s RetryingActivityStore) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	return s.Policy.run(ctx, func() error { return s.Inner.UpdateActivity(ctx, activity) })
}

func (s RetryingActivityStore) SetActivityStatus(ctx context.Context, activityID string, status domain.ActivityStatus) error {
	return s.Policy.run(ctx, func() error { return s.Inner.SetActivityStatus(ctx, activityID, status) })
}

func (s RetryingActivityStore) DeleteActivity(ctx context.Context, activityID string) error {
	return s.Policy.run(ctx, func() error { return s.Inner.DeleteActivity(ctx, activityID) })
}

// RetryingVoteStore wraps a VoteStore with the retry policy.
type RetryingVoteStore struct {
	Inner  VoteStore
	Policy RetryPolicy
}

func (s RetryingVoteStore) CreateVote(ctx context.Context, vote domain.PollVote) error {
	return s.Policy.run(ctx, func() error { return s.Inner.CreateVote(ctx, vote) })
}

func (s RetryingVoteStore) VotesForPoll(ctx context.Context, pollID string) ([]domain.PollVote, error) {
	var votes []domain.PollVote
	err := s.Policy.run(ctx, func() error {
		var err error
		votes, err = s.Inner.VotesForPoll(ctx, pollID)
		return err
	})
	return votes, err
}

func (s RetryingVoteStore) VoteByParticipant(ctx context.Context, pollID, participantID string) (domain.PollVote, bool, error) {
	var (
		vote  domain.PollVote
		found bool
	)
	err := s.Policy.run(ctx, func() error {
		var err error
		vote, found, err = s.Inner.VoteByParticipant(ctx, pollID, participantID)
		return err
	})
	return vote, found, err
}

// RetryingEntryStore wraps an EntryStore with the retry policy.
type RetryingEntryStore struct {
	Inner  EntryStore
	Policy RetryPolicy
}

func (s RetryingEntryStore) CreateEntry(ctx context.Context, entry domain.RaffleEntry) error {
	return s.Policy.run(ctx, func() error { return s.Inner.CreateEntry(ctx, entry) })
}

func (s RetryingEntryStore) EntriesForRaffle(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	var entries []domain.RaffleEntry
	err := s.Policy.run(ctx, func() error {
		var err error
		entries, err = s.Inner.EntriesForRaffle(ctx, raffleID)
		return err
	})
	return entries, err
}

func (s RetryingEntryStore) EntryByParticipant(ctx context.Context, raffleID, participantID string) (domain.RaffleEntry, bool, error) {
	var (
		entry domain.RaffleEntry
		found bool
	)
	err := s.Policy.run(ctx, func() error {
		var err error
		entry, found, err = s.Inner.EntryByParticipant(ctx, raffleID, participantID)
		return err
	})
	return entry, found, err
}

func (s RetryingEntryStore) SetWinners(ctx context.Context, raffleID string, winnerIDs []string) error {
	return s.Policy.run(ctx, func() error { return s.Inner.SetWinners(ctx, raffleID, winnerIDs) })
}

// Package app contains the activity lifecycle state machine and the
// poll/raffle/quiz engines. Engines are store-agnostic: they consume the
// narrow interfaces below and infra provides memory, Redis, and Postgres
// implementations.
package app

import (
	"context"

	"stagecast/internal/domain"
)

// EventStore reads the event record and flips its active-activity pointer.
type EventStore interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	// SetActiveActivity is a compare-and-swap: the write succeeds only if the
	// event's current pointer still equals expected ("" means none). A stale
	// expected value fails with KindStateConflict so the caller can re-read
	// and retry the whole activation.
	SetActiveActivity(ctx context.Context, eventID, expected, next string) error
}

// ActivityStore persists activity records, queryable per event in display order.
type ActivityStore interface {
	FindActivityByID(ctx context.Context, activityID string) (domain.Activity, error)
	FindActivitiesByEvent(ctx context.Context, eventID string) ([]domain.Activity, error)
	CreateActivity(ctx context.Context, activity domain.Activity) error
	UpdateActivity(ctx context.Context, activity domain.Activity) error
	SetActivityStatus(ctx context.Context, activityID string, status domain.ActivityStatus) error
	DeleteActivity(ctx context.Context, activityID string) error
}

// VoteStore holds append-only poll votes. CreateVote is conditional: it fails
// with KindDuplicate when a vote already exists for (poll, participant).
type VoteStore interface {
	CreateVote(ctx context.Context, vote domain.PollVote) error
	VotesForPoll(ctx context.Context, pollID string) ([]domain.PollVote, error)
	VoteByParticipant(ctx context.Context, pollID, participantID string) (domain.PollVote, bool, error)
}

// EntryStore holds append-only raffle entries with the same conditional-write
// contract as VoteStore, plus the drawn-winner record.
type EntryStore interface {
	CreateEntry(ctx context.Context, entry domain.RaffleEntry) error
	EntriesForRaffle(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error)
	EntryByParticipant(ctx context.Context, raffleID, participantID string) (domain.RaffleEntry, bool, error)
	SetWinners(ctx context.Context, raffleID string, winnerIDs []string) error
}

// ParticipantStore tracks per-event participant scoring state.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, eventID, participantID string) (domain.Participant, error)
	PutParticipant(ctx context.Context, participant domain.Participant) error
	ParticipantsForEvent(ctx context.Context, eventID string) ([]domain.Participant, error)
}

// AnswerStore persists quiz answers. CreateAnswer is conditional on
// (participant, question); a second submission fails with KindDuplicate.
type AnswerStore interface {
	CreateAnswer(ctx context.Context, answer domain.Answer) error
	AnswersForQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
}

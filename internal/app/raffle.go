package app

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stagecast/internal/domain"
)

// RaffleService runs raffle configuration, entries, and winner draws. Unlike
// polls, an active raffle may be restarted, and repeated draws re-randomize
// the winners, overwriting the previous draw.
type RaffleService struct {
	activities ActivityStore
	entries    EntryStore
	now        func() time.Time
	newID      func() string

	mu  sync.Mutex // guards rnd; rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

func NewRaffleService(activities ActivityStore, entries EntryStore) *RaffleService {
	return NewRaffleServiceWithRand(activities, entries, time.Now, uuid.NewString, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRaffleServiceWithRand allows deterministic draws, timestamps, and ids in tests.
func NewRaffleServiceWithRand(activities ActivityStore, entries EntryStore, now func() time.Time, newID func() string, rnd *rand.Rand) *RaffleService {
	return &RaffleService{activities: activities, entries: entries, now: now, newID: newID, rnd: rnd}
}

// RaffleSetup is the organizer-facing raffle configuration.
type RaffleSetup struct {
	PrizeDescription string
	EntryMethod      domain.EntryMethod
	WinnerCount      int
}

func (s *RaffleService) raffle(ctx context.Context, activityID string) (domain.Activity, error) {
	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Type != domain.TypeRaffle || activity.Raffle == nil {
		return domain.Activity{}, domain.Invalidf("activity %s is not a raffle", activityID)
	}
	return activity, nil
}

// Configure sets the prize, entry method, and winner count, clearing any
// previously drawn winners. A live raffle cannot be reconfigured.
func (s *RaffleService) Configure(ctx context.Context, activityID string, setup RaffleSetup) (domain.Activity, error) {
	activity, err := s.raffle(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Status == domain.StatusActive {
		return domain.Activity{}, domain.Conflictf("raffle %s is live and cannot be reconfigured", activityID)
	}
	if strings.TrimSpace(setup.PrizeDescription) == "" {
		return domain.Activity{}, domain.Invalidf("prize description is required")
	}
	if setup.EntryMethod != domain.EntryAutomatic && setup.EntryMethod != domain.EntryManual {
		return domain.Activity{}, domain.Invalidf("entry method must be %q or %q, got %q", domain.EntryAutomatic, domain.EntryManual, setup.EntryMethod)
	}
	if setup.WinnerCount < 1 {
		return domain.Activity{}, domain.Invalidf("winner count must be at least 1, got %d", setup.WinnerCount)
	}

	activity.Raffle.PrizeDescription = strings.TrimSpace(setup.PrizeDescription)
	activity.Raffle.EntryMethod = setup.EntryMethod
	activity.Raffle.WinnerCount = setup.WinnerCount
	activity.Raffle.Winners = nil
	activity.Status = domain.StatusReady
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Start opens a configured raffle for entries. Restarting an already-live
// raffle is permitted.
func (s *RaffleService) Start(ctx context.Context, activityID string) (domain.Activity, error) {
	activity, err := s.raffle(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Raffle.PrizeDescription == "" || activity.Raffle.WinnerCount < 1 {
		return domain.Activity{}, domain.Invalidf("raffle %s has no prize or winner count configured", activityID)
	}
	switch activity.Status {
	case domain.StatusReady, domain.StatusDraft, domain.StatusActive:
	default:
		return domain.Activity{}, domain.Conflictf("raffle %s cannot start from status %s", activityID, activity.Status)
	}

	activity.Status = domain.StatusActive
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Enter records one participant's entry. The store write is conditional on no
// prior entry for (raffle, participant); a second attempt fails with
// KindDuplicate.
func (s *RaffleService) Enter(ctx context.Context, activityID, participantID, participantName string) (domain.RaffleEntry, error) {
	if strings.TrimSpace(participantID) == "" {
		return domain.RaffleEntry{}, domain.Invalidf("participant id is required")
	}
	if strings.TrimSpace(participantName) == "" {
		return domain.RaffleEntry{}, domain.Invalidf("participant name is required")
	}

	activity, err := s.raffle(ctx, activityID)
	if err != nil {
		return domain.RaffleEntry{}, err
	}
	if activity.Status != domain.StatusActive {
		return domain.RaffleEntry{}, domain.Conflictf("raffle %s is not accepting entries (status %s)", activityID, activity.Status)
	}

	if _, found, err := s.entries.EntryByParticipant(ctx, activityID, participantID); err != nil {
		return domain.RaffleEntry{}, err
	} else if found {
		return domain.RaffleEntry{}, domain.Duplicatef("participant %s already entered raffle %s", participantID, activityID)
	}

	entry := domain.RaffleEntry{
		ID:              s.newID(),
		RaffleID:        activityID,
		ParticipantID:   participantID,
		ParticipantName: strings.TrimSpace(participantName),
		EnteredAt:       s.now(),
	}
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return domain.RaffleEntry{}, err
	}
	return entry, nil
}

// DrawWinners selects count winners uniformly at random via a Fisher-Yates
// shuffle of all entries, persisting them onto the raffle. A count of zero
// uses the configured winner count. Repeated draws overwrite the previous
// winners.
func (s *RaffleService) DrawWinners(ctx context.Context, activityID string, count int) ([]domain.RaffleWinner, error) {
	activity, err := s.raffle(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Status != domain.StatusActive {
		return nil, domain.Conflictf("raffle %s is not live (status %s)", activityID, activity.Status)
	}
	if count <= 0 {
		count = activity.Raffle.WinnerCount
	}

	entries, err := s.entries.EntriesForRaffle(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.InsufficientEntriesf("raffle %s has no entries to draw from", activityID)
	}
	if len(entries) < count {
		return nil, domain.InsufficientEntriesf("cannot draw %d winners: only %d entries available", count, len(entries))
	}

	shuffled := make([]domain.RaffleEntry, len(entries))
	copy(shuffled, entries)
	s.mu.Lock()
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	winners := make([]domain.RaffleWinner, count)
	winnerIDs := make([]string, count)
	for i := 0; i < count; i++ {
		winners[i] = domain.RaffleWinner{ParticipantID: shuffled[i].ParticipantID, Name: shuffled[i].ParticipantName}
		winnerIDs[i] = shuffled[i].ParticipantID
	}

	activity.Raffle.Winners = winnerIDs
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}
	if err := s.entries.SetWinners(ctx, activityID, winnerIDs); err != nil {
		return nil, err
	}
	return winners, nil
}

// End closes a live raffle and assembles the final results, joining the
// stored winner ids against the entry records for display names.
func (s *RaffleService) End(ctx context.Context, activityID string) (domain.RaffleResults, error) {
	activity, err := s.raffle(ctx, activityID)
	if err != nil {
		return domain.RaffleResults{}, err
	}
	if activity.Status != domain.StatusActive {
		return domain.RaffleResults{}, domain.Conflictf("raffle %s is not live (status %s)", activityID, activity.Status)
	}

	entries, err := s.entries.EntriesForRaffle(ctx, activityID)
	if err != nil {
		return domain.RaffleResults{}, err
	}
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		names[e.ParticipantID] = e.ParticipantName
	}

	winners := make([]domain.RaffleWinner, 0, len(activity.Raffle.Winners))
	for _, id := range activity.Raffle.Winners {
		winners = append(winners, domain.RaffleWinner{ParticipantID: id, Name: names[id]})
	}

	if err := s.activities.SetActivityStatus(ctx, activityID, domain.StatusCompleted); err != nil {
		return domain.RaffleResults{}, err
	}
	return domain.RaffleResults{
		ActivityID:       activityID,
		PrizeDescription: activity.Raffle.PrizeDescription,
		TotalEntries:     len(entries),
		Winners:          winners,
	}, nil
}

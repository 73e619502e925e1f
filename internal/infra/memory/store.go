// Package memory provides a mutex-guarded in-process implementation of every
// store interface, used by unit tests and the no-infrastructure dev server.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stagecast/internal/domain"
)

// Store implements app.EventStore, ActivityStore, VoteStore, EntryStore,
// ParticipantStore, and AnswerStore over plain maps. Conditional writes
// (votes, entries, answers, the active-activity pointer) are checked under
// the same lock that performs the write.
type Store struct {
	mu           sync.RWMutex
	events       map[string]domain.Event
	activities   map[string]domain.Activity
	votes        map[string][]domain.PollVote    // pollID -> votes in submission order
	voteIndex    map[string]map[string]int       // pollID -> participantID -> slice index
	entries      map[string][]domain.RaffleEntry // raffleID -> entries in submission order
	entryIndex   map[string]map[string]int
	winners      map[string][]string
	participants map[string]map[string]domain.Participant // eventID -> participantID
	answers      map[string]domain.Answer                 // participantID + "/" + questionID
}

func NewStore() *Store {
	return &Store{
		events:       make(map[string]domain.Event),
		activities:   make(map[string]domain.Activity),
		votes:        make(map[string][]domain.PollVote),
		voteIndex:    make(map[string]map[string]int),
		entries:      make(map[string][]domain.RaffleEntry),
		entryIndex:   make(map[string]map[string]int),
		winners:      make(map[string][]string),
		participants: make(map[string]map[string]domain.Participant),
		answers:      make(map[string]domain.Answer),
	}
}

// PutEvent seeds or replaces an event record. Event CRUD has no decision
// logic, so it lives outside the engine interfaces.
func (s *Store) PutEvent(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

func (s *Store) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.Event{}, domain.NotFoundf("event %s not found", eventID)
	}
	return event, nil
}

func (s *Store) SetActiveActivity(_ context.Context, eventID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.NotFoundf("event %s not found", eventID)
	}
	if event.ActiveActivityID != expected {
		return domain.Conflictf("event %s active activity changed (expected %q, have %q)", eventID, expected, event.ActiveActivityID)
	}
	event.ActiveActivityID = next
	event.LastModified = time.Now()
	s.events[eventID] = event
	return nil
}

func (s *Store) FindActivityByID(_ context.Context, activityID string) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activity, ok := s.activities[activityID]
	if !ok {
		return domain.Activity{}, domain.NotFoundf("activity %s not found", activityID)
	}
	return cloneActivity(activity), nil
}

func (s *Store) FindActivitiesByEvent(_ context.Context, eventID string) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Activity
	for _, activity := range s.activities {
		if activity.EventID == eventID {
			result = append(result, cloneActivity(activity))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result, nil
}

func (s *Store) CreateActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.activities[activity.ID]; exists {
		return domain.Duplicatef("activity %s already exists", activity.ID)
	}
	s.activities[activity.ID] = cloneActivity(activity)
	return nil
}

func (s *Store) UpdateActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.activities[activity.ID]
	if !ok {
		return domain.NotFoundf("activity %s not found", activity.ID)
	}
	// Identity fields are immutable.
	activity.EventID = current.EventID
	activity.CreatedAt = current.CreatedAt
	s.activities[activity.ID] = cloneActivity(activity)
	return nil
}

func (s *Store) SetActivityStatus(_ context.Context, activityID string, status domain.ActivityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[activityID]
	if !ok {
		return domain.NotFoundf("activity %s not found", activityID)
	}
	activity.Status = status
	activity.LastModified = time.Now()
	s.activities[activityID] = activity
	return nil
}

func (s *Store) DeleteActivity(_ context.Context, activityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activityID]; !ok {
		return domain.NotFoundf("activity %s not found", activityID)
	}
	delete(s.activities, activityID)
	// Child records cascade.
	delete(s.votes, activityID)
	delete(s.voteIndex, activityID)
	delete(s.entries, activityID)
	delete(s.entryIndex, activityID)
	delete(s.winners, activityID)
	return nil
}

func (s *Store) CreateVote(_ context.Context, vote domain.PollVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.voteIndex[vote.PollID]
	if !ok {
		index = make(map[string]int)
		s.voteIndex[vote.PollID] = index
	}
	if _, exists := index[vote.ParticipantID]; exists {
		return domain.Duplicatef("participant %s already voted in poll %s", vote.ParticipantID, vote.PollID)
	}
	index[vote.ParticipantID] = len(s.votes[vote.PollID])
	s.votes[vote.PollID] = append(s.votes[vote.PollID], vote)
	return nil
}

func (s *Store) VotesForPoll(_ context.Context, pollID string) ([]domain.PollVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := make([]domain.PollVote, len(s.votes[pollID]))
	copy(votes, s.votes[pollID])
	return votes, nil
}

func (s *Store) VoteByParticipant(_ context.Context, pollID, participantID string) (domain.PollVote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.voteIndex[pollID]
	if !ok {
		return domain.PollVote{}, false, nil
	}
	i, exists := index[participantID]
	if !exists {
		return domain.PollVote{}, false, nil
	}
	return s.votes[pollID][i], true, nil
}

func (s *Store) CreateEntry(_ context.Context, entry domain.RaffleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.entryIndex[entry.RaffleID]
	if !ok {
		index = make(map[string]int)
		s.entryIndex[entry.RaffleID] = index
	}
	if _, exists := index[entry.ParticipantID]; exists {
		return domain.Duplicatef("participant %s already entered raffle %s", entry.ParticipantID, entry.RaffleID)
	}
	index[entry.ParticipantID] = len(s.entries[entry.RaffleID])
	s.entries[entry.RaffleID] = append(s.entries[entry.RaffleID], entry)
	return nil
}

func (s *Store) EntriesForRaffle(_ context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.RaffleEntry, len(s.entries[raffleID]))
	copy(entries, s.entries[raffleID])
	return entries, nil
}

func (s *Store) EntryByParticipant(_ context.Context, raffleID, participantID string) (domain.RaffleEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.entryIndex[raffleID]
	if !ok {
		return domain.RaffleEntry{}, false, nil
	}
	i, exists := index[participantID]
	if !exists {
		return domain.RaffleEntry{}, false, nil
	}
	return s.entries[raffleID][i], true, nil
}

func (s *Store) SetWinners(_ context.Context, raffleID string, winnerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(winnerIDs))
	copy(ids, winnerIDs)
	s.winners[raffleID] = ids
	return nil
}

// Winners returns the last drawn winner ids for a raffle.
func (s *Store) Winners(raffleID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.winners[raffleID]
}

func (s *Store) GetParticipant(_ context.Context, eventID, participantID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[eventID][participantID]
	if !ok {
		return domain.Participant{}, domain.NotFoundf("participant %s not found in event %s", participantID, eventID)
	}
	return participant, nil
}

func (s *Store) PutParticipant(_ context.Context, participant domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.participants[participant.EventID]
	if !ok {
		byID = make(map[string]domain.Participant)
		s.participants[participant.EventID] = byID
	}
	byID[participant.ID] = participant
	return nil
}

func (s *Store) ParticipantsForEvent(_ context.Context, eventID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Participant, 0, len(s.participants[eventID]))
	for _, participant := range s.participants[eventID] {
		result = append(result, participant)
	}
	return result, nil
}

func (s *Store) CreateAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answer.ParticipantID + "/" + answer.QuestionID
	if _, exists := s.answers[key]; exists {
		return domain.Duplicatef("participant %s already answered question %s", answer.ParticipantID, answer.QuestionID)
	}
	s.answers[key] = answer
	return nil
}

func (s *Store) AnswersForQuestion(_ context.Context, questionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Answer
	for _, answer := range s.answers {
		if answer.QuestionID == questionID {
			result = append(result, answer)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ParticipantID < result[j].ParticipantID })
	return result, nil
}

// cloneActivity deep-copies the type-specific config so callers cannot alias
// store-internal state.
func cloneActivity(activity domain.Activity) domain.Activity {
	if activity.Quiz != nil {
		quiz := *activity.Quiz
		quiz.Questions = make([]domain.Question, len(activity.Quiz.Questions))
		for i, q := range activity.Quiz.Questions {
			q.Options = append([]domain.QuestionOption(nil), q.Options...)
			quiz.Questions[i] = q
		}
		activity.Quiz = &quiz
	}
	if activity.Poll != nil {
		poll := *activity.Poll
		poll.Options = append([]domain.PollOption(nil), activity.Poll.Options...)
		activity.Poll = &poll
	}
	if activity.Raffle != nil {
		raffle := *activity.Raffle
		raffle.Winners = append([]string(nil), activity.Raffle.Winners...)
		activity.Raffle = &raffle
	}
	return activity
}

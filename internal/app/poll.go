package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagecast/internal/domain"
)

// PollService runs poll configuration, voting, and live result aggregation.
// Tallies are recomputed from the vote records on every read rather than
// incremented in place, which keeps concurrent votes free of lost updates.
type PollService struct {
	activities ActivityStore
	votes      VoteStore
	now        func() time.Time
	newID      func() string
}

func NewPollService(activities ActivityStore, votes VoteStore) *PollService {
	return NewPollServiceWithClock(activities, votes, time.Now, uuid.NewString)
}

// NewPollServiceWithClock allows deterministic timestamps and ids in tests.
func NewPollServiceWithClock(activities ActivityStore, votes VoteStore, now func() time.Time, newID func() string) *PollService {
	return &PollService{activities: activities, votes: votes, now: now, newID: newID}
}

func (s *PollService) poll(ctx context.Context, activityID string) (domain.Activity, error) {
	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Type != domain.TypePoll || activity.Poll == nil {
		return domain.Activity{}, domain.Invalidf("activity %s is not a poll", activityID)
	}
	return activity, nil
}

// Configure sets the poll question and options, assigning each option a fresh
// id with a zero count. A live poll cannot be reconfigured.
func (s *PollService) Configure(ctx context.Context, activityID, question string, options []string) (domain.Activity, error) {
	activity, err := s.poll(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Status == domain.StatusActive {
		return domain.Activity{}, domain.Conflictf("poll %s is live and cannot be reconfigured", activityID)
	}
	if strings.TrimSpace(question) == "" {
		return domain.Activity{}, domain.Invalidf("poll question is required")
	}
	if len(options) < 2 {
		return domain.Activity{}, domain.Invalidf("a poll needs at least 2 options, got %d", len(options))
	}

	opts := make([]domain.PollOption, 0, len(options))
	for i, text := range options {
		if strings.TrimSpace(text) == "" {
			return domain.Activity{}, domain.Invalidf("poll option %d is blank", i+1)
		}
		opts = append(opts, domain.PollOption{ID: s.newID(), Text: strings.TrimSpace(text)})
	}

	activity.Poll.Question = strings.TrimSpace(question)
	activity.Poll.Options = opts
	activity.Status = domain.StatusReady
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Start opens a configured poll for voting.
func (s *PollService) Start(ctx context.Context, activityID string) (domain.Activity, error) {
	activity, err := s.poll(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Poll.Question == "" || len(activity.Poll.Options) == 0 {
		return domain.Activity{}, domain.Invalidf("poll %s has no question or options configured", activityID)
	}
	if activity.Status != domain.StatusReady && activity.Status != domain.StatusDraft {
		return domain.Activity{}, domain.Conflictf("poll %s cannot start from status %s", activityID, activity.Status)
	}

	activity.Status = domain.StatusActive
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// SubmitVote records one participant's vote. The store write is conditional
// on no prior vote for (poll, participant): the first writer wins and a
// second attempt fails with KindDuplicate.
func (s *PollService) SubmitVote(ctx context.Context, activityID, participantID string, optionIDs []string) (domain.PollVote, error) {
	if strings.TrimSpace(participantID) == "" {
		return domain.PollVote{}, domain.Invalidf("participant id is required")
	}
	if len(optionIDs) == 0 {
		return domain.PollVote{}, domain.Invalidf("at least one option must be selected")
	}

	activity, err := s.poll(ctx, activityID)
	if err != nil {
		return domain.PollVote{}, err
	}
	if activity.Status != domain.StatusActive {
		return domain.PollVote{}, domain.Conflictf("poll %s is not accepting votes (status %s)", activityID, activity.Status)
	}
	if !activity.Poll.AllowMultipleVotes && len(optionIDs) > 1 {
		return domain.PollVote{}, domain.Invalidf("poll %s allows a single selection, got %d", activityID, len(optionIDs))
	}

	known := make(map[string]bool, len(activity.Poll.Options))
	for _, opt := range activity.Poll.Options {
		known[opt.ID] = true
	}
	var invalid []string
	for _, id := range optionIDs {
		if !known[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return domain.PollVote{}, domain.Invalidf("unknown option ids: %s", strings.Join(invalid, ", "))
	}

	if _, found, err := s.votes.VoteByParticipant(ctx, activityID, participantID); err != nil {
		return domain.PollVote{}, err
	} else if found {
		return domain.PollVote{}, domain.Duplicatef("participant %s already voted in poll %s", participantID, activityID)
	}

	vote := domain.PollVote{
		ID:            s.newID(),
		PollID:        activityID,
		ParticipantID: participantID,
		OptionIDs:     optionIDs,
		SubmittedAt:   s.now(),
	}
	// The conditional write is authoritative; the pre-check above only gives
	// a friendlier fast path.
	if err := s.votes.CreateVote(ctx, vote); err != nil {
		return domain.PollVote{}, err
	}
	return vote, nil
}

// Results re-reads every vote for the poll and tallies per-option counts.
func (s *PollService) Results(ctx context.Context, activityID string) (domain.PollResults, error) {
	activity, err := s.poll(ctx, activityID)
	if err != nil {
		return domain.PollResults{}, err
	}
	return s.tally(ctx, activity)
}

// End closes a live poll and returns the final tally.
func (s *PollService) End(ctx context.Context, activityID string) (domain.PollResults, error) {
	activity, err := s.poll(ctx, activityID)
	if err != nil {
		return domain.PollResults{}, err
	}
	if activity.Status != domain.StatusActive {
		return domain.PollResults{}, domain.Conflictf("poll %s is not live (status %s)", activityID, activity.Status)
	}

	results, err := s.tally(ctx, activity)
	if err != nil {
		return domain.PollResults{}, err
	}
	if err := s.activities.SetActivityStatus(ctx, activityID, domain.StatusCompleted); err != nil {
		return domain.PollResults{}, err
	}
	return results, nil
}

func (s *PollService) tally(ctx context.Context, activity domain.Activity) (domain.PollResults, error) {
	votes, err := s.votes.VotesForPoll(ctx, activity.ID)
	if err != nil {
		return domain.PollResults{}, err
	}

	counts := make(map[string]int, len(activity.Poll.Options))
	for _, vote := range votes {
		for _, id := range vote.OptionIDs {
			counts[id]++
		}
	}

	options := make([]domain.PollOption, len(activity.Poll.Options))
	for i, opt := range activity.Poll.Options {
		opt.VoteCount = counts[opt.ID]
		options[i] = opt
	}
	return domain.PollResults{
		ActivityID: activity.ID,
		Question:   activity.Poll.Question,
		Options:    options,
		TotalVotes: len(votes),
	}, nil
}

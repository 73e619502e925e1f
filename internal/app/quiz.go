package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagecast/internal/domain"
	"stagecast/internal/scoring"
)

// QuizService handles participant registration, answer submission with
// speed scoring and streaks, question advancement, and leaderboard reads.
type QuizService struct {
	events       EventStore
	activities   ActivityStore
	participants ParticipantStore
	answers      AnswerStore
	now          func() time.Time
	newID        func() string
}

func NewQuizService(events EventStore, activities ActivityStore, participants ParticipantStore, answers AnswerStore) *QuizService {
	return NewQuizServiceWithClock(events, activities, participants, answers, time.Now, uuid.NewString)
}

// NewQuizServiceWithClock allows deterministic timestamps and ids in tests.
func NewQuizServiceWithClock(events EventStore, activities ActivityStore, participants ParticipantStore, answers AnswerStore, now func() time.Time, newID func() string) *QuizService {
	return &QuizService{events: events, activities: activities, participants: participants, answers: answers, now: now, newID: newID}
}

// Join registers or refreshes a participant in an event.
func (s *QuizService) Join(ctx context.Context, eventID, participantID, name string) (domain.Participant, error) {
	if strings.TrimSpace(participantID) == "" || strings.TrimSpace(name) == "" {
		return domain.Participant{}, domain.Invalidf("participant id and name are required")
	}
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return domain.Participant{}, err
	}

	participant, err := s.participants.GetParticipant(ctx, eventID, participantID)
	if domain.IsKind(err, domain.KindNotFound) {
		participant = domain.Participant{ID: participantID, EventID: eventID}
	} else if err != nil {
		return domain.Participant{}, err
	}
	participant.Name = strings.TrimSpace(name)
	if err := s.participants.PutParticipant(ctx, participant); err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

func (s *QuizService) quiz(ctx context.Context, activityID string) (domain.Activity, error) {
	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if activity.Type != domain.TypeQuiz || activity.Quiz == nil {
		return domain.Activity{}, domain.Invalidf("activity %s is not a quiz", activityID)
	}
	return activity, nil
}

// SubmitAnswer scores one response and folds it into the participant's
// running totals. The answer write is conditional on (participant, question):
// a second submission for the same question fails with KindDuplicate before
// any scoring state changes.
func (s *QuizService) SubmitAnswer(ctx context.Context, eventID, activityID, participantID, questionID, optionID string, responseTimeMs int) (domain.AnswerResult, error) {
	activity, err := s.quiz(ctx, activityID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if activity.EventID != eventID {
		return domain.AnswerResult{}, domain.CrossEventf("activity %s belongs to event %s, not %s", activityID, activity.EventID, eventID)
	}
	if activity.Status != domain.StatusActive {
		return domain.AnswerResult{}, domain.Conflictf("quiz %s is not accepting answers (status %s)", activityID, activity.Status)
	}

	var question *domain.Question
	for i := range activity.Quiz.Questions {
		if activity.Quiz.Questions[i].ID == questionID {
			question = &activity.Quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return domain.AnswerResult{}, domain.NotFoundf("question %s not found in quiz %s", questionID, activityID)
	}

	var selected *domain.QuestionOption
	for i := range question.Options {
		if question.Options[i].ID == optionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return domain.AnswerResult{}, domain.Invalidf("unknown option ids: %s", optionID)
	}

	participant, err := s.participants.GetParticipant(ctx, eventID, participantID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	correct := selected.Correct
	points := 0
	if activity.Quiz.ScoringEnabled && correct {
		if activity.Quiz.SpeedBonusEnabled {
			points = scoring.CalculatePoints(correct, responseTimeMs, question.TimerSeconds)
		} else {
			points = scoring.MaxPoints
		}
	}

	answer := domain.Answer{
		ID:               s.newID(),
		ParticipantID:    participantID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		ResponseTimeMs:   responseTimeMs,
		Correct:          correct,
		PointsEarned:     points,
		SubmittedAt:      s.now(),
	}
	if err := s.answers.CreateAnswer(ctx, answer); err != nil {
		return domain.AnswerResult{}, err
	}

	participant.Score += points
	participant.TotalAnswerTimeMs += responseTimeMs
	if activity.Quiz.StreakTrackingEnabled {
		participant.CurrentStreak, participant.LongestStreak = scoring.UpdateStreak(participant.CurrentStreak, participant.LongestStreak, correct)
	}
	if err := s.participants.PutParticipant(ctx, participant); err != nil {
		return domain.AnswerResult{}, err
	}

	return domain.AnswerResult{
		QuestionID:    questionID,
		Correct:       correct,
		PointsEarned:  points,
		TotalScore:    participant.Score,
		CurrentStreak: participant.CurrentStreak,
	}, nil
}

// AdvanceQuestion moves a live quiz to its next question and returns the new
// index.
func (s *QuizService) AdvanceQuestion(ctx context.Context, activityID string) (int, error) {
	activity, err := s.quiz(ctx, activityID)
	if err != nil {
		return 0, err
	}
	if activity.Status != domain.StatusActive {
		return 0, domain.Conflictf("quiz %s is not live (status %s)", activityID, activity.Status)
	}
	next := activity.Quiz.CurrentQuestionIndex + 1
	if next >= len(activity.Quiz.Questions) {
		return 0, domain.Conflictf("quiz %s is already on its last question", activityID)
	}

	activity.Quiz.CurrentQuestionIndex = next
	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return 0, err
	}
	return next, nil
}

// Leaderboard ranks all of an event's participants.
func (s *QuizService) Leaderboard(ctx context.Context, eventID string) ([]scoring.LeaderboardEntry, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.participants.ParticipantsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return scoring.CalculateLeaderboard(participants), nil
}

// TopThree returns the event podium.
func (s *QuizService) TopThree(ctx context.Context, eventID string) ([]scoring.LeaderboardEntry, error) {
	leaderboard, err := s.Leaderboard(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return scoring.TopThree(leaderboard), nil
}

// QuestionStatistics computes the response distribution for one question.
func (s *QuizService) QuestionStatistics(ctx context.Context, activityID, questionID string) ([]scoring.OptionStat, error) {
	activity, err := s.quiz(ctx, activityID)
	if err != nil {
		return nil, err
	}
	for _, question := range activity.Quiz.Questions {
		if question.ID == questionID {
			answers, err := s.answers.AnswersForQuestion(ctx, questionID)
			if err != nil {
				// Statistics are a read-side enrichment; an unreadable answer
				// set degrades to an empty distribution instead of failing.
				answers = nil
			}
			return scoring.CalculateAnswerStatistics(answers, question), nil
		}
	}
	return nil, domain.NotFoundf("question %s not found in quiz %s", questionID, activityID)
}

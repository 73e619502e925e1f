package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagecast/internal/domain"
)

// activateAttempts bounds how often an activation is replayed when the
// event's active pointer moves underneath the read.
const activateAttempts = 3

// LifecycleService owns the create/update/delete/activate/deactivate state
// machine and enforces the single-active-activity invariant. Activation
// routes through completing the previously active activity, and the event
// pointer flip is the last, single write, so the invariant holds even under
// back-to-back activations.
type LifecycleService struct {
	events     EventStore
	activities ActivityStore
	now        func() time.Time
	newID      func() string
}

func NewLifecycleService(events EventStore, activities ActivityStore) *LifecycleService {
	return NewLifecycleServiceWithClock(events, activities, time.Now, uuid.NewString)
}

// NewLifecycleServiceWithClock allows deterministic timestamps and ids in tests.
func NewLifecycleServiceWithClock(events EventStore, activities ActivityStore, now func() time.Time, newID func() string) *LifecycleService {
	return &LifecycleService{events: events, activities: activities, now: now, newID: newID}
}

// NewActivity describes an activity to create. Type-specific defaults are
// filled in by Create.
type NewActivity struct {
	Type domain.ActivityType
	Name string
}

// Create adds an activity to an event in draft status. Display order is the
// count of the event's existing activities at creation time.
func (s *LifecycleService) Create(ctx context.Context, eventID string, cfg NewActivity) (domain.Activity, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return domain.Activity{}, err
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return domain.Activity{}, domain.Invalidf("activity name is required")
	}

	existing, err := s.activities.FindActivitiesByEvent(ctx, eventID)
	if err != nil {
		return domain.Activity{}, err
	}

	now := s.now()
	activity := domain.Activity{
		ID:           s.newID(),
		EventID:      eventID,
		Name:         name,
		Type:         cfg.Type,
		Status:       domain.StatusDraft,
		Order:        len(existing),
		CreatedAt:    now,
		LastModified: now,
	}

	switch cfg.Type {
	case domain.TypeQuiz:
		activity.Quiz = &domain.QuizConfig{
			ScoringEnabled:        true,
			SpeedBonusEnabled:     true,
			StreakTrackingEnabled: true,
		}
	case domain.TypePoll:
		activity.Poll = &domain.PollConfig{
			AllowMultipleVotes: false,
			ShowResultsLive:    true,
		}
	case domain.TypeRaffle:
		activity.Raffle = &domain.RaffleConfig{
			EntryMethod: domain.EntryAutomatic,
			WinnerCount: 1,
		}
	default:
		return domain.Activity{}, domain.Invalidf("unknown activity type %q", cfg.Type)
	}

	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// ActivityUpdate carries the mutable fields of an activity; nil means leave
// unchanged. Identity fields (id, event id, creation time) cannot appear here.
type ActivityUpdate struct {
	Name   *string
	Quiz   *domain.QuizConfig
	Poll   *domain.PollConfig
	Raffle *domain.RaffleConfig
}

// Update applies a partial update and refreshes the modification time.
func (s *LifecycleService) Update(ctx context.Context, activityID string, upd ActivityUpdate) (domain.Activity, error) {
	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.Activity{}, domain.Invalidf("activity name is required")
		}
		activity.Name = name
	}
	if upd.Quiz != nil {
		if activity.Type != domain.TypeQuiz {
			return domain.Activity{}, domain.Invalidf("activity %s is not a quiz", activityID)
		}
		activity.Quiz = upd.Quiz
	}
	if upd.Poll != nil {
		if activity.Type != domain.TypePoll {
			return domain.Activity{}, domain.Invalidf("activity %s is not a poll", activityID)
		}
		activity.Poll = upd.Poll
	}
	if upd.Raffle != nil {
		if activity.Type != domain.TypeRaffle {
			return domain.Activity{}, domain.Invalidf("activity %s is not a raffle", activityID)
		}
		activity.Raffle = upd.Raffle
	}

	activity.LastModified = s.now()
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Delete removes an activity unless it is the event's current live activity;
// the organizer must deactivate first.
func (s *LifecycleService) Delete(ctx context.Context, activityID string) error {
	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return err
	}
	event, err := s.events.GetEvent(ctx, activity.EventID)
	if err != nil {
		return err
	}
	if event.ActiveActivityID == activityID {
		return domain.Conflictf("activity %s is currently active; deactivate it before deleting", activityID)
	}
	return s.activities.DeleteActivity(ctx, activityID)
}

// Activate makes the target activity the event's single live activity. A
// different currently-active activity is completed first; activating the
// activity that is already live is rejected. The pointer flip is a
// compare-and-swap against the value read at the start, and the whole
// operation replays on conflict.
func (s *LifecycleService) Activate(ctx context.Context, eventID, activityID string) (domain.Activity, domain.Event, error) {
	var lastErr error
	for attempt := 0; attempt < activateAttempts; attempt++ {
		event, err := s.events.GetEvent(ctx, eventID)
		if err != nil {
			return domain.Activity{}, domain.Event{}, err
		}
		activity, err := s.activities.FindActivityByID(ctx, activityID)
		if err != nil {
			return domain.Activity{}, domain.Event{}, err
		}
		if activity.EventID != eventID {
			return domain.Activity{}, domain.Event{}, domain.CrossEventf("activity %s belongs to event %s, not %s", activityID, activity.EventID, eventID)
		}
		if activity.Status == domain.StatusDraft {
			return domain.Activity{}, domain.Event{}, domain.Conflictf("activity %s is still a draft; it must be ready before activation", activityID)
		}
		if event.ActiveActivityID == activityID {
			return domain.Activity{}, domain.Event{}, domain.Conflictf("activity %s is already active", activityID)
		}

		previous := event.ActiveActivityID
		if previous != "" {
			if err := s.activities.SetActivityStatus(ctx, previous, domain.StatusCompleted); err != nil {
				return domain.Activity{}, domain.Event{}, err
			}
		}
		if err := s.activities.SetActivityStatus(ctx, activityID, domain.StatusActive); err != nil {
			return domain.Activity{}, domain.Event{}, err
		}

		err = s.events.SetActiveActivity(ctx, eventID, previous, activityID)
		if domain.IsKind(err, domain.KindStateConflict) {
			// Another activation won the race; replay against fresh state.
			lastErr = err
			continue
		}
		if err != nil {
			return domain.Activity{}, domain.Event{}, err
		}

		activity.Status = domain.StatusActive
		activity.LastModified = s.now()
		event.ActiveActivityID = activityID
		event.LastModified = activity.LastModified
		return activity, event, nil
	}
	return domain.Activity{}, domain.Event{}, lastErr
}

// Deactivate completes the event's current live activity and clears the
// pointer. It fails unless the given activity is exactly the live one.
func (s *LifecycleService) Deactivate(ctx context.Context, eventID, activityID string) (domain.Activity, domain.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Activity{}, domain.Event{}, err
	}
	if event.ActiveActivityID != activityID {
		return domain.Activity{}, domain.Event{}, domain.Conflictf("activity %s is not currently active for event %s", activityID, eventID)
	}

	if err := s.activities.SetActivityStatus(ctx, activityID, domain.StatusCompleted); err != nil {
		return domain.Activity{}, domain.Event{}, err
	}
	if err := s.events.SetActiveActivity(ctx, eventID, activityID, ""); err != nil {
		return domain.Activity{}, domain.Event{}, err
	}

	activity, err := s.activities.FindActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, domain.Event{}, err
	}
	event.ActiveActivityID = ""
	event.LastModified = s.now()
	return activity, event, nil
}

// Activity fetches one activity by id.
func (s *LifecycleService) Activity(ctx context.Context, activityID string) (domain.Activity, error) {
	return s.activities.FindActivityByID(ctx, activityID)
}

// Activities lists an event's activities in display order.
func (s *LifecycleService) Activities(ctx context.Context, eventID string) ([]domain.Activity, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.activities.FindActivitiesByEvent(ctx, eventID)
}

// Package postgres is the durable implementation of every store interface.
// Uniqueness invariants (one vote/entry/answer per key, the single active
// activity pointer) are enforced by primary keys and conditional updates so
// concurrent writers cannot race past the engines' checks.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagecast/internal/domain"
)

// Store implements app.EventStore, ActivityStore, VoteStore, EntryStore,
// ParticipantStore, and AnswerStore over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// activityConfig is the jsonb payload for the type-specific activity shape.
type activityConfig struct {
	Quiz   *domain.QuizConfig   `json:"quiz,omitempty"`
	Poll   *domain.PollConfig   `json:"poll,omitempty"`
	Raffle *domain.RaffleConfig `json:"raffle,omitempty"`
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	var (
		event  domain.Event
		active *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, organizer_id, status, active_activity_id, last_modified FROM events WHERE id=$1`,
		eventID,
	).Scan(&event.ID, &event.OrganizerID, &event.Status, &active, &event.LastModified)
	if err == pgx.ErrNoRows {
		return domain.Event{}, domain.NotFoundf("event %s not found", eventID)
	}
	if err != nil {
		return domain.Event{}, domain.Transientf(err, "pg: get event")
	}
	if active != nil {
		event.ActiveActivityID = *active
	}
	return event, nil
}

// PutEvent seeds or replaces an event record; event CRUD has no decision
// logic, so it lives outside the engine interfaces.
func (s *Store) PutEvent(ctx context.Context, event domain.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, organizer_id, status, active_activity_id, last_modified)
		 VALUES ($1, $2, $3, NULLIF($4, ''), now())
		 ON CONFLICT (id) DO UPDATE SET organizer_id=EXCLUDED.organizer_id, status=EXCLUDED.status,
		   active_activity_id=EXCLUDED.active_activity_id, last_modified=now()`,
		event.ID, event.OrganizerID, event.Status, event.ActiveActivityID)
	if err != nil {
		return domain.Transientf(err, "pg: put event")
	}
	return nil
}

func (s *Store) SetActiveActivity(ctx context.Context, eventID, expected, next string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET active_activity_id = NULLIF($3, ''), last_modified = now()
		 WHERE id = $1 AND active_activity_id IS NOT DISTINCT FROM NULLIF($2, '')`,
		eventID, expected, next)
	if err != nil {
		return domain.Transientf(err, "pg: set active activity")
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetEvent(ctx, eventID); err != nil {
			return err
		}
		return domain.Conflictf("event %s active activity changed (expected %q)", eventID, expected)
	}
	return nil
}

func (s *Store) FindActivityByID(ctx context.Context, activityID string) (domain.Activity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, event_id, name, type, status, ord, config, created_at, last_modified
		 FROM activities WHERE id=$1`, activityID)
	activity, err := scanActivity(row)
	if err == pgx.ErrNoRows {
		return domain.Activity{}, domain.NotFoundf("activity %s not found", activityID)
	}
	if err != nil {
		return domain.Activity{}, domain.Transientf(err, "pg: get activity")
	}
	return activity, nil
}

func (s *Store) FindActivitiesByEvent(ctx context.Context, eventID string) ([]domain.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, name, type, status, ord, config, created_at, last_modified
		 FROM activities WHERE event_id=$1 ORDER BY ord`, eventID)
	if err != nil {
		return nil, domain.Transientf(err, "pg: list activities")
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transientf(err, "pg: list activities")
	}
	return activities, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (domain.Activity, error) {
	var (
		activity domain.Activity
		raw      []byte
	)
	if err := row.Scan(&activity.ID, &activity.EventID, &activity.Name, &activity.Type,
		&activity.Status, &activity.Order, &raw, &activity.CreatedAt, &activity.LastModified); err != nil {
		return domain.Activity{}, err
	}
	var config activityConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return domain.Activity{}, fmt.Errorf("unmarshal activity config: %w", err)
	}
	activity.Quiz, activity.Poll, activity.Raffle = config.Quiz, config.Poll, config.Raffle
	return activity, nil
}

func marshalConfig(activity domain.Activity) ([]byte, error) {
	return json.Marshal(activityConfig{Quiz: activity.Quiz, Poll: activity.Poll, Raffle: activity.Raffle})
}

func (s *Store) CreateActivity(ctx context.Context, activity domain.Activity) error {
	config, err := marshalConfig(activity)
	if err != nil {
		return fmt.Errorf("marshal activity config: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO activities (id, event_id, name, type, status, ord, config, created_at, last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		activity.ID, activity.EventID, activity.Name, activity.Type, activity.Status,
		activity.Order, config, activity.CreatedAt, activity.LastModified)
	if err != nil {
		return domain.Transientf(err, "pg: create activity")
	}
	if tag.RowsAffected() == 0 {
		return domain.Duplicatef("activity %s already exists", activity.ID)
	}
	return nil
}

func (s *Store) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	config, err := marshalConfig(activity)
	if err != nil {
		return fmt.Errorf("marshal activity config: %w", err)
	}
	// Identity columns (event_id, created_at) are never touched.
	tag, err := s.pool.Exec(ctx,
		`UPDATE activities SET name=$2, status=$3, ord=$4, config=$5, last_modified=$6 WHERE id=$1`,
		activity.ID, activity.Name, activity.Status, activity.Order, config, activity.LastModified)
	if err != nil {
		return domain.Transientf(err, "pg: update activity")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("activity %s not found", activity.ID)
	}
	return nil
}

func (s *Store) SetActivityStatus(ctx context.Context, activityID string, status domain.ActivityStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE activities SET status=$2, last_modified=now() WHERE id=$1`, activityID, status)
	if err != nil {
		return domain.Transientf(err, "pg: set activity status")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("activity %s not found", activityID)
	}
	return nil
}

func (s *Store) DeleteActivity(ctx context.Context, activityID string) error {
	// Child records cascade via foreign keys.
	tag, err := s.pool.Exec(ctx, `DELETE FROM activities WHERE id=$1`, activityID)
	if err != nil {
		return domain.Transientf(err, "pg: delete activity")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("activity %s not found", activityID)
	}
	return nil
}

func (s *Store) CreateVote(ctx context.Context, vote domain.PollVote) error {
	optionIDs, err := json.Marshal(vote.OptionIDs)
	if err != nil {
		return fmt.Errorf("marshal option ids: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO poll_votes (id, poll_id, participant_id, option_ids, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (poll_id, participant_id) DO NOTHING`,
		vote.ID, vote.PollID, vote.ParticipantID, optionIDs, vote.SubmittedAt)
	if err != nil {
		return domain.Transientf(err, "pg: create vote")
	}
	if tag.RowsAffected() == 0 {
		return domain.Duplicatef("participant %s already voted in poll %s", vote.ParticipantID, vote.PollID)
	}
	return nil
}

func (s *Store) VotesForPoll(ctx context.Context, pollID string) ([]domain.PollVote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, poll_id, participant_id, option_ids, submitted_at
		 FROM poll_votes WHERE poll_id=$1 ORDER BY submitted_at`, pollID)
	if err != nil {
		return nil, domain.Transientf(err, "pg: list votes")
	}
	defer rows.Close()

	var votes []domain.PollVote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transientf(err, "pg: list votes")
	}
	return votes, nil
}

func (s *Store) VoteByParticipant(ctx context.Context, pollID, participantID string) (domain.PollVote, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, poll_id, participant_id, option_ids, submitted_at
		 FROM poll_votes WHERE poll_id=$1 AND participant_id=$2`, pollID, participantID)
	vote, err := scanVote(row)
	if err == pgx.ErrNoRows {
		return domain.PollVote{}, false, nil
	}
	if err != nil {
		return domain.PollVote{}, false, domain.Transientf(err, "pg: get vote")
	}
	return vote, true, nil
}

func scanVote(row rowScanner) (domain.PollVote, error) {
	var (
		vote domain.PollVote
		raw  []byte
	)
	if err := row.Scan(&vote.ID, &vote.PollID, &vote.ParticipantID, &raw, &vote.SubmittedAt); err != nil {
		return domain.PollVote{}, err
	}
	if err := json.Unmarshal(raw, &vote.OptionIDs); err != nil {
		return domain.PollVote{}, fmt.Errorf("unmarshal option ids: %w", err)
	}
	return vote, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry domain.RaffleEntry) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO raffle_entries (id, raffle_id, participant_id, participant_name, entered_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (raffle_id, participant_id) DO NOTHING`,
		entry.ID, entry.RaffleID, entry.ParticipantID, entry.ParticipantName, entry.EnteredAt)
	if err != nil {
		return domain.Transientf(err, "pg: create entry")
	}
	if tag.RowsAffected() == 0 {
		return domain.Duplicatef("participant %s already entered raffle %s", entry.ParticipantID, entry.RaffleID)
	}
	return nil
}

func (s *Store) EntriesForRaffle(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, raffle_id, participant_id, participant_name, entered_at
		 FROM raffle_entries WHERE raffle_id=$1 ORDER BY entered_at`, raffleID)
	if err != nil {
		return nil, domain.Transientf(err, "pg: list entries")
	}
	defer rows.Close()

	var entries []domain.RaffleEntry
	for rows.Next() {
		var entry domain.RaffleEntry
		if err := rows.Scan(&entry.ID, &entry.RaffleID, &entry.ParticipantID, &entry.ParticipantName, &entry.EnteredAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transientf(err, "pg: list entries")
	}
	return entries, nil
}

func (s *Store) EntryByParticipant(ctx context.Context, raffleID, participantID string) (domain.RaffleEntry, bool, error) {
	var entry domain.RaffleEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, raffle_id, participant_id, participant_name, entered_at
		 FROM raffle_entries WHERE raffle_id=$1 AND participant_id=$2`, raffleID, participantID).
		Scan(&entry.ID, &entry.RaffleID, &entry.ParticipantID, &entry.ParticipantName, &entry.EnteredAt)
	if err == pgx.ErrNoRows {
		return domain.RaffleEntry{}, false, nil
	}
	if err != nil {
		return domain.RaffleEntry{}, false, domain.Transientf(err, "pg: get entry")
	}
	return entry, true, nil
}

func (s *Store) SetWinners(ctx context.Context, raffleID string, winnerIDs []string) error {
	ids, err := json.Marshal(winnerIDs)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO raffle_winners (raffle_id, winner_ids) VALUES ($1, $2)
		 ON CONFLICT (raffle_id) DO UPDATE SET winner_ids=EXCLUDED.winner_ids`,
		raffleID, ids)
	if err != nil {
		return domain.Transientf(err, "pg: set winners")
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, eventID, participantID string) (domain.Participant, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx,
		`SELECT id, event_id, name, score, total_answer_time_ms, current_streak, longest_streak
		 FROM participants WHERE event_id=$1 AND id=$2`, eventID, participantID).
		Scan(&p.ID, &p.EventID, &p.Name, &p.Score, &p.TotalAnswerTimeMs, &p.CurrentStreak, &p.LongestStreak)
	if err == pgx.ErrNoRows {
		return domain.Participant{}, domain.NotFoundf("participant %s not found in event %s", participantID, eventID)
	}
	if err != nil {
		return domain.Participant{}, domain.Transientf(err, "pg: get participant")
	}
	return p, nil
}

func (s *Store) PutParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, event_id, name, score, total_answer_time_ms, current_streak, longest_streak)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id, id) DO UPDATE SET name=EXCLUDED.name, score=EXCLUDED.score,
		   total_answer_time_ms=EXCLUDED.total_answer_time_ms,
		   current_streak=EXCLUDED.current_streak, longest_streak=EXCLUDED.longest_streak`,
		p.ID, p.EventID, p.Name, p.Score, p.TotalAnswerTimeMs, p.CurrentStreak, p.LongestStreak)
	if err != nil {
		return domain.Transientf(err, "pg: put participant")
	}
	return nil
}

func (s *Store) ParticipantsForEvent(ctx context.Context, eventID string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, name, score, total_answer_time_ms, current_streak, longest_streak
		 FROM participants WHERE event_id=$1`, eventID)
	if err != nil {
		return nil, domain.Transientf(err, "pg: list participants")
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.Name, &p.Score, &p.TotalAnswerTimeMs, &p.CurrentStreak, &p.LongestStreak); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transientf(err, "pg: list participants")
	}
	return participants, nil
}

func (s *Store) CreateAnswer(ctx context.Context, answer domain.Answer) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO answers (id, participant_id, question_id, selected_option_id, response_time_ms, is_correct, points_earned, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (participant_id, question_id) DO NOTHING`,
		answer.ID, answer.ParticipantID, answer.QuestionID, answer.SelectedOptionID,
		answer.ResponseTimeMs, answer.Correct, answer.PointsEarned, answer.SubmittedAt)
	if err != nil {
		return domain.Transientf(err, "pg: create answer")
	}
	if tag.RowsAffected() == 0 {
		return domain.Duplicatef("participant %s already answered question %s", answer.ParticipantID, answer.QuestionID)
	}
	return nil
}

func (s *Store) AnswersForQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, participant_id, question_id, selected_option_id, response_time_ms, is_correct, points_earned, submitted_at
		 FROM answers WHERE question_id=$1`, questionID)
	if err != nil {
		return nil, domain.Transientf(err, "pg: list answers")
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.QuestionID, &a.SelectedOptionID, &a.ResponseTimeMs, &a.Correct, &a.PointsEarned, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transientf(err, "pg: list answers")
	}
	return answers, nil
}

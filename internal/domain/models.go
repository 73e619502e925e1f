package domain

import "time"

// EventStatus tracks an event through its organizer-facing lifecycle.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventSetup     EventStatus = "setup"
	EventLive      EventStatus = "live"
	EventCompleted EventStatus = "completed"
)

// Event is the organizer-owned container for activities. At most one activity
// is live at a time; ActiveActivityID is empty when nothing is live.
type Event struct {
	ID               string      `json:"id"`
	OrganizerID      string      `json:"organizerId"`
	Status           EventStatus `json:"status"`
	ActiveActivityID string      `json:"activeActivityId,omitempty"`
	LastModified     time.Time   `json:"lastModified"`
}

// ActivityType discriminates the closed set of activity shapes.
type ActivityType string

const (
	TypeQuiz   ActivityType = "quiz"
	TypePoll   ActivityType = "poll"
	TypeRaffle ActivityType = "raffle"
)

// ActivityStatus follows a linear progression: draft -> ready -> active -> completed.
type ActivityStatus string

const (
	StatusDraft     ActivityStatus = "draft"
	StatusReady     ActivityStatus = "ready"
	StatusActive    ActivityStatus = "active"
	StatusCompleted ActivityStatus = "completed"
)

// Activity is a tagged union over quiz/poll/raffle. Exactly one of the
// type-specific config pointers is non-nil, matching Type.
type Activity struct {
	ID           string         `json:"id"`
	EventID      string         `json:"eventId"`
	Name         string         `json:"name"`
	Type         ActivityType   `json:"type"`
	Status       ActivityStatus `json:"status"`
	Order        int            `json:"order"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastModified time.Time      `json:"lastModified"`

	Quiz   *QuizConfig   `json:"quiz,omitempty"`
	Poll   *PollConfig   `json:"poll,omitempty"`
	Raffle *RaffleConfig `json:"raffle,omitempty"`
}

// QuizConfig holds the quiz variant of an activity.
type QuizConfig struct {
	Questions             []Question `json:"questions"`
	CurrentQuestionIndex  int        `json:"currentQuestionIndex"`
	ScoringEnabled        bool       `json:"scoringEnabled"`
	SpeedBonusEnabled     bool       `json:"speedBonusEnabled"`
	StreakTrackingEnabled bool       `json:"streakTrackingEnabled"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string           `json:"id"`
	Prompt       string           `json:"prompt"`
	Options      []QuestionOption `json:"options"`
	TimerSeconds int              `json:"timerSeconds"` // defaults to 30 if zero
}

// QuestionOption is a possible answer for a quiz question.
type QuestionOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// PollConfig holds the poll variant of an activity.
type PollConfig struct {
	Question           string       `json:"question"`
	Options            []PollOption `json:"options"`
	AllowMultipleVotes bool         `json:"allowMultipleVotes"`
	ShowResultsLive    bool         `json:"showResultsLive"`
}

// PollOption carries a vote count only in result snapshots; counts are
// derived from the vote records on every read, never incremented in place.
type PollOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	VoteCount int    `json:"voteCount"`
}

// EntryMethod controls how participants get into a raffle.
type EntryMethod string

const (
	EntryAutomatic EntryMethod = "automatic"
	EntryManual    EntryMethod = "manual"
)

// RaffleConfig holds the raffle variant of an activity. Winners is cleared
// whenever the raffle is reconfigured.
type RaffleConfig struct {
	PrizeDescription string      `json:"prizeDescription"`
	EntryMethod      EntryMethod `json:"entryMethod"`
	WinnerCount      int         `json:"winnerCount"`
	Winners          []string    `json:"winners,omitempty"`
}

// PollVote is an append-only vote record; at most one per (poll, participant).
type PollVote struct {
	ID            string    `json:"id"`
	PollID        string    `json:"pollId"`
	ParticipantID string    `json:"participantId"`
	OptionIDs     []string  `json:"selectedOptionIds"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// RaffleEntry is an append-only entry record; at most one per (raffle, participant).
type RaffleEntry struct {
	ID              string    `json:"id"`
	RaffleID        string    `json:"raffleId"`
	ParticipantID   string    `json:"participantId"`
	ParticipantName string    `json:"participantName"`
	EnteredAt       time.Time `json:"enteredAt"`
}

// Participant accumulates quiz scoring state across an event.
type Participant struct {
	ID                string `json:"id"`
	EventID           string `json:"eventId"`
	Name              string `json:"name"`
	Score             int    `json:"score"`
	TotalAnswerTimeMs int    `json:"totalAnswerTimeMs"`
	CurrentStreak     int    `json:"currentStreak"`
	LongestStreak     int    `json:"longestStreak"`
}

// Answer records one submitted quiz response; at most one per (participant, question).
type Answer struct {
	ID               string    `json:"id"`
	ParticipantID    string    `json:"participantId"`
	QuestionID       string    `json:"questionId"`
	SelectedOptionID string    `json:"selectedOptionId"`
	ResponseTimeMs   int       `json:"responseTimeMs"`
	Correct          bool      `json:"isCorrect"`
	PointsEarned     int       `json:"pointsEarned"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// PollResults is the derived tally for a poll at a point in time.
type PollResults struct {
	ActivityID string       `json:"activityId"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	TotalVotes int          `json:"totalVotes"`
}

// RaffleWinner pairs a drawn participant id with the name captured at entry time.
type RaffleWinner struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

// RaffleResults is the final raffle summary returned when a raffle ends.
type RaffleResults struct {
	ActivityID       string         `json:"activityId"`
	PrizeDescription string         `json:"prizeDescription"`
	TotalEntries     int            `json:"totalEntries"`
	Winners          []RaffleWinner `json:"winners"`
}

// AnswerResult summarizes the outcome of a quiz submission for a single participant.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	PointsEarned  int    `json:"pointsEarned"`
	TotalScore    int    `json:"totalScore"`
	CurrentStreak int    `json:"currentStreak"`
}

// Package scoring holds the pure point, streak, and ranking calculations.
// Nothing here touches a store; everything operates on values passed in.
package scoring

import (
	"math"
	"sort"

	"stagecast/internal/domain"
)

const (
	// MaxPoints is awarded for a correct answer inside the full-credit window.
	MaxPoints = 1000
	// MinCorrectPoints is the floor for any correct answer, however slow.
	MinCorrectPoints = 500
	// fullCreditFraction of the timer window still earns MaxPoints.
	fullCreditFraction = 0.25
	// DefaultTimerSeconds applies when a question has no timer configured.
	DefaultTimerSeconds = 30
)

// CalculatePoints converts answer speed into points. Incorrect answers earn 0.
// Correct answers earn MaxPoints within the first quarter of the timer window,
// then decay linearly to MinCorrectPoints at the full window; the floor holds
// even past the window so correctness always earns credit.
func CalculatePoints(correct bool, responseTimeMs, timerSeconds int) int {
	if !correct {
		return 0
	}
	if timerSeconds <= 0 {
		timerSeconds = DefaultTimerSeconds
	}
	window := float64(timerSeconds) * 1000
	threshold := window * fullCreditFraction
	elapsed := float64(responseTimeMs)
	if elapsed <= threshold {
		return MaxPoints
	}
	fraction := (elapsed - threshold) / (window - threshold)
	points := math.Round(MaxPoints - fraction*(MaxPoints-MinCorrectPoints))
	if points < MinCorrectPoints {
		return MinCorrectPoints
	}
	return int(points)
}

// UpdateStreak applies one answer outcome to a streak pair. A correct answer
// extends the current streak and may raise the longest; an incorrect answer
// resets the current streak only.
func UpdateStreak(current, longest int, correct bool) (int, int) {
	if !correct {
		return 0, longest
	}
	current++
	if current > longest {
		longest = current
	}
	return current, longest
}

// LeaderboardEntry is one ranked row of the event scoreboard.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	ParticipantID     string `json:"participantId"`
	Name              string `json:"name"`
	Score             int    `json:"score"`
	TotalAnswerTimeMs int    `json:"totalAnswerTimeMs"`
}

// CalculateLeaderboard ranks participants by score descending, total answer
// time ascending, then name. Ranks are dense 1..N with no ties: the sort keys
// define a total order and equal triples still receive consecutive ranks.
func CalculateLeaderboard(participants []domain.Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, LeaderboardEntry{
			ParticipantID:     p.ID,
			Name:              p.Name,
			Score:             p.Score,
			TotalAnswerTimeMs: p.TotalAnswerTimeMs,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalAnswerTimeMs != entries[j].TotalAnswerTimeMs {
			return entries[i].TotalAnswerTimeMs < entries[j].TotalAnswerTimeMs
		}
		return entries[i].Name < entries[j].Name
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// TopThree returns the podium slice of a ranked leaderboard.
func TopThree(leaderboard []LeaderboardEntry) []LeaderboardEntry {
	if len(leaderboard) <= 3 {
		return leaderboard
	}
	return leaderboard[:3]
}

// OptionStat is the response distribution for one question option.
type OptionStat struct {
	OptionID   string  `json:"optionId"`
	Text       string  `json:"text"`
	Correct    bool    `json:"correct"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CalculateAnswerStatistics tallies answers per option and derives each
// option's share of the total responses. Percentages are 0 when nobody
// answered.
func CalculateAnswerStatistics(answers []domain.Answer, question domain.Question) []OptionStat {
	counts := make(map[string]int, len(question.Options))
	for _, a := range answers {
		counts[a.SelectedOptionID]++
	}

	total := len(answers)
	stats := make([]OptionStat, 0, len(question.Options))
	for _, opt := range question.Options {
		count := counts[opt.ID]
		pct := 0.0
		if total > 0 {
			pct = float64(count) * 100 / float64(total)
		}
		stats = append(stats, OptionStat{
			OptionID:   opt.ID,
			Text:       opt.Text,
			Correct:    opt.Correct,
			Count:      count,
			Percentage: pct,
		})
	}
	return stats
}

package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"stagecast/internal/app"
	"stagecast/internal/domain"
)

// AdminHandler exposes the organizer's JSON API: activity lifecycle control
// plus the poll, raffle, and quiz operations that run the show.
type AdminHandler struct {
	lifecycle *app.LifecycleService
	polls     *app.PollService
	raffles   *app.RaffleService
	quizzes   *app.QuizService
	hub       *Hub
	log       *zap.Logger
}

func NewAdminHandler(lifecycle *app.LifecycleService, polls *app.PollService, raffles *app.RaffleService, quizzes *app.QuizService, hub *Hub, log *zap.Logger) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, polls: polls, raffles: raffles, quizzes: quizzes, hub: hub, log: log}
}

// Register mounts all organizer routes on the mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /events/{eventID}/activities", h.createActivity)
	mux.HandleFunc("GET /events/{eventID}/activities", h.listActivities)
	mux.HandleFunc("PATCH /activities/{activityID}", h.updateActivity)
	mux.HandleFunc("DELETE /activities/{activityID}", h.deleteActivity)
	mux.HandleFunc("POST /events/{eventID}/activities/{activityID}/activate", h.activate)
	mux.HandleFunc("POST /events/{eventID}/activities/{activityID}/deactivate", h.deactivate)

	mux.HandleFunc("POST /activities/{activityID}/poll/configure", h.configurePoll)
	mux.HandleFunc("POST /activities/{activityID}/poll/start", h.startPoll)
	mux.HandleFunc("POST /activities/{activityID}/poll/end", h.endPoll)
	mux.HandleFunc("GET /activities/{activityID}/poll/results", h.pollResults)

	mux.HandleFunc("POST /activities/{activityID}/raffle/configure", h.configureRaffle)
	mux.HandleFunc("POST /activities/{activityID}/raffle/start", h.startRaffle)
	mux.HandleFunc("POST /activities/{activityID}/raffle/draw", h.drawWinners)
	mux.HandleFunc("POST /activities/{activityID}/raffle/end", h.endRaffle)

	mux.HandleFunc("POST /activities/{activityID}/quiz/advance", h.advanceQuestion)
	mux.HandleFunc("GET /activities/{activityID}/questions/{questionID}/stats", h.questionStats)
	mux.HandleFunc("GET /events/{eventID}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /events/{eventID}/leaderboard/top", h.topThree)
}

func (h *AdminHandler) createActivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	activity, err := h.lifecycle.Create(r.Context(), r.PathValue("eventID"), app.NewActivity{
		Type: domain.ActivityType(body.Type),
		Name: body.Name,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, activity)
}

func (h *AdminHandler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.lifecycle.Activities(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activities)
}

func (h *AdminHandler) updateActivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   *string              `json:"name"`
		Quiz   *domain.QuizConfig   `json:"quiz"`
		Poll   *domain.PollConfig   `json:"poll"`
		Raffle *domain.RaffleConfig `json:"raffle"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	activity, err := h.lifecycle.Update(r.Context(), r.PathValue("activityID"), app.ActivityUpdate{
		Name: body.Name, Quiz: body.Quiz, Poll: body.Poll, Raffle: body.Raffle,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *AdminHandler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Delete(r.Context(), r.PathValue("activityID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) activate(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	activity, event, err := h.lifecycle.Activate(r.Context(), eventID, r.PathValue("activityID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.Publish(eventID, Notice{Type: "activityActivated", Payload: activity})
	h.writeJSON(w, http.StatusOK, map[string]any{"activity": activity, "event": event})
}

func (h *AdminHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	activity, event, err := h.lifecycle.Deactivate(r.Context(), eventID, r.PathValue("activityID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.Publish(eventID, Notice{Type: "activityDeactivated", Payload: activity})
	h.writeJSON(w, http.StatusOK, map[string]any{"activity": activity, "event": event})
}

func (h *AdminHandler) configurePoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	activity, err := h.polls.Configure(r.Context(), r.PathValue("activityID"), body.Question, body.Options)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *AdminHandler) startPoll(w http.ResponseWriter, r *http.Request) {
	activity, err := h.polls.Start(r.Context(), r.PathValue("activityID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.Publish(activity.EventID, Notice{Type: "pollStarted", Payload: activity})
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *AdminHandler) endPoll(w http.ResponseWriter, r *http.Request) {
	activityID := r.PathValue("activityID")
	results, err := h.polls.End(r.Context(), activityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if activity, err := h.lifecycle.Activity(r.Context(), activityID); err == nil {
		h.hub.Publish(activity.EventID, Notice{Type: "pollEnded", Payload: results})
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *AdminHandler) pollResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.polls.Results(r.Context(), r.PathValue("activityID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *AdminHandler) configureRaffle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PrizeDescription string `json:"prizeDescription"`
		EntryMethod      string `json:"entryMethod"`
		WinnerCount      int    `json:"winnerCount"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	activity, err := h.raffles.Configure(r.Context(), r.PathValue("activityID"), app.RaffleSetup{
		PrizeDescription: body.PrizeDescription,
		EntryMethod:      domain.EntryMethod(body.EntryMethod),
		WinnerCount:      body.WinnerCount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *AdminHandler) startRaffle(w http.ResponseWriter, r *http.Request) {
	activity, err := h.raffles.Start(r.Context(), r.PathValue("activityID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.Publish(activity.EventID, Notice{Type: "raffleStarted", Payload: activity})
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *AdminHandler) drawWinners(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Count int `json:"count"`
	}
	// An empty body draws the configured winner count.
	if r.ContentLength > 0 && !h.decode(w, r, &body) {
		return
	}
	activityID := r.PathValue("activityID")
	winners, err := h.raffles.DrawWinners(r.Context(), activityID, body.Count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if activity, err := h.lifecycle.Activity(r.Context(), activityID); err == nil {
		h.hub.Publish(activity.EventID, Notice{Type: "winnersDrawn", Payload: winners})
	}
	h.writeJSON(w, http.StatusOK, winners)
}

func (h *AdminHandler) endRaffle(w http.ResponseWriter, r *http.Request) {
	activityID := r.PathValue("activityID")
	results, err := h.raffles.End(r.Context(), activityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if activity, err := h.lifecycle.Activity(r.Context(), activityID); err == nil {
		h.hub.Publish(activity.EventID, Notice{Type: "raffleEnded", Payload: results})
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *AdminHandler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	activityID := r.PathValue("activityID")
	index, err := h.quizzes.AdvanceQuestion(r.Context(), activityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if activity, err := h.lifecycle.Activity(r.Context(), activityID); err == nil {
		h.hub.Publish(activity.EventID, Notice{Type: "questionAdvanced", Payload: map[string]int{"currentQuestionIndex": index}})
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"currentQuestionIndex": index})
}

func (h *AdminHandler) questionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quizzes.QuestionStatistics(r.Context(), r.PathValue("activityID"), r.PathValue("questionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := h.quizzes.Leaderboard(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, leaderboard)
}

func (h *AdminHandler) topThree(w http.ResponseWriter, r *http.Request) {
	podium, err := h.quizzes.TopThree(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, podium)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case domain.IsKind(err, domain.KindNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.KindValidation), domain.IsKind(err, domain.KindCrossEvent):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.KindStateConflict), domain.IsKind(err, domain.KindDuplicate),
		domain.IsKind(err, domain.KindInsufficientEntries):
		return http.StatusConflict
	case domain.IsKind(err, domain.KindTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stagecast/internal/app"
)

// WSHandler is the participant-facing websocket surface: join an event, then
// submit quiz answers, poll votes, and raffle entries over one connection
// while receiving the event's broadcast notices.
type WSHandler struct {
	quizzes  *app.QuizService
	polls    *app.PollService
	raffles  *app.RaffleService
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(quizzes *app.QuizService, polls *app.PollService, raffles *app.RaffleService, hub *Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		quizzes: quizzes,
		polls:   polls,
		raffles: raffles,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	ActivityID     string `json:"activityId"`
	QuestionID     string `json:"questionId"`
	OptionID       string `json:"optionId"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

type votePayload struct {
	ActivityID string   `json:"activityId"`
	OptionIDs  []string `json:"selectedOptionIds"`
}

type enterPayload struct {
	ActivityID string `json:"activityId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the connection's read loop. Writes go
// through a single writer goroutine so broadcast notices and direct replies
// never interleave on the wire.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if eventID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing eventId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	participant, err := h.quizzes.Join(r.Context(), eventID, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(Notice{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	notices, cancel := h.hub.Subscribe(eventID)
	defer cancel()

	send := make(chan Notice, 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}()

	noticesDone := make(chan struct{})
	go func() {
		defer close(noticesDone)
		for {
			select {
			case notice, ok := <-notices:
				if !ok {
					return
				}
				select {
				case send <- notice:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	send <- Notice{Type: "joined", Payload: participant}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply := h.handleMessage(r, eventID, userID, displayName, inbound)
		select {
		case send <- reply:
		case <-done:
		}
	}

	close(done)
	<-noticesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(r *http.Request, eventID, userID, displayName string, inbound inboundMessage) Notice {
	ctx := r.Context()
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
		}
		result, err := h.quizzes.SubmitAnswer(ctx, eventID, payload.ActivityID, userID, payload.QuestionID, payload.OptionID, payload.ResponseTimeMs)
		if err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		if leaderboard, err := h.quizzes.Leaderboard(ctx, eventID); err == nil {
			h.hub.Publish(eventID, Notice{Type: "leaderboard", Payload: leaderboard})
		}
		return Notice{Type: "answerResult", Payload: result}

	case "vote":
		var payload votePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: "invalid vote payload"}}
		}
		vote, err := h.polls.SubmitVote(ctx, payload.ActivityID, userID, payload.OptionIDs)
		if err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		if results, err := h.polls.Results(ctx, payload.ActivityID); err == nil && results.Options != nil {
			h.hub.Publish(eventID, Notice{Type: "pollResults", Payload: results})
		}
		return Notice{Type: "voteAccepted", Payload: vote}

	case "enter":
		var payload enterPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: "invalid enter payload"}}
		}
		entry, err := h.raffles.Enter(ctx, payload.ActivityID, userID, displayName)
		if err != nil {
			return Notice{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		return Notice{Type: "entryAccepted", Payload: entry}

	default:
		return Notice{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

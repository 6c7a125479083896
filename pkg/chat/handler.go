package chat

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/assistant"
	"github.com/growthbox/databot/pkg/llm"
)

// DefaultAnswerTimeout bounds how long one chat turn may spend inside
// the model loop and its queries.
const DefaultAnswerTimeout = 5 * time.Minute

// directSQLPrefix marks a message that bypasses the model and runs SQL
// verbatim through the gateway.
const directSQLPrefix = "!sql"

// Event is an inbound chat platform event.
type Event struct {
	Channel  string `json:"channel"`
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
}

// Handler receives chat platform webhooks and drives the assistant.
type Handler struct {
	secret   string
	svc      assistant.Service
	gateway  assistant.Gateway
	sessions *SessionStore
	poster   Poster
	logger   *zap.Logger

	// answer is swapped in tests to run synchronously.
	answer func(ev Event)
}

// NewHandler creates the chat webhook handler.
func NewHandler(secret string, svc assistant.Service, gw assistant.Gateway, sessions *SessionStore, poster Poster, logger *zap.Logger) *Handler {
	h := &Handler{
		secret:   secret,
		svc:      svc,
		gateway:  gw,
		sessions: sessions,
		poster:   poster,
		logger:   logger.Named("chat"),
	}
	h.answer = h.processEvent
	return h
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat/events", h.Events)
}

// Events handles POST /chat/events. The platform expects a fast ack, so
// the event is answered on a background goroutine and posted back
// through the response webhook.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "bad webhook token")
		return
	}

	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid event payload")
		return
	}
	if strings.TrimSpace(ev.Text) == "" || ev.Channel == "" {
		ErrorResponse(w, http.StatusBadRequest, "bad_request", "channel and text are required")
		return
	}

	go h.answer(ev)

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"accepted"}`))
}

func (h *Handler) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// processEvent runs one chat turn end to end and posts the reply.
func (h *Handler) processEvent(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultAnswerTimeout)
	defer cancel()

	text := strings.TrimSpace(ev.Text)

	var reply string
	if sqlText, ok := strings.CutPrefix(text, directSQLPrefix); ok {
		reply = h.runDirectSQL(ctx, strings.TrimSpace(sqlText))
	} else {
		history := h.sessions.History(ev.ThreadID)
		answer, err := h.svc.Answer(ctx, history, text)
		if err != nil {
			h.logger.Error("answer failed",
				zap.String("thread_id", ev.ThreadID),
				zap.Error(err))
			reply = "Sorry, I couldn't answer that one. Try rephrasing or narrowing the question."
		} else {
			reply = answer
			h.sessions.Append(ev.ThreadID,
				assistant.Turn{Role: llm.RoleUser, Content: text},
				assistant.Turn{Role: llm.RoleAssistant, Content: answer})
		}
	}

	if err := h.poster.PostMessage(ctx, ev.Channel, ev.ThreadID, reply); err != nil {
		h.logger.Error("post reply failed",
			zap.String("channel", ev.Channel),
			zap.Error(err))
	}
}

func (h *Handler) runDirectSQL(ctx context.Context, sqlText string) string {
	if sqlText == "" {
		return "Usage: !sql SELECT ..."
	}
	res, err := h.gateway.ExecuteDirect(ctx, sqlText)
	if err != nil {
		return "Query rejected: " + err.Error()
	}
	return assistant.FormatResultText(res)
}

package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/assistant"
	"github.com/growthbox/databot/pkg/llm"
	"github.com/growthbox/databot/pkg/warehouse"
)

type fakeService struct {
	answers  map[string]string
	err      error
	prompts  []string
	lastHist []assistant.Turn
}

func (f *fakeService) Answer(_ context.Context, history []assistant.Turn, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.lastHist = history
	if f.err != nil {
		return "", f.err
	}
	if a, ok := f.answers[prompt]; ok {
		return a, nil
	}
	return "answer", nil
}

type fakeGateway struct {
	direct []string
	err    error
}

func (f *fakeGateway) Execute(_ context.Context, _, sqlQuery string) (*assistant.ExecutionResult, error) {
	return f.run(sqlQuery)
}

func (f *fakeGateway) ExecuteDirect(_ context.Context, sqlQuery string) (*assistant.ExecutionResult, error) {
	f.direct = append(f.direct, sqlQuery)
	return f.run(sqlQuery)
}

func (f *fakeGateway) run(string) (*assistant.ExecutionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.ExecutionResult{
		Result: &warehouse.QueryResult{
			Columns:  []warehouse.ColumnInfo{{Name: "n", Type: "INT8"}},
			Rows:     []map[string]any{{"n": int64(7)}},
			RowCount: 1,
		},
	}, nil
}

type fakePoster struct {
	messages []string
	threads  []string
}

func (f *fakePoster) PostMessage(_ context.Context, _, threadID, text string) error {
	f.messages = append(f.messages, text)
	f.threads = append(f.threads, threadID)
	return nil
}

func newTestHandler(svc assistant.Service, gw assistant.Gateway, poster Poster) *Handler {
	h := NewHandler("secret-token", svc, gw, NewSessionStore(time.Hour), poster, zap.NewNop())
	// Run turns synchronously so tests can assert on the outcome.
	inner := h.answer
	h.answer = func(ev Event) { inner(ev) }
	return h
}

func postEvent(t *testing.T, h *Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/chat/events", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEvents_RejectsBadToken(t *testing.T) {
	h := newTestHandler(&fakeService{}, &fakeGateway{}, &fakePoster{})

	rec := postEvent(t, h, "wrong", `{"channel":"#data","text":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestEvents_RejectsEmptyText(t *testing.T) {
	h := newTestHandler(&fakeService{}, &fakeGateway{}, &fakePoster{})

	rec := postEvent(t, h, "secret-token", `{"channel":"#data","text":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEvents_AnswersAndPosts(t *testing.T) {
	svc := &fakeService{answers: map[string]string{"how much churn?": "42 churned"}}
	poster := &fakePoster{}
	h := newTestHandler(svc, &fakeGateway{}, poster)

	rec := postEvent(t, h, "secret-token",
		`{"channel":"#data","thread_id":"t1","text":"how much churn?"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	waitFor(t, func() bool { return len(poster.messages) == 1 })
	if poster.messages[0] != "42 churned" {
		t.Errorf("unexpected reply: %q", poster.messages[0])
	}
	if poster.threads[0] != "t1" {
		t.Errorf("reply must stay in the thread, got %q", poster.threads[0])
	}
}

func TestEvents_ThreadHistoryCarriesOver(t *testing.T) {
	svc := &fakeService{}
	poster := &fakePoster{}
	h := newTestHandler(svc, &fakeGateway{}, poster)

	postEvent(t, h, "secret-token", `{"channel":"#data","thread_id":"t1","text":"first"}`)
	waitFor(t, func() bool { return len(poster.messages) == 1 })

	postEvent(t, h, "secret-token", `{"channel":"#data","thread_id":"t1","text":"second"}`)
	waitFor(t, func() bool { return len(poster.messages) == 2 })

	if len(svc.lastHist) != 2 {
		t.Fatalf("expected 2 prior turns on the second message, got %d", len(svc.lastHist))
	}
	if svc.lastHist[0].Role != llm.RoleUser || svc.lastHist[0].Content != "first" {
		t.Errorf("unexpected first history turn: %+v", svc.lastHist[0])
	}
}

func TestEvents_DirectSQLBypassesModel(t *testing.T) {
	svc := &fakeService{}
	gw := &fakeGateway{}
	poster := &fakePoster{}
	h := newTestHandler(svc, gw, poster)

	postEvent(t, h, "secret-token",
		`{"channel":"#data","thread_id":"t1","text":"!sql SELECT COUNT(*) AS n FROM analytics.orders"}`)
	waitFor(t, func() bool { return len(poster.messages) == 1 })

	if len(svc.prompts) != 0 {
		t.Errorf("direct SQL must not reach the model, got prompts %v", svc.prompts)
	}
	if len(gw.direct) != 1 {
		t.Fatalf("expected 1 direct execution, got %d", len(gw.direct))
	}
	if !strings.Contains(poster.messages[0], "7") {
		t.Errorf("result rows missing from reply: %q", poster.messages[0])
	}
}

func TestEvents_AnswerFailurePostsApology(t *testing.T) {
	svc := &fakeService{err: errors.New("model unavailable")}
	poster := &fakePoster{}
	h := newTestHandler(svc, &fakeGateway{}, poster)

	postEvent(t, h, "secret-token", `{"channel":"#data","text":"hi"}`)
	waitFor(t, func() bool { return len(poster.messages) == 1 })

	if !strings.Contains(poster.messages[0], "Sorry") {
		t.Errorf("expected apology, got %q", poster.messages[0])
	}
}

func TestSessionStore_TTL(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	store.Append("t1",
		assistant.Turn{Role: llm.RoleUser, Content: "q"},
		assistant.Turn{Role: llm.RoleAssistant, Content: "a"})

	if got := len(store.History("t1")); got != 2 {
		t.Fatalf("expected 2 turns, got %d", got)
	}

	current = current.Add(2 * time.Minute)
	if got := len(store.History("t1")); got != 0 {
		t.Errorf("expired thread must be forgotten, got %d turns", got)
	}
	if pruned := store.Prune(); pruned != 0 {
		t.Errorf("History should already have dropped the thread, pruned %d", pruned)
	}
}

func TestSessionStore_TurnCap(t *testing.T) {
	store := NewSessionStore(time.Hour)
	for i := 0; i < 30; i++ {
		store.Append("t1",
			assistant.Turn{Role: llm.RoleUser, Content: "q"},
			assistant.Turn{Role: llm.RoleAssistant, Content: "a"})
	}
	if got := len(store.History("t1")); got != maxTurnsPerThread {
		t.Errorf("expected history capped at %d, got %d", maxTurnsPerThread, got)
	}
}

// Package chat connects the assistant to the chat platform: the
// webhook receiver, thread sessions and the outbound message poster.
package chat

import (
	"sync"
	"time"

	"github.com/growthbox/databot/pkg/assistant"
)

// maxTurnsPerThread bounds how much history one thread carries into the
// model. Older turns fall off the front.
const maxTurnsPerThread = 20

// SessionStore keeps per-thread conversation history with a TTL.
// Threads that stay quiet longer than the TTL are forgotten.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session
	now      func() time.Time
}

type session struct {
	turns      []assistant.Turn
	lastActive time.Time
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// History returns the thread's remembered turns, oldest first. An
// expired or unknown thread yields nil.
func (s *SessionStore) History(threadID string) []assistant.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[threadID]
	if !ok || s.expired(sess) {
		delete(s.sessions, threadID)
		return nil
	}

	turns := make([]assistant.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// Append records one user/assistant exchange on the thread and refreshes
// its TTL. Expired history is discarded first.
func (s *SessionStore) Append(threadID string, userTurn, assistantTurn assistant.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[threadID]
	if !ok || s.expired(sess) {
		sess = &session{}
		s.sessions[threadID] = sess
	}

	sess.turns = append(sess.turns, userTurn, assistantTurn)
	if len(sess.turns) > maxTurnsPerThread {
		sess.turns = sess.turns[len(sess.turns)-maxTurnsPerThread:]
	}
	sess.lastActive = s.now()
}

// Prune drops all expired threads. Called periodically so idle threads
// don't pile up between messages.
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

func (s *SessionStore) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.lastActive) > s.ttl
}

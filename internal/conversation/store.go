package conversation

import "sync"

// Store maps user identifiers to their conversations. Conversations live for
// the process lifetime; there is no eviction.
//
// Store is safe for concurrent use. First-time creation for different users
// is an atomic get-or-insert; same-user message turns are serialized through
// Begin so that two concurrent messages from one user never interleave their
// read-orchestrate-append sequences.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	conv *Conversation

	// turnMu serializes whole message turns for this user. Held across
	// external calls, so it is deliberately separate from the
	// conversation's internal state mutex.
	turnMu sync.Mutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// GetOrCreate returns the existing conversation for userID, or creates one
// seeded with the system-prompt developer turn. Never fails; calling it
// twice for the same id returns the same instance.
func (s *Store) GetOrCreate(userID string) *Conversation {
	return s.getOrCreate(userID).conv
}

// Begin acquires the per-user turn lock and returns the conversation plus a
// release func. Callers must hold the lock for the full
// append-orchestrate-append sequence of one inbound message:
//
//	conv, release := store.Begin(userID)
//	defer release()
//
// Turns for different users proceed fully in parallel.
func (s *Store) Begin(userID string) (*Conversation, func()) {
	sess := s.getOrCreate(userID)
	sess.turnMu.Lock()
	return sess.conv, sess.turnMu.Unlock
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) getOrCreate(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{conv: newConversation(userID)}
		s.sessions[userID] = sess
	}
	return sess
}

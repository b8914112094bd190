package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"assetedge/market"
)

// Query is one question/answer pair in a session log. Result is nil while
// the answer is pending; once set it is never overwritten.
type Query struct {
	ID      string                     `json:"id"`
	Text    string                     `json:"text"`
	Result  *market.QueryResult        `json:"result,omitempty"`
	Kind    market.ResultKind          `json:"kind,omitempty"`
	Records []market.PerformanceRecord `json:"records,omitempty"`
	AskedAt int64                      `json:"asked_at"`
}

// Pending reports whether the query is still waiting for its result.
func (q *Query) Pending() bool {
	return q.Result == nil
}

// Session is a named conversation thread holding an ordered query log.
type Session struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt int64   `json:"created_at"`
	Queries   []Query `json:"queries"`
}

// SessionService owns every session and the active-session pointer.
// All mutations go through the service mutex, so two queries submitted in
// quick succession cannot interleave their id-to-result bindings.
//
// Sessions are persisted under <sessionsDir>/<id>/history.json and reloaded
// on construction. Persistence is best effort: a failed write is logged and
// the in-memory state stays authoritative.
type SessionService struct {
	sessionsDir string
	logger      func(string)
	extractor   *market.Extractor

	mu       sync.Mutex
	sessions []*Session
	activeID string
}

// NewSessionService loads any persisted sessions from sessionsDir and
// guarantees at least one session exists and is active.
func NewSessionService(sessionsDir string, logger func(string)) *SessionService {
	s := &SessionService{
		sessionsDir: sessionsDir,
		logger:      logger,
		extractor:   market.NewExtractor(logger),
	}
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		s.log(fmt.Sprintf("Warning: failed to create sessions directory %s: %v", sessionsDir, err))
	}

	s.loadSessions()
	if len(s.sessions) == 0 {
		s.createSessionLocked("Default Session")
	}
	if s.activeID == "" {
		s.activeID = s.sessions[0].ID
	}
	return s
}

func (s *SessionService) log(msg string) {
	if s.logger != nil {
		s.logger(msg)
	}
}

// CreateSession adds a new empty session and makes it active. Never fails;
// a name collision gets a numbered suffix so names stay distinguishable in
// the session list.
func (s *SessionService) CreateSession(name string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSessionLocked(name)
}

func (s *SessionService) createSessionLocked(name string) Session {
	if name == "" {
		name = "New Session"
	}
	sess := &Session{
		ID:        uuid.NewString(),
		Name:      s.uniqueNameLocked(name),
		CreatedAt: time.Now().Unix(),
		Queries:   []Query{},
	}
	s.sessions = append(s.sessions, sess)
	s.activeID = sess.ID
	s.saveSessionLocked(sess)
	return *sess
}

// uniqueNameLocked appends " (n)" until the name is unused.
func (s *SessionService) uniqueNameLocked(name string) string {
	existing := make(map[string]bool, len(s.sessions))
	for _, sess := range s.sessions {
		existing[sess.Name] = true
	}
	candidate := name
	counter := 1
	for existing[candidate] {
		candidate = fmt.Sprintf("%s (%d)", name, counter)
		counter++
	}
	return candidate
}

// DeleteSession removes a session. When the active session is deleted the
// active pointer falls back to the first remaining session, or to the empty
// sentinel when none remain.
func (s *SessionService) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return WrapError("session", "DeleteSession", ErrSessionNotFound)
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		} else {
			s.activeID = ""
		}
	}

	dir := filepath.Join(s.sessionsDir, sanitizeSessionID(id))
	if err := os.RemoveAll(dir); err != nil {
		s.log(fmt.Sprintf("Warning: failed to remove session dir %s: %v", dir, err))
	}
	return nil
}

// SetActive switches the active session. The id is validated so the
// active pointer can never dangle.
func (s *SessionService) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return WrapError("session", "SetActive", ErrSessionNotFound)
	}
	s.activeID = id
	return nil
}

// ActiveSession returns a copy of the active session, or ErrNoActiveSession
// when the store is empty.
func (s *SessionService) ActiveSession() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return Session{}, ErrNoActiveSession
	}
	return copySession(s.sessions[idx]), nil
}

// Sessions returns copies of all sessions in creation order.
func (s *SessionService) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, copySession(sess))
	}
	return out
}

// GetSession returns a copy of one session by id.
func (s *SessionService) GetSession(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Session{}, WrapError("session", "GetSession", ErrSessionNotFound)
	}
	return copySession(s.sessions[idx]), nil
}

// AppendQuery appends a pending query to the given session's log and
// returns the generated query id so the eventual result can be matched
// back regardless of arrival order.
func (s *SessionService) AppendQuery(sessionID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return "", WrapError("session", "AppendQuery", ErrSessionNotFound)
	}

	q := Query{
		ID:      uuid.NewString(),
		Text:    text,
		AskedAt: time.Now().UnixMilli(),
	}
	s.sessions[idx].Queries = append(s.sessions[idx].Queries, q)
	s.saveSessionLocked(s.sessions[idx])
	return q.ID, nil
}

// ResolveQuery sets a pending query's result exactly once, matching by the
// query id. Unknown ids and already-resolved queries are a no-op: late or
// duplicate callbacks can legitimately arrive after a session was cleared
// or deleted.
func (s *SessionService) ResolveQuery(queryID string, result *market.QueryResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		for i := range sess.Queries {
			if sess.Queries[i].ID != queryID {
				continue
			}
			if !sess.Queries[i].Pending() {
				return
			}
			sess.Queries[i].Result = result
			sess.Queries[i].Kind = market.Classify(result)
			if sess.Queries[i].Kind == market.KindTabular && result.Text != "" {
				sess.Queries[i].Records = s.extractor.Extract(result.Text)
			}
			s.saveSessionLocked(sess)
			return
		}
	}
	// Late result for a cleared or deleted session: drop silently.
}

// ClearQueries empties a session's log in place. Identity, name, and
// creation timestamp are unaffected.
func (s *SessionService) ClearQueries(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return WrapError("session", "ClearQueries", ErrSessionNotFound)
	}
	s.sessions[idx].Queries = []Query{}
	s.saveSessionLocked(s.sessions[idx])
	return nil
}

func (s *SessionService) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func copySession(sess *Session) Session {
	out := *sess
	out.Queries = make([]Query, len(sess.Queries))
	copy(out.Queries, sess.Queries)
	return out
}

// sanitizeSessionID keeps only characters safe for a directory name,
// preventing path traversal through crafted ids.
func sanitizeSessionID(id string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return -1
	}, id)
	if safe == "" {
		safe = "invalid"
	}
	return safe
}

func (s *SessionService) sessionPath(id string) string {
	return filepath.Join(s.sessionsDir, sanitizeSessionID(id), "history.json")
}

func (s *SessionService) saveSessionLocked(sess *Session) {
	path := s.sessionPath(sess.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.log(fmt.Sprintf("Warning: failed to create session dir for %s: %v", sess.ID, err))
		return
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		s.log(fmt.Sprintf("Warning: failed to marshal session %s: %v", sess.ID, err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.log(fmt.Sprintf("Warning: failed to write session %s: %v", sess.ID, err))
	}
}

func (s *SessionService) loadSessions() {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return
	}

	var loaded []*Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(s.sessionPath(entry.Name()))
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			s.log(fmt.Sprintf("Warning: skipping unreadable session %s: %v", entry.Name(), err))
			continue
		}
		if sess.Queries == nil {
			sess.Queries = []Query{}
		}
		loaded = append(loaded, &sess)
	}

	// Oldest first so creation order survives restarts.
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].CreatedAt < loaded[j].CreatedAt
	})
	s.sessions = loaded
}

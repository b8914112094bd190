package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"assetedge/market"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	dir, err := os.MkdirTemp("", "sessions-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return NewSessionService(dir, nil)
}

func TestNewSessionServiceCreatesDefault(t *testing.T) {
	svc := newTestSessionService(t)

	sessions := svc.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 default session, got %d", len(sessions))
	}
	if got, want := sessions[0].Name, "Default Session"; got != want {
		t.Errorf("default session name = %q, want %q", got, want)
	}

	active, err := svc.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession() error: %v", err)
	}
	if active.ID != sessions[0].ID {
		t.Errorf("active session = %s, want %s", active.ID, sessions[0].ID)
	}
}

func TestCreateSessionUniqueNames(t *testing.T) {
	svc := newTestSessionService(t)

	first := svc.CreateSession("Analysis")
	second := svc.CreateSession("Analysis")
	third := svc.CreateSession("Analysis")

	if first.Name != "Analysis" {
		t.Errorf("first name = %q, want %q", first.Name, "Analysis")
	}
	if second.Name != "Analysis (1)" {
		t.Errorf("second name = %q, want %q", second.Name, "Analysis (1)")
	}
	if third.Name != "Analysis (2)" {
		t.Errorf("third name = %q, want %q", third.Name, "Analysis (2)")
	}

	active, _ := svc.ActiveSession()
	if active.ID != third.ID {
		t.Errorf("newly created session should be active")
	}
}

func TestSessionIsolation(t *testing.T) {
	svc := newTestSessionService(t)

	a := svc.CreateSession("A")
	b := svc.CreateSession("B")

	qa, err := svc.AppendQuery(a.ID, "question for A")
	if err != nil {
		t.Fatalf("AppendQuery(a): %v", err)
	}
	if _, err := svc.AppendQuery(b.ID, "question for B"); err != nil {
		t.Fatalf("AppendQuery(b): %v", err)
	}

	svc.ResolveQuery(qa, &market.QueryResult{Text: "answer for A"})

	gotA, _ := svc.GetSession(a.ID)
	gotB, _ := svc.GetSession(b.ID)

	if len(gotA.Queries) != 1 || len(gotB.Queries) != 1 {
		t.Fatalf("query counts = %d, %d, want 1, 1", len(gotA.Queries), len(gotB.Queries))
	}
	if gotA.Queries[0].Result == nil || gotA.Queries[0].Result.Text != "answer for A" {
		t.Errorf("session A query not resolved with its own answer")
	}
	if !gotB.Queries[0].Pending() {
		t.Errorf("session B query should still be pending")
	}
}

func TestOutOfOrderResolution(t *testing.T) {
	svc := newTestSessionService(t)
	sess := svc.CreateSession("ooo")

	q1, _ := svc.AppendQuery(sess.ID, "first question")
	q2, _ := svc.AppendQuery(sess.ID, "second question")

	// Second answer lands first.
	svc.ResolveQuery(q2, &market.QueryResult{Text: "second answer"})
	svc.ResolveQuery(q1, &market.QueryResult{Text: "first answer"})

	got, _ := svc.GetSession(sess.ID)
	if len(got.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(got.Queries))
	}
	if got.Queries[0].Result.Text != "first answer" {
		t.Errorf("query 1 result = %q, want %q", got.Queries[0].Result.Text, "first answer")
	}
	if got.Queries[1].Result.Text != "second answer" {
		t.Errorf("query 2 result = %q, want %q", got.Queries[1].Result.Text, "second answer")
	}
}

func TestResolveQueryOnlyOnce(t *testing.T) {
	svc := newTestSessionService(t)
	sess := svc.CreateSession("once")

	q, _ := svc.AppendQuery(sess.ID, "question")
	svc.ResolveQuery(q, &market.QueryResult{Text: "first"})
	svc.ResolveQuery(q, &market.QueryResult{Text: "late duplicate"})

	got, _ := svc.GetSession(sess.ID)
	if got.Queries[0].Result.Text != "first" {
		t.Errorf("result = %q, want first resolution kept", got.Queries[0].Result.Text)
	}
}

func TestResolveTabularAttachesRecords(t *testing.T) {
	svc := newTestSessionService(t)
	sess := svc.CreateSession("tabular")

	q, _ := svc.AppendQuery(sess.ID, "top performers")
	svc.ResolveQuery(q, &market.QueryResult{
		Text: "### Year to Date\nFund Name: Global Equity - Market Index ID: 42 - YTD Performance: -3.21%",
	})

	got, _ := svc.GetSession(sess.ID)
	if got.Queries[0].Kind != market.KindTabular {
		t.Fatalf("kind = %q, want tabular", got.Queries[0].Kind)
	}
	if len(got.Queries[0].Records) != 1 {
		t.Fatalf("records = %d, want 1", len(got.Queries[0].Records))
	}
	if rec := got.Queries[0].Records[0]; rec.IndexName != "Global Equity" || rec.YTD != "-3.21" {
		t.Errorf("attached record = %+v", rec)
	}
}

func TestResolvePlainAttachesNothing(t *testing.T) {
	svc := newTestSessionService(t)
	sess := svc.CreateSession("plain")

	q, _ := svc.AppendQuery(sess.ID, "how are you")
	svc.ResolveQuery(q, &market.QueryResult{Text: "All good."})

	got, _ := svc.GetSession(sess.ID)
	if got.Queries[0].Kind != market.KindPlain {
		t.Errorf("kind = %q, want plain", got.Queries[0].Kind)
	}
	if got.Queries[0].Records != nil {
		t.Errorf("plain result should not carry records")
	}
}

func TestResolveUnknownQueryIsNoop(t *testing.T) {
	svc := newTestSessionService(t)
	// Must not panic or invent entries.
	svc.ResolveQuery("no-such-id", &market.QueryResult{Text: "orphan"})

	for _, sess := range svc.Sessions() {
		if len(sess.Queries) != 0 {
			t.Errorf("session %s gained a query from an unknown id", sess.ID)
		}
	}
}

func TestDeleteActiveSessionFallsBack(t *testing.T) {
	svc := newTestSessionService(t)
	defaultSess := svc.Sessions()[0]
	created := svc.CreateSession("doomed")

	if err := svc.DeleteSession(created.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	active, err := svc.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession after delete: %v", err)
	}
	if active.ID != defaultSess.ID {
		t.Errorf("active = %s, want fallback to %s", active.ID, defaultSess.ID)
	}
}

func TestDeleteLastSessionLeavesNoActive(t *testing.T) {
	svc := newTestSessionService(t)
	only := svc.Sessions()[0]

	if err := svc.DeleteSession(only.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.ActiveSession(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ActiveSession error = %v, want ErrNoActiveSession", err)
	}
}

func TestSetActiveValidates(t *testing.T) {
	svc := newTestSessionService(t)

	if err := svc.SetActive("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SetActive(missing) = %v, want ErrSessionNotFound", err)
	}

	sess := svc.CreateSession("target")
	svc.CreateSession("other")
	if err := svc.SetActive(sess.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, _ := svc.ActiveSession()
	if active.ID != sess.ID {
		t.Errorf("active = %s, want %s", active.ID, sess.ID)
	}
}

func TestClearQueriesKeepsIdentity(t *testing.T) {
	svc := newTestSessionService(t)
	sess := svc.CreateSession("keep me")
	svc.AppendQuery(sess.ID, "q")

	if err := svc.ClearQueries(sess.ID); err != nil {
		t.Fatalf("ClearQueries: %v", err)
	}

	got, _ := svc.GetSession(sess.ID)
	if len(got.Queries) != 0 {
		t.Errorf("queries = %d, want 0", len(got.Queries))
	}
	if got.ID != sess.ID || got.Name != sess.Name || got.CreatedAt != sess.CreatedAt {
		t.Errorf("session identity changed on clear")
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	dir, err := os.MkdirTemp("", "sessions-persist-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	svc := NewSessionService(dir, nil)
	sess := svc.CreateSession("persisted")
	q, _ := svc.AppendQuery(sess.ID, "will this survive")
	svc.ResolveQuery(q, &market.QueryResult{Text: "### Month to Date\nyes"})

	reloaded := NewSessionService(dir, nil)
	got, err := reloaded.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession after reload: %v", err)
	}
	if got.Name != "persisted" {
		t.Errorf("name = %q, want %q", got.Name, "persisted")
	}
	if len(got.Queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(got.Queries))
	}
	if got.Queries[0].Result == nil || got.Queries[0].Result.Text != "### Month to Date\nyes" {
		t.Errorf("query result not persisted")
	}
	if got.Queries[0].Kind != market.KindTabular {
		t.Errorf("kind = %q, want %q", got.Queries[0].Kind, market.KindTabular)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc-123", "abc-123"},
		{"../../etc/passwd", "etcpasswd"},
		{"id with spaces", "idwithspaces"},
		{"", "invalid"},
		{"///", "invalid"},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSessionFilesOnDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "sessions-disk-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	svc := NewSessionService(dir, nil)
	sess := svc.CreateSession("on disk")

	path := filepath.Join(dir, sanitizeSessionID(sess.ID), "history.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected session file at %s: %v", path, err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"assetedge/config"
	"assetedge/logger"
	"assetedge/market"
)

func newTestApp(t *testing.T, engineURL string) *App {
	t.Helper()
	dir, err := os.MkdirTemp("", "app-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cs := NewConfigService(nil)
	cs.SetStorageDir(dir)
	if err := cs.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	cfg := config.Config{QueryServiceURL: engineURL, DashboardTimeoutSec: 5}
	cfg.Defaults()
	if err := cs.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	app, err := NewApp(cs, logger.NewLogger())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// waitForResult polls until the query resolves or the deadline passes.
func waitForResult(t *testing.T, app *App, sessionID, queryID string) Query {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := app.GetSession(sessionID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		for _, q := range sess.Queries {
			if q.ID == queryID && !q.Pending() {
				return q
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("query %s never resolved", queryID)
	return Query{}
}

func TestSubmitQueryResolvesAsync(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"qr": "### Year to Date\nFund Name: Global Equity - Market Index ID: 42 - YTD Performance: -3.21%",
		})
	}))
	defer engine.Close()

	app := newTestApp(t, engine.URL)
	active, err := app.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}

	queryID, err := app.SubmitQuery(context.Background(), "top performers ytd")
	if err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}

	// The call returns before the answer lands.
	sess, _ := app.GetSession(active.ID)
	if len(sess.Queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(sess.Queries))
	}

	q := waitForResult(t, app, active.ID, queryID)
	if q.Kind != market.KindTabular {
		t.Errorf("kind = %q, want tabular", q.Kind)
	}

	records, err := app.ExtractRecords(active.ID, queryID)
	if err != nil {
		t.Fatalf("ExtractRecords: %v", err)
	}
	if len(records) != 1 || records[0].IndexName != "Global Equity" {
		t.Errorf("records = %+v", records)
	}
	if records[0].YTD != "-3.21" {
		t.Errorf("YTD = %q, want -3.21", records[0].YTD)
	}
}

func TestSubmitQueryEngineFailure(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer engine.Close()

	app := newTestApp(t, engine.URL)
	active, _ := app.ActiveSession()

	queryID, err := app.SubmitQuery(context.Background(), "anything")
	if err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}

	q := waitForResult(t, app, active.ID, queryID)
	if q.Result.Text != "Error processing query" {
		t.Errorf("failure text = %q", q.Result.Text)
	}
	if q.Kind != market.KindPlain {
		t.Errorf("failure kind = %q, want plain", q.Kind)
	}
}

func TestSubmitQueryEmpty(t *testing.T) {
	app := newTestApp(t, "http://localhost:0")
	if _, err := app.SubmitQuery(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestQueryHistoryArchived(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"qr": "plain answer"})
	}))
	defer engine.Close()

	app := newTestApp(t, engine.URL)
	active, _ := app.ActiveSession()

	queryID, err := app.SubmitQuery(context.Background(), "archive me")
	if err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}
	waitForResult(t, app, active.ID, queryID)

	entries, err := app.QueryHistory(10)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "archive me" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestRefreshDashboardDetachedFromCaller(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		for _, cat := range Categories {
			if r.URL.Path == "/query-"+cat.Endpoint() {
				json.NewEncoder(w).Encode(map[string]string{
					string(cat): "Tech Index: 5.00%",
				})
				return
			}
		}
	}))
	defer engine.Close()

	app := newTestApp(t, engine.URL)

	// The caller's context dies immediately, like a returned HTTP handler.
	ctx, cancel := context.WithCancel(context.Background())
	app.RefreshDashboard(ctx)
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := app.DashboardSnapshot()
		loading := false
		for _, state := range snapshot {
			if state.Loading {
				loading = true
			}
		}
		if !loading {
			for cat, state := range snapshot {
				if state.Err != "" {
					t.Errorf("%s errored: %s", cat, state.Err)
				}
				if len(state.Records) != 1 {
					t.Errorf("%s records = %d, want 1", cat, len(state.Records))
				}
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("refresh never completed")
}

func TestSentenceCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"show me the markets", "Show me the markets?"},
		{"what happened today?", "What happened today?"},
		{"Markets are up.", "Markets are up."},
		{"  trimmed  ", "Trimmed?"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sentenceCase(tt.in); got != tt.want {
			t.Errorf("sentenceCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"assetedge/config"
	"assetedge/database"
	"assetedge/logger"
	"assetedge/market"
)

// App wires the services together and exposes the operations the HTTP
// layer serves. Construction order matters: config and storage first,
// then everything that persists under the storage directory.
type App struct {
	log *logger.Logger
	cfg config.Config

	configService *ConfigService
	sessions      *SessionService
	client        *QueryClient
	extractor     *market.Extractor
	dashboard     *DashboardService
	insight       *InsightService
	export        *ExportService
	history       *database.HistoryService
}

// NewApp builds the full service graph from persisted configuration.
// The insight service is optional: without an API key the app still
// answers queries and exports with the deterministic layout.
func NewApp(configService *ConfigService, lg *logger.Logger) (*App, error) {
	cfg, err := configService.GetConfig()
	if err != nil {
		return nil, WrapError("app", "NewApp", err)
	}

	storageDir, err := configService.GetStorageDir()
	if err != nil {
		return nil, WrapError("app", "NewApp", err)
	}

	// Extraction logging is chatty (one line per pattern pass), so it is
	// only on when detailed logging is requested.
	var detailLog func(string)
	if cfg.DetailedLog {
		detailLog = lg.Log
	}

	app := &App{
		log:           lg,
		cfg:           cfg,
		configService: configService,
		extractor:     market.NewExtractor(detailLog),
	}

	app.sessions = NewSessionService(filepath.Join(storageDir, "sessions"), lg.Log)
	app.client = NewQueryClient(cfg.QueryServiceURL, lg.Log)

	timeout := time.Duration(cfg.DashboardTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	app.dashboard = NewDashboardService(app.client, app.extractor, timeout, lg.Log)

	if cfg.APIKey != "" {
		insight, err := NewInsightService(cfg, lg.Log)
		if err != nil {
			lg.Logf("[APP] insight service unavailable: %v", err)
		} else {
			app.insight = insight
		}
	}
	var reformatter Reformatter
	if app.insight != nil {
		reformatter = app.insight
	}
	app.export = NewExportService(reformatter, lg.Log)

	history, err := database.NewHistoryService(filepath.Join(storageDir, "history.db"), lg.Log)
	if err != nil {
		lg.Logf("[APP] history archive unavailable: %v", err)
	} else {
		app.history = history
	}

	return app, nil
}

// Close flushes and releases everything App owns.
func (a *App) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

// --- sessions ---

func (a *App) Sessions() []Session                    { return a.sessions.Sessions() }
func (a *App) CreateSession(name string) Session      { return a.sessions.CreateSession(name) }
func (a *App) DeleteSession(id string) error          { return a.sessions.DeleteSession(id) }
func (a *App) SetActiveSession(id string) error       { return a.sessions.SetActive(id) }
func (a *App) ActiveSession() (Session, error)        { return a.sessions.ActiveSession() }
func (a *App) GetSession(id string) (Session, error)  { return a.sessions.GetSession(id) }
func (a *App) ClearSessionQueries(id string) error    { return a.sessions.ClearQueries(id) }

// --- queries ---

// SubmitQuery appends a pending query to the active session and resolves
// it in the background. The returned id lets callers poll the session log
// for the answer.
func (a *App) SubmitQuery(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", WrapError("app", "SubmitQuery", fmt.Errorf("empty query"))
	}

	active, err := a.sessions.ActiveSession()
	if err != nil {
		return "", WrapError("app", "SubmitQuery", err)
	}

	queryID, err := a.sessions.AppendQuery(active.ID, text)
	if err != nil {
		return "", WrapError("app", "SubmitQuery", err)
	}

	if a.history != nil {
		if err := a.history.Record(queryID, active.ID, text, time.Now()); err != nil {
			a.log.Logf("[APP] history record failed: %v", err)
		}
	}

	go a.answerQuery(queryID, text)
	return queryID, nil
}

// answerQuery runs the engine call off the request goroutine. The query id
// is the only binding between question and answer, so answers landing out
// of order resolve the right entries.
func (a *App) answerQuery(queryID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	result, err := a.client.Execute(ctx, text)
	if err != nil {
		a.log.Logf("[APP] query %s failed: %v", queryID, err)
		result = &market.QueryResult{Text: "Error processing query"}
	}
	a.sessions.ResolveQuery(queryID, result)

	if a.history != nil {
		if err := a.history.MarkResolved(queryID, string(market.Classify(result))); err != nil {
			a.log.Logf("[APP] history update failed: %v", err)
		}
	}
}

// SubmitTranscript accepts a voice transcript, normalizes its casing, and
// submits it like a typed question.
func (a *App) SubmitTranscript(ctx context.Context, transcript string) (string, error) {
	return a.SubmitQuery(ctx, sentenceCase(transcript))
}

// sentenceCase upper-cases the first letter and ensures terminal
// punctuation, since speech recognizers emit neither.
func sentenceCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	s = string(runes)
	switch s[len(s)-1] {
	case '.', '?', '!':
		return s
	}
	return s + "?"
}

// --- dashboard ---

// RefreshDashboard starts a dashboard refresh. The fetches outlive the
// triggering request: an HTTP handler returns immediately and its context
// is canceled right after, so each category runs under a detached context
// bounded only by the per-category timeout.
func (a *App) RefreshDashboard(ctx context.Context) {
	a.dashboard.Refresh(context.WithoutCancel(ctx))
}

func (a *App) DashboardSnapshot() map[Category]CategoryState { return a.dashboard.Snapshot() }

// --- insights ---

// GenerateInsights produces commentary for one dashboard category.
func (a *App) GenerateInsights(ctx context.Context, cat Category) (string, error) {
	if a.insight == nil {
		return "", WrapError("app", "GenerateInsights", fmt.Errorf("language model is not configured"))
	}
	records, err := a.dashboard.CategoryRecords(cat)
	if err != nil {
		return "", WrapError("app", "GenerateInsights", err)
	}
	return a.insight.GenerateInsights(ctx, records, cat.Title())
}

// --- export ---

// ExportCategory writes one dashboard category to a spreadsheet.
func (a *App) ExportCategory(ctx context.Context, cat Category) (string, []byte, error) {
	records, err := a.dashboard.CategoryRecords(cat)
	if err != nil {
		return "", nil, WrapError("app", "ExportCategory", err)
	}
	return a.export.ExportToExcel(ctx, records, cat.Title())
}

// ExportRecords writes caller-supplied records, e.g. ones extracted from a
// single chat answer.
func (a *App) ExportRecords(ctx context.Context, records []market.PerformanceRecord, title string) (string, []byte, error) {
	return a.export.ExportToExcel(ctx, records, title)
}

// ExtractRecords returns the records for one resolved query, preferring the
// ones attached at resolution and re-running extraction otherwise.
func (a *App) ExtractRecords(sessionID, queryID string) ([]market.PerformanceRecord, error) {
	sess, err := a.sessions.GetSession(sessionID)
	if err != nil {
		return nil, WrapError("app", "ExtractRecords", err)
	}
	for i := range sess.Queries {
		q := &sess.Queries[i]
		if q.ID != queryID {
			continue
		}
		if q.Pending() {
			return nil, WrapError("app", "ExtractRecords", fmt.Errorf("query %s has no result yet", queryID))
		}
		if q.Records != nil {
			return q.Records, nil
		}
		return a.extractor.Extract(q.Result.Text), nil
	}
	return nil, WrapError("app", "ExtractRecords", fmt.Errorf("query %s not found", queryID))
}

// --- history ---

// QueryHistory returns recently archived questions across all sessions.
func (a *App) QueryHistory(limit int) ([]database.HistoryEntry, error) {
	if a.history == nil {
		return nil, WrapError("app", "QueryHistory", fmt.Errorf("history archive is not available"))
	}
	return a.history.Recent(limit)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"assetedge/logger"
	"assetedge/market"
)

// Server exposes the app over a JSON HTTP API for the dashboard frontend.
type Server struct {
	app *App
	log *logger.Logger
}

func NewServer(app *App, lg *logger.Logger) *Server {
	return &Server{app: app, log: lg}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/activate", s.handleActivateSession)
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.handleClearSession)
	mux.HandleFunc("GET /api/sessions/{id}/queries/{queryID}/records", s.handleQueryRecords)

	mux.HandleFunc("POST /api/query", s.handleSubmitQuery)
	mux.HandleFunc("POST /api/transcript", s.handleSubmitTranscript)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/dashboard/refresh", s.handleDashboardRefresh)

	mux.HandleFunc("GET /api/insights/{category}", s.handleInsights)
	mux.HandleFunc("GET /api/export/{category}", s.handleExportCategory)
	mux.HandleFunc("POST /api/export", s.handleExportRecords)

	mux.HandleFunc("GET /api/history", s.handleHistory)

	return mux
}

// --- sessions ---

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	active, _ := s.app.ActiveSession()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.app.Sessions(),
		"active":   active.ID,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, s.app.CreateSession(req.Name))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.GetSession(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteSession(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	if err := s.app.SetActiveSession(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearSessionQueries(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.app.ExtractRecords(r.PathValue("id"), r.PathValue("queryID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// --- queries ---

func (s *Server) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.app.SubmitQuery)
}

func (s *Server) handleSubmitTranscript(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.app.SubmitTranscript)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, text string) (string, error)) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}
	queryID, err := fn(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"query_id": queryID})
}

// --- dashboard ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.DashboardSnapshot())
}

func (s *Server) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	s.app.RefreshDashboard(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// --- insights and export ---

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown category: %s", r.PathValue("category")))
		return
	}
	text, err := s.app.GenerateInsights(r.Context(), cat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insights": text})
}

func (s *Server) handleExportCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown category: %s", r.PathValue("category")))
		return
	}
	filename, data, err := s.app.ExportCategory(r.Context(), cat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSpreadsheet(w, filename, data)
}

func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string                     `json:"title"`
		Records []market.PerformanceRecord `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}
	filename, data, err := s.app.ExportRecords(r.Context(), req.Records, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSpreadsheet(w, filename, data)
}

// --- history ---

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.app.QueryHistory(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// --- helpers ---

func parseCategory(raw string) (Category, bool) {
	for _, cat := range Categories {
		if string(cat) == raw || cat.Endpoint() == raw {
			return cat, true
		}
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps service sentinels to HTTP statuses. Anything the
// query engine caused surfaces as a bad gateway so the frontend can tell
// its own mistakes from upstream ones.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoActiveSession):
		writeError(w, http.StatusNotFound, err)
	case isUpstreamError(err):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func isUpstreamError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Service == "query"
	}
	return false
}

func writeSpreadsheet(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType domain.ErrorType `json:"error_type,omitempty"`
}

type historyEntry struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

type indexData struct {
	Model   string
	Backend string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{
		Model:   s.model,
		Backend: s.session.Client().Backend().Name(),
	}
	if err := s.index.Execute(w, data); err != nil {
		AddError(r.Context(), err)
		s.logger.Error("failed to render index", slog.String("error", err.Error()))
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		AddError(r.Context(), err)
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{Success: false, Error: "Empty message"})
		return
	}

	result := s.session.Chat(r.Context(), message)
	if !result.OK() {
		AddError(r.Context(), result.Err)
		AddLogField(r.Context(), "error_type", string(result.Err.Type))
		writeJSON(w, result.Err.HTTPStatusCode(), chatResponse{
			Success:   false,
			Error:     result.Err.Message,
			ErrorType: result.Err.Type,
		})
		return
	}

	AddLogField(r.Context(), "model", result.Model)
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Message: result.Text})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"models": s.session.Client().ListModels(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	client := s.session.Client()
	running := client.CheckAvailability(r.Context())

	status := "ok"
	if !running {
		status = "error"
	}
	body := map[string]any{"status": status}
	body[client.Backend().Name()+"_running"] = running
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	exchanges := s.session.Transcript().List(r.Context())

	history := make([]historyEntry, 0, len(exchanges))
	for _, ex := range exchanges {
		history = append(history, historyEntry{User: ex.User, Bot: ex.Bot})
	}
	writeJSON(w, http.StatusOK, map[string][]historyEntry{"history": history})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Transcript().Clear(r.Context()); err != nil {
		AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, chatResponse{Success: false, Error: "failed to clear history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

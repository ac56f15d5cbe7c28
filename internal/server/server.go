// Package server exposes the HTTP surface: the Telegram webhook endpoint
// and the manual pipeline trigger.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodeseek_bot/internal/scheduler"
)

// UpdateHandler interprets one inbound webhook update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// PipelineRunner triggers one feed processing pass.
type PipelineRunner interface {
	ProcessFeed(ctx context.Context) scheduler.Report
}

// WebhookSetter registers the webhook URL with the bot provider.
type WebhookSetter interface {
	SetWebhook(ctx context.Context, url string) error
}

// Server wires the HTTP endpoints.
type Server struct {
	bot      UpdateHandler
	pipeline PipelineRunner
	setter   WebhookSetter
	log      *slog.Logger
}

// New creates a Server.
func New(bot UpdateHandler, pipeline PipelineRunner, setter WebhookSetter, log *slog.Logger) *Server {
	return &Server{bot: bot, pipeline: pipeline, setter: setter, log: log}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/telegram/webhook", s.handleWebhook)
	mux.HandleFunc("POST /api/process-rss", s.handleProcess)
	mux.HandleFunc("POST /api/telegram/set-webhook", s.handleSetWebhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn("bad webhook payload", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad payload"})
		return
	}

	s.bot.HandleUpdate(r.Context(), update)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	report := s.pipeline.ProcessFeed(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WebhookURL string `json:"webhookUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.WebhookURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "webhookUrl is required"})
		return
	}

	if err := s.setter.SetWebhook(r.Context(), body.WebhookURL); err != nil {
		s.log.Error("set webhook", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/telexorg/summarizebot/internal/bot"
	"github.com/telexorg/summarizebot/internal/config"
	"github.com/telexorg/summarizebot/internal/observability"
	"github.com/telexorg/summarizebot/internal/protocol"
)

const (
	agentName    = "SummarizeBot"
	agentVersion = "1.0.0"
	agentPath    = "/a2a/agent/summarizeBot"

	maxBodyBytes = 1 << 20
)

// MessageHandler runs one conversational turn.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string) (bot.Reply, error)
}

type Server struct {
	cfg     config.Config
	bot     MessageHandler
	metrics *observability.Metrics
	logger  *slog.Logger
}

func New(cfg config.Config, handler MessageHandler, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		bot:     handler,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get(agentPath, s.handleAgentCard)
	r.Post(agentPath, s.handleA2A)
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"agent":   agentName,
		"version": agentVersion,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        agentName,
		"description": "AI-powered summarization bot",
		"endpoints": map[string]string{
			"health":  "/health",
			"a2a":     agentPath,
			"webhook": "/webhook",
		},
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"agent":       agentName,
		"status":      "ready",
		"endpoint":    agentPath,
		"method":      http.MethodPost,
		"description": "Summarization agent for the Telex orchestration platform",
		"usage": map[string]any{
			"trigger": s.cfg.TriggerPhrase + " summarize",
			"modes":   []string{"brief", "detailed"},
		},
	})
}

func (s *Server) handleA2A(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.count("a2a", "read_error")
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}
	defer r.Body.Close()

	in, ok := protocol.ParseA2A(body)
	if !ok {
		s.count("a2a", "no_message")
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "No message provided"})
		return
	}

	s.logger.Debug("a2a message received", "user_id", in.UserID, "channel_id", in.ChannelID)

	reply, err := s.bot.HandleMessage(r.Context(), in.UserID, in.Text)
	if err != nil {
		s.count("a2a", "error")
		s.logger.Error("a2a turn failed", "user_id", in.UserID, "channel_id", in.ChannelID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Server error",
			"message": err.Error(),
		})
		return
	}

	s.count("a2a", outcomeLabel(reply))
	respondJSON(w, http.StatusOK, map[string]any{"response": reply.Text})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req protocol.WebhookRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.count("webhook", "bad_request")
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid payload"})
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Text) == "" {
		s.count("webhook", "no_message")
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "No message provided"})
		return
	}

	s.logger.Debug("webhook message received", "user_id", req.UserID, "channel_id", req.ChannelID)

	reply, err := s.bot.HandleMessage(r.Context(), req.UserID, req.Text)
	if err != nil {
		s.count("webhook", "error")
		s.logger.Error("webhook turn failed", "user_id", req.UserID, "channel_id", req.ChannelID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Server error"})
		return
	}

	s.count("webhook", outcomeLabel(reply))
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "response": reply.Text})
}

func (s *Server) count(route, outcome string) {
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(route, outcome).Inc()
	}
}

func outcomeLabel(reply bot.Reply) string {
	if reply.Triggered {
		return "triggered"
	}
	return "not_triggered"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/pkg/logger"
	"github.com/strogmv/unread/internal/service"
)

// Server exposes the reconciled unread view of one engine session to the
// presentation layer. It is a read surface plus acknowledgement actions;
// it never mutates engine-internal collections directly.
type Server struct {
	engine *service.Engine
	router chi.Router
}

func NewServer(engine *service.Engine) *Server {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	r.Use(MetricsMiddleware)

	r.Route("/api/v1/unread", func(r chi.Router) {
		r.Get("/", s.handleView)
		r.Get("/general", s.handleGeneral)
		r.Get("/chats", s.handleChats)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/general/{id}/read", s.handleMarkGeneralRead)
		r.Post("/general/read-all", s.handleMarkAllGeneralRead)
		r.Post("/chats/{chatID}/read", s.handleMarkChatRead)
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler wraps the router with otel instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "unread-http")
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.View())
}

func (s *Server) handleGeneral(w http.ResponseWriter, r *http.Request) {
	view := s.engine.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"generalList":        view.GeneralList,
		"generalUnreadCount": view.GeneralUnreadCount,
	})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	view := s.engine.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"chatSummaries":   view.ChatSummaries,
		"chatUnreadCount": view.ChatUnreadCount,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.engine.Refresh(r.Context(), r.URL.Query().Get("force") == "true")
	writeJSON(w, http.StatusOK, s.engine.View())
}

func (s *Server) handleMarkGeneralRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.engine.MarkGeneralRead(r.Context(), id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkAllGeneralRead(w http.ResponseWriter, r *http.Request) {
	s.engine.MarkAllGeneralRead(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkChatRead(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	// Accept an optional counterparty to scope a single conversation;
	// without it every conversation of the chat id is acknowledged.
	if cp := r.URL.Query().Get("counterparty"); cp != "" {
		key := domain.ConversationKey{ChatID: chatID, Counterparty: cp}
		if !s.engine.MarkConversationRead(r.Context(), key) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if !s.engine.MarkChatRead(r.Context(), chatID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"session":  s.engine.SessionState().String(),
		"degraded": s.engine.Degraded(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Component("http").Warn("encode response failed", "error", err)
	}
}

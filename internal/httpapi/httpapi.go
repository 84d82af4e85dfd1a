// Package httpapi wires the turn pipeline and conversation log onto chi
// routes. Grounded on the teacher's internal/api handler style (thin
// handlers, JSON helpers, chi.Router composition), stripped of the
// multi-tenant CRUD surface this proxy has no use for.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/saisudhir14/voiceproxy/internal/convlog"
	appmiddleware "github.com/saisudhir14/voiceproxy/internal/middleware"
	"github.com/saisudhir14/voiceproxy/internal/turn"
)

// Handlers holds the collaborators the HTTP surface dispatches to.
type Handlers struct {
	Pipeline  *turn.Pipeline
	ConvLog   *convlog.Log
	JWTSecret string // empty disables auth on DELETE /conversations

	startedAt time.Time
}

// NewHandlers builds Handlers, capturing the current time as the
// process's start time for the /health uptime field.
func NewHandlers(pipeline *turn.Pipeline, log *convlog.Log, jwtSecret string) *Handlers {
	return &Handlers{Pipeline: pipeline, ConvLog: log, JWTSecret: jwtSecret, startedAt: time.Now()}
}

// NewRouter assembles the full chi router: standard middleware stack,
// CORS, and the proxy's routes.
func NewRouter(h *Handlers, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Post("/v1/chat/completions", h.ChatCompletions)
	// The voice platform's gateway has been observed double-prefixing
	// this path in some deployments; route it the same place.
	r.Post("/v1/chat/completions/chat/completions", h.ChatCompletions)

	r.Get("/conversations", h.ListConversations)

	r.Group(func(r chi.Router) {
		if h.JWTSecret != "" {
			r.Use(appmiddleware.AdminAuth(h.JWTSecret))
		}
		r.Delete("/conversations", h.ClearConversations)
	})

	return r
}

// Health reports process liveness and uptime.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"uptimeSeconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// ChatCompletions is the turn endpoint: it decodes the request body as a
// generic JSON object (so unrecognized fields pass through untouched)
// and hands it to the turn pipeline, which owns the entire SSE response.
func (h *Handlers) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.Pipeline.HandleTurn(r.Context(), w, body)
}

// ListConversations returns every tracked session's bounded history.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ConvLog.Snapshot())
}

// ClearConversations empties the in-memory conversation log.
func (h *Handlers) ClearConversations(w http.ResponseWriter, r *http.Request) {
	h.ConvLog.Clear()
	respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message})
}

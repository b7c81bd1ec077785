package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/delivery/http/response"
	"github.com/user/nextdoor-crawler/internal/usecase"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	posts  usecase.PostManager
	checks map[string]Pinger
	logger *zap.Logger
}

// NewHandler serves the read-only ops API. The post store is always
// health-checked as "store"; checks adds further named dependencies.
func NewHandler(posts usecase.PostManager, checks map[string]Pinger, logger *zap.Logger) *Handler {
	all := map[string]Pinger{"store": posts}
	for name, p := range checks {
		all[name] = p
	}
	return &Handler{posts: posts, checks: all, logger: logger}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, resp)
}

func (h *Handler) HandleGetPostStatus(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		h.writeJSONError(w, "link query parameter is required", http.StatusBadRequest)
		return
	}
	if _, err := url.ParseRequestURI(link); err != nil {
		h.writeJSONError(w, "Invalid link format in query parameter", http.StatusBadRequest)
		return
	}

	status, err := h.posts.GetStatus(r.Context(), link)
	if err != nil {
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if status.CurrentStatus == usecase.StatusNotFound {
		h.writeJSONError(w, "Post not found for the given link", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.PostStatusResponse{
		Link:           status.Link,
		CurrentStatus:  status.CurrentStatus,
		ServiceRequest: string(status.ServiceRequest),
		Date:           status.Date,
	})
}

func (h *Handler) HandleListUnprocessed(w http.ResponseWriter, r *http.Request) {
	links := h.posts.ListUnprocessed(r.Context())
	h.writeJSON(w, http.StatusOK, response.UnprocessedResponse{Count: len(links), Links: links})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

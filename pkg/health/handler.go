package health

import (
	"context"
	"net/http"
	"sort"
	"time"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const readyTimeout = 2 * time.Second

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	checks map[string]Check
	log    *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks: make(map[string]Check),
		log:    log,
	}
}

func (h *HealthHandler) AddCheck(name string, check Check) *HealthHandler {
	h.checks[name] = check
	return h
}

func MongoCheck(client *mongo.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

func RedisCheck(client *redis.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, response := http.StatusOK, HealthResponse{Status: "ready", Checks: make(map[string]string)}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Error("Dependency health check failed", "dependency", name, "error", err, "path", r.URL.Path)
			response.Checks[name] = "error"
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, response); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

package handler

import (
	"encoding/json"
	"net/http"
	"tripmarket/internal/discovery"
	"tripmarket/internal/offerings/service"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/middleware"
	"tripmarket/pkg/model"
	"tripmarket/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type OfferingHandler struct {
	service service.OfferingService
	log     *logger.Logger
}

func NewOfferingHandler(service service.OfferingService, log *logger.Logger) *OfferingHandler {
	return &OfferingHandler{
		service: service,
		log:     log,
	}
}

// BasePath is the route prefix for the handler's offering kind.
func BasePath(kind model.OfferingKind) string {
	if kind == model.KindItinerary {
		return "/api/v1/itineraries"
	}
	return "/api/v1/activities"
}

func (h *OfferingHandler) RegisterRoutes(router *httprouter.Router) {
	base := BasePath(h.service.Kind())

	router.GET(base, h.Discover)
	router.GET(base+"/missing", h.Missing)
	router.GET(base+"/id/:id", h.GetByID)
	router.POST(base+"/id/:id/comments", h.AddComment)
}

func (h *OfferingHandler) Discover(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Discover", err)
		return
	}

	q := h.parseQuery(r)

	summaries, total, err := h.service.Discover(r.Context(), middleware.RiderIDFromContext(r.Context()), q, limit, offset)
	if err != nil {
		h.writeError(w, "Discover", err)
		return
	}

	if err := httputil.WritePaginated(w, summaries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Discover", "operation", "WritePaginated", "error", err)
	}
}

func (h *OfferingHandler) Missing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Missing", err)
		return
	}

	q := h.parseQuery(r)

	summaries, total, err := h.service.Missing(r.Context(), middleware.RiderIDFromContext(r.Context()), q, limit, offset)
	if err != nil {
		h.writeError(w, "Missing", err)
		return
	}

	if err := httputil.WritePaginated(w, summaries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Missing", "operation", "WritePaginated", "error", err)
	}
}

func (h *OfferingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	summary, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, summary); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OfferingHandler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var comment model.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		h.writeError(w, "AddComment", apperrors.InvalidInput("Invalid request body"))
		return
	}

	offering, err := h.service.AddComment(r.Context(), id, middleware.RiderIDFromContext(r.Context()), &comment)
	if err != nil {
		h.writeError(w, "AddComment", err)
		return
	}

	if err := httputil.WriteCreated(w, offering); err != nil {
		h.log.Error("failed to write created response", "handler", "AddComment", "operation", "WriteCreated", "error", err)
	}
}

func (h *OfferingHandler) parseQuery(r *http.Request) discovery.Query {
	q := discovery.ParseQuery(r.URL.Query())
	if q.Criteria.Categories = sanitizer.NormalizeSlugs(q.Criteria.Categories); len(q.Criteria.Categories) == 0 {
		q.Criteria.Categories = nil
	}
	if q.Criteria.Languages = sanitizer.NormalizeLanguages(q.Criteria.Languages); len(q.Criteria.Languages) == 0 {
		q.Criteria.Languages = nil
	}
	return q
}

func (h *OfferingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

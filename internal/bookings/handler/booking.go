package handler

import (
	"encoding/json"
	"net/http"
	"tripmarket/internal/bookings/service"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/middleware"
	"tripmarket/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func BasePath(kind model.OfferingKind) string {
	if kind == model.KindItinerary {
		return "/api/v1/itinerary-bookings"
	}
	return "/api/v1/activity-bookings"
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	base := BasePath(h.service.Kind())

	router.POST(base, h.Create)
	router.GET(base, h.List)
	router.GET(base+"/id/:id", h.GetByID)
	router.DELETE(base+"/id/:id", h.Cancel)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	receipt, err := h.service.Create(r.Context(), middleware.RiderIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, receipt); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.service.ListByRider(r.Context(), middleware.RiderIDFromContext(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), middleware.RiderIDFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	receipt, err := h.service.Cancel(r.Context(), middleware.RiderIDFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, receipt); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

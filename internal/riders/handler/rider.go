package handler

import (
	"encoding/json"
	"net/http"
	"tripmarket/internal/riders/service"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/middleware"
	"tripmarket/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const basePath = "/api/v1/riders/me"

type RiderHandler struct {
	service service.RiderService
	log     *logger.Logger
}

func NewRiderHandler(service service.RiderService, log *logger.Logger) *RiderHandler {
	return &RiderHandler{
		service: service,
		log:     log,
	}
}

func (h *RiderHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(basePath+"/loyalty", h.Loyalty)
	router.POST(basePath+"/redeem", h.Redeem)
}

func (h *RiderHandler) Loyalty(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summary, err := h.service.Loyalty(r.Context(), middleware.RiderIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, "Loyalty", err)
		return
	}

	if err := httputil.WriteSuccess(w, summary); err != nil {
		h.log.Error("failed to write success response", "handler", "Loyalty", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RiderHandler) Redeem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Redeem", apperrors.InvalidInput("Invalid request body"))
		return
	}

	receipt, err := h.service.Redeem(r.Context(), middleware.RiderIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Redeem", err)
		return
	}

	if err := httputil.WriteSuccess(w, receipt); err != nil {
		h.log.Error("failed to write success response", "handler", "Redeem", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RiderHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

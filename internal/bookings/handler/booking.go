package handler

import (
	"net/http"

	"buscharter/internal/bookings/service"
	httputil "buscharter/pkg/http"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"

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

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in model.BookingCreate
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	detail, err := h.service.Create(r.Context(), &in)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, detail); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	detail, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, detail); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		Status:     model.BookingStatus(query.Get("status")),
		CustomerID: query.Get("customer_id"),
		Limit:      limit,
		Offset:     offset,
	}

	bookings, total, err := h.service.GetAll(r.Context(), filter)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) AddTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in model.TripInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "AddTrip", err)
		return
	}

	trip, err := h.service.AddTrip(r.Context(), ps.ByName("id"), &in)
	if err != nil {
		h.writeError(w, "AddTrip", err)
		return
	}

	if err := httputil.WriteCreated(w, trip); err != nil {
		h.log.Error("failed to write created response", "handler", "AddTrip", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) UpdateTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.TripUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateTrip", err)
		return
	}

	trip, err := h.service.UpdateTrip(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "UpdateTrip", err)
		return
	}

	if err := httputil.WriteSuccess(w, trip); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateTrip", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.TransitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	detail, err := h.service.Transition(r.Context(), ps.ByName("id"), req.Target)
	if err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	if err := httputil.WriteSuccess(w, detail); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Transitions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.Transitions(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Transitions", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Transitions", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/trips", h.AddTrip)
	router.POST("/api/v1/bookings/id/:id/transitions", h.Transition)
	router.GET("/api/v1/bookings/id/:id/transitions", h.Transitions)
	router.PATCH("/api/v1/trips/id/:id", h.UpdateTrip)
}

package handler

import (
	"net/http"

	"buscharter/internal/finance/service"
	httputil "buscharter/pkg/http"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type FinanceHandler struct {
	service service.FinanceService
	log     *logger.Logger
}

func NewFinanceHandler(service service.FinanceService, log *logger.Logger) *FinanceHandler {
	return &FinanceHandler{
		service: service,
		log:     log,
	}
}

func (h *FinanceHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *FinanceHandler) write(w http.ResponseWriter, handler string, status int, data any) {
	if err := httputil.WriteJSON(w, status, httputil.SuccessResponse{Data: data}); err != nil {
		h.log.Error("failed to write response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *FinanceHandler) AddCharge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in model.ChargeInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "AddCharge", err)
		return
	}

	charge, err := h.service.AddCharge(r.Context(), ps.ByName("id"), &in)
	if err != nil {
		h.writeError(w, "AddCharge", err)
		return
	}
	h.write(w, "AddCharge", http.StatusCreated, charge)
}

func (h *FinanceHandler) ListCharges(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	charges, err := h.service.ListCharges(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListCharges", err)
		return
	}
	h.write(w, "ListCharges", http.StatusOK, charges)
}

func (h *FinanceHandler) UpdateCharge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in model.ChargeInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "UpdateCharge", err)
		return
	}

	charge, err := h.service.UpdateCharge(r.Context(), ps.ByName("id"), &in)
	if err != nil {
		h.writeError(w, "UpdateCharge", err)
		return
	}
	h.write(w, "UpdateCharge", http.StatusOK, charge)
}

func (h *FinanceHandler) DeleteCharge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteCharge(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteCharge", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *FinanceHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in model.PaymentInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), ps.ByName("id"), &in)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}
	h.write(w, "RecordPayment", http.StatusCreated, result)
}

func (h *FinanceHandler) ListPayments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payments, err := h.service.ListPayments(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListPayments", err)
		return
	}
	h.write(w, "ListPayments", http.StatusOK, payments)
}

func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	summary, err := h.service.Summary(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Summary", err)
		return
	}
	h.write(w, "Summary", http.StatusOK, summary)
}

func (h *FinanceHandler) Reconcile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Reconcile(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Reconcile", err)
		return
	}
	h.write(w, "Reconcile", http.StatusOK, booking)
}

func (h *FinanceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/id/:id/charges", h.AddCharge)
	router.GET("/api/v1/bookings/id/:id/charges", h.ListCharges)
	router.PATCH("/api/v1/charges/id/:id", h.UpdateCharge)
	router.DELETE("/api/v1/charges/id/:id", h.DeleteCharge)
	router.POST("/api/v1/bookings/id/:id/payments", h.RecordPayment)
	router.GET("/api/v1/bookings/id/:id/payments", h.ListPayments)
	router.GET("/api/v1/bookings/id/:id/summary", h.Summary)
	router.POST("/api/v1/bookings/id/:id/reconcile", h.Reconcile)
}

package handler

import (
	"net/http"

	"buscharter/internal/fleet/service"
	httputil "buscharter/pkg/http"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type FleetHandler struct {
	fleet       service.FleetService
	assignments service.AssignmentService
	log         *logger.Logger
}

func NewFleetHandler(fleet service.FleetService, assignments service.AssignmentService, log *logger.Logger) *FleetHandler {
	return &FleetHandler{
		fleet:       fleet,
		assignments: assignments,
		log:         log,
	}
}

func (h *FleetHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *FleetHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *FleetHandler) writeCreated(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteCreated(w, data); err != nil {
		h.log.Error("failed to write created response", "handler", handler, "operation", "WriteCreated", "error", err)
	}
}

func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var vehicle model.Vehicle
	if err := httputil.DecodeJSON(r, &vehicle); err != nil {
		h.writeError(w, "CreateVehicle", err)
		return
	}

	if err := h.fleet.CreateVehicle(r.Context(), &vehicle); err != nil {
		h.writeError(w, "CreateVehicle", err)
		return
	}
	h.writeCreated(w, "CreateVehicle", vehicle)
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vehicle, err := h.fleet.GetVehicle(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetVehicle", err)
		return
	}
	h.writeSuccess(w, "GetVehicle", vehicle)
}

func (h *FleetHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.VehicleUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateVehicle", err)
		return
	}

	vehicle, err := h.fleet.UpdateVehicle(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "UpdateVehicle", err)
		return
	}
	h.writeSuccess(w, "UpdateVehicle", vehicle)
}

func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	activeOnly, err := httputil.QueryBool(r, "active", false)
	if err != nil {
		h.writeError(w, "ListVehicles", err)
		return
	}

	vehicles, err := h.fleet.ListVehicles(r.Context(), model.VehicleFilter{
		Category:   model.VehicleCategory(r.URL.Query().Get("category")),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		h.writeError(w, "ListVehicles", err)
		return
	}
	h.writeSuccess(w, "ListVehicles", vehicles)
}

func (h *FleetHandler) ActivateVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.fleet.ActivateVehicle(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "ActivateVehicle", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *FleetHandler) DeactivateVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.fleet.DeactivateVehicle(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeactivateVehicle", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var driver model.Driver
	if err := httputil.DecodeJSON(r, &driver); err != nil {
		h.writeError(w, "CreateDriver", err)
		return
	}

	if err := h.fleet.CreateDriver(r.Context(), &driver); err != nil {
		h.writeError(w, "CreateDriver", err)
		return
	}
	h.writeCreated(w, "CreateDriver", driver)
}

func (h *FleetHandler) GetDriver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	driver, err := h.fleet.GetDriver(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetDriver", err)
		return
	}
	h.writeSuccess(w, "GetDriver", driver)
}

func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	activeOnly, err := httputil.QueryBool(r, "active", false)
	if err != nil {
		h.writeError(w, "ListDrivers", err)
		return
	}

	drivers, err := h.fleet.ListDrivers(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, "ListDrivers", err)
		return
	}
	h.writeSuccess(w, "ListDrivers", drivers)
}

func (h *FleetHandler) DeactivateDriver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.fleet.DeactivateDriver(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeactivateDriver", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *FleetHandler) AvailableVehicles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, ok := h.window(w, r, "AvailableVehicles", "start", "end")
	if !ok {
		return
	}

	category := model.VehicleCategory(r.URL.Query().Get("category"))
	vehicles, err := h.fleet.AvailableVehicles(r.Context(), start, end, category)
	if err != nil {
		h.writeError(w, "AvailableVehicles", err)
		return
	}
	h.writeSuccess(w, "AvailableVehicles", vehicles)
}

func (h *FleetHandler) AvailableDrivers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, ok := h.window(w, r, "AvailableDrivers", "start", "end")
	if !ok {
		return
	}

	drivers, err := h.fleet.AvailableDrivers(r.Context(), start, end)
	if err != nil {
		h.writeError(w, "AvailableDrivers", err)
		return
	}
	h.writeSuccess(w, "AvailableDrivers", drivers)
}

func (h *FleetHandler) AvailabilitySummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, ok := h.window(w, r, "AvailabilitySummary", "start", "end")
	if !ok {
		return
	}

	counts, err := h.fleet.AvailabilitySummary(r.Context(), start, end)
	if err != nil {
		h.writeError(w, "AvailabilitySummary", err)
		return
	}
	h.writeSuccess(w, "AvailabilitySummary", counts)
}

func (h *FleetHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/vehicles", h.CreateVehicle)
	router.GET("/api/v1/vehicles", h.ListVehicles)
	router.GET("/api/v1/vehicles/id/:id", h.GetVehicle)
	router.PATCH("/api/v1/vehicles/id/:id", h.UpdateVehicle)
	router.POST("/api/v1/vehicles/id/:id/activate", h.ActivateVehicle)
	router.POST("/api/v1/vehicles/id/:id/deactivate", h.DeactivateVehicle)

	router.POST("/api/v1/drivers", h.CreateDriver)
	router.GET("/api/v1/drivers", h.ListDrivers)
	router.GET("/api/v1/drivers/id/:id", h.GetDriver)
	router.POST("/api/v1/drivers/id/:id/deactivate", h.DeactivateDriver)

	router.GET("/api/v1/availability/vehicles", h.AvailableVehicles)
	router.GET("/api/v1/availability/drivers", h.AvailableDrivers)
	router.GET("/api/v1/availability/summary", h.AvailabilitySummary)

	router.POST("/api/v1/assignments", h.Assign)
	router.GET("/api/v1/assignments/id/:id", h.GetAssignment)
	router.POST("/api/v1/assignments/id/:id/start", h.StartAssignment)
	router.POST("/api/v1/assignments/id/:id/complete", h.CompleteAssignment)
	router.POST("/api/v1/assignments/id/:id/cancel", h.CancelAssignment)
	router.GET("/api/v1/trips/id/:id/assignments", h.ListTripAssignments)
	router.GET("/api/v1/dispatch", h.DispatchBoard)
}

package handler

import (
	"net/http"
	"time"

	httputil "buscharter/pkg/http"
	"buscharter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type StartRequest struct {
	StartKm int `json:"start_km"`
}

type CompleteRequest struct {
	EndKm int `json:"end_km"`
}

// window reads a required time range from the query string. It writes the
// error response itself and reports whether the handler may continue.
func (h *FleetHandler) window(w http.ResponseWriter, r *http.Request, handler, fromParam, toParam string) (time.Time, time.Time, bool) {
	from, err := httputil.QueryTime(r, fromParam, true)
	if err != nil {
		h.writeError(w, handler, err)
		return time.Time{}, time.Time{}, false
	}
	to, err := httputil.QueryTime(r, toParam, true)
	if err != nil {
		h.writeError(w, handler, err)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *FleetHandler) Assign(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Assign", err)
		return
	}

	result, err := h.assignments.Assign(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Assign", err)
		return
	}
	h.writeCreated(w, "Assign", result)
}

func (h *FleetHandler) GetAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := h.assignments.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetAssignment", err)
		return
	}
	h.writeSuccess(w, "GetAssignment", a)
}

func (h *FleetHandler) StartAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req StartRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "StartAssignment", err)
		return
	}

	a, err := h.assignments.Start(r.Context(), ps.ByName("id"), req.StartKm)
	if err != nil {
		h.writeError(w, "StartAssignment", err)
		return
	}
	h.writeSuccess(w, "StartAssignment", a)
}

func (h *FleetHandler) CompleteAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req CompleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CompleteAssignment", err)
		return
	}

	a, err := h.assignments.Complete(r.Context(), ps.ByName("id"), req.EndKm)
	if err != nil {
		h.writeError(w, "CompleteAssignment", err)
		return
	}
	h.writeSuccess(w, "CompleteAssignment", a)
}

func (h *FleetHandler) CancelAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := h.assignments.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CancelAssignment", err)
		return
	}
	h.writeSuccess(w, "CancelAssignment", a)
}

func (h *FleetHandler) ListTripAssignments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	assignments, err := h.assignments.ListByTrip(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListTripAssignments", err)
		return
	}
	h.writeSuccess(w, "ListTripAssignments", assignments)
}

func (h *FleetHandler) DispatchBoard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, to, ok := h.window(w, r, "DispatchBoard", "from", "to")
	if !ok {
		return
	}

	board, err := h.assignments.DispatchBoard(r.Context(), from, to)
	if err != nil {
		h.writeError(w, "DispatchBoard", err)
		return
	}
	h.writeSuccess(w, "DispatchBoard", board)
}

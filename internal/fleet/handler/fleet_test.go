package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFleetService struct {
	createVehicleFunc     func(ctx context.Context, v *model.Vehicle) error
	listVehiclesFunc      func(ctx context.Context, f model.VehicleFilter) ([]*model.Vehicle, error)
	availableVehiclesFunc func(ctx context.Context, start, end time.Time, c model.VehicleCategory) ([]*model.Vehicle, error)
	deactivateDriverFunc  func(ctx context.Context, id string) error
}

func (m *mockFleetService) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	if m.createVehicleFunc != nil {
		return m.createVehicleFunc(ctx, v)
	}
	return nil
}

func (m *mockFleetService) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return &model.Vehicle{ID: id}, nil
}

func (m *mockFleetService) UpdateVehicle(ctx context.Context, id string, u *model.VehicleUpdate) (*model.Vehicle, error) {
	return &model.Vehicle{ID: id}, nil
}

func (m *mockFleetService) ListVehicles(ctx context.Context, f model.VehicleFilter) ([]*model.Vehicle, error) {
	if m.listVehiclesFunc != nil {
		return m.listVehiclesFunc(ctx, f)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockFleetService) ActivateVehicle(ctx context.Context, id string) error    { return nil }
func (m *mockFleetService) DeactivateVehicle(ctx context.Context, id string) error  { return nil }
func (m *mockFleetService) CreateDriver(ctx context.Context, d *model.Driver) error { return nil }

func (m *mockFleetService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return &model.Driver{ID: id}, nil
}

func (m *mockFleetService) ListDrivers(ctx context.Context, activeOnly bool) ([]*model.Driver, error) {
	return []*model.Driver{}, nil
}

func (m *mockFleetService) DeactivateDriver(ctx context.Context, id string) error {
	if m.deactivateDriverFunc != nil {
		return m.deactivateDriverFunc(ctx, id)
	}
	return nil
}

func (m *mockFleetService) AvailableVehicles(ctx context.Context, start, end time.Time, c model.VehicleCategory) ([]*model.Vehicle, error) {
	if m.availableVehiclesFunc != nil {
		return m.availableVehiclesFunc(ctx, start, end, c)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockFleetService) AvailableDrivers(ctx context.Context, start, end time.Time) ([]*model.Driver, error) {
	return []*model.Driver{}, nil
}

func (m *mockFleetService) AvailabilitySummary(ctx context.Context, start, end time.Time) (map[model.VehicleCategory]int, error) {
	return map[model.VehicleCategory]int{model.CategoryBigBus: 2}, nil
}

type mockAssignmentService struct {
	assignFunc   func(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error)
	completeFunc func(ctx context.Context, id string, endKm int) (*model.Assignment, error)
	dispatchFunc func(ctx context.Context, from, to time.Time) ([]*model.Assignment, error)
}

func (m *mockAssignmentService) Assign(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, req)
	}
	return &model.AssignResult{}, nil
}

func (m *mockAssignmentService) Get(ctx context.Context, id string) (*model.Assignment, error) {
	return &model.Assignment{ID: id}, nil
}

func (m *mockAssignmentService) Start(ctx context.Context, id string, startKm int) (*model.Assignment, error) {
	return &model.Assignment{ID: id, StartKm: &startKm, Status: model.AssignmentInProgress}, nil
}

func (m *mockAssignmentService) Complete(ctx context.Context, id string, endKm int) (*model.Assignment, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, id, endKm)
	}
	return &model.Assignment{ID: id}, nil
}

func (m *mockAssignmentService) Cancel(ctx context.Context, id string) (*model.Assignment, error) {
	return &model.Assignment{ID: id, Status: model.AssignmentCancelled}, nil
}

func (m *mockAssignmentService) ListByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error) {
	return []*model.Assignment{{ID: "a1", TripID: tripID}}, nil
}

func (m *mockAssignmentService) DispatchBoard(ctx context.Context, from, to time.Time) ([]*model.Assignment, error) {
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, from, to)
	}
	return []*model.Assignment{}, nil
}

func newRouter(fleet *mockFleetService, assignments *mockAssignmentService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"})
	router := httprouter.New()
	NewFleetHandler(fleet, assignments, log).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateVehicle(t *testing.T) {
	router := newRouter(&mockFleetService{
		createVehicleFunc: func(ctx context.Context, v *model.Vehicle) error {
			v.ID = "v1"
			return nil
		},
	}, &mockAssignmentService{})

	rec := do(router, http.MethodPost, "/api/v1/vehicles",
		`{"plate_number":"B 1 AA","display_name":"Bus","category":"BIG_BUS","seat_capacity":45,"ownership":"OWNED"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"v1"`)

	rec = do(router, http.MethodPost, "/api/v1/vehicles", `{"plate_number":"B 1 AA","wheels":6}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListVehicles_Query(t *testing.T) {
	var got model.VehicleFilter
	router := newRouter(&mockFleetService{
		listVehiclesFunc: func(ctx context.Context, f model.VehicleFilter) ([]*model.Vehicle, error) {
			got = f
			return []*model.Vehicle{}, nil
		},
	}, &mockAssignmentService{})

	rec := do(router, http.MethodGet, "/api/v1/vehicles?category=HIACE&active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CategoryHiace, got.Category)
	assert.True(t, got.ActiveOnly)

	rec = do(router, http.MethodGet, "/api/v1/vehicles?active=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailableVehicles_Window(t *testing.T) {
	var gotStart, gotEnd time.Time
	router := newRouter(&mockFleetService{
		availableVehiclesFunc: func(ctx context.Context, start, end time.Time, c model.VehicleCategory) ([]*model.Vehicle, error) {
			gotStart, gotEnd = start, end
			return []*model.Vehicle{{ID: "v1"}}, nil
		},
	}, &mockAssignmentService{})

	rec := do(router, http.MethodGet, "/api/v1/availability/vehicles?start=2025-06-01T00:00:00Z&end=2025-06-03T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), gotStart.UTC())
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), gotEnd.UTC())

	rec = do(router, http.MethodGet, "/api/v1/availability/vehicles?start=2025-06-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end")

	rec = do(router, http.MethodGet, "/api/v1/availability/summary?start=2025-06-01T00:00:00Z&end=2025-06-02T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"BIG_BUS":2`)
}

func TestAssign_HardConflict(t *testing.T) {
	router := newRouter(&mockFleetService{}, &mockAssignmentService{
		assignFunc: func(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error) {
			return nil, apperrors.HardConflict("Vehicle is already booked for an overlapping trip", map[string]any{
				"vehicle_id":           req.VehicleID,
				"conflicting_trip_ids": []string{"t0"},
			})
		},
	})

	rec := do(router, http.MethodPost, "/api/v1/assignments", `{"trip_id":"t1","vehicle_id":"v1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeHardConflict, resp.Code)
	assert.Equal(t, []any{"t0"}, resp.Details["conflicting_trip_ids"])
}

func TestAssign_WarningsInBody(t *testing.T) {
	router := newRouter(&mockFleetService{}, &mockAssignmentService{
		assignFunc: func(ctx context.Context, req *model.AssignRequest) (*model.AssignResult, error) {
			return &model.AssignResult{
				Assignment: &model.Assignment{ID: "a1", TripID: req.TripID, VehicleID: req.VehicleID},
				Warnings: []model.Warning{
					model.NewBufferWarning(model.WarningBufferBefore, 2*time.Hour, 4*time.Hour, "t0"),
				},
			}, nil
		},
	})

	rec := do(router, http.MethodPost, "/api/v1/assignments", `{"trip_id":"t1","vehicle_id":"v1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gap_minutes":120`)
	assert.Contains(t, rec.Body.String(), `"kind":"BUFFER_BEFORE"`)
}

func TestCompleteAssignment(t *testing.T) {
	var gotKm int
	router := newRouter(&mockFleetService{}, &mockAssignmentService{
		completeFunc: func(ctx context.Context, id string, endKm int) (*model.Assignment, error) {
			gotKm = endKm
			if id == "missing" {
				return nil, apperrors.NotFoundWithID("Assignment", id)
			}
			return &model.Assignment{ID: id, Status: model.AssignmentCompleted}, nil
		},
	})

	rec := do(router, http.MethodPost, "/api/v1/assignments/id/a1/complete", `{"end_km":1450}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1450, gotKm)

	rec = do(router, http.MethodPost, "/api/v1/assignments/id/missing/complete", `{"end_km":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/assignments/id/a1/complete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchBoard(t *testing.T) {
	called := false
	router := newRouter(&mockFleetService{}, &mockAssignmentService{
		dispatchFunc: func(ctx context.Context, from, to time.Time) ([]*model.Assignment, error) {
			called = true
			return []*model.Assignment{}, nil
		},
	})

	rec := do(router, http.MethodGet, "/api/v1/dispatch?from=bad&to=2025-06-02T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = do(router, http.MethodGet, "/api/v1/dispatch?from=2025-06-01T00:00:00Z&to=2025-06-02T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestDriverRoutes(t *testing.T) {
	router := newRouter(&mockFleetService{
		deactivateDriverFunc: func(ctx context.Context, id string) error {
			return apperrors.NotFoundWithID("Driver", id)
		},
	}, &mockAssignmentService{})

	rec := do(router, http.MethodGet, "/api/v1/drivers/id/d1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/drivers/id/d1/deactivate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/trips/id/t1/assignments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trip_id":"t1"`)
}

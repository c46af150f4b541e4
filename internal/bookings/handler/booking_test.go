package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/logger"
	"buscharter/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBookingService struct {
	createFunc      func(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error)
	getByIDFunc     func(ctx context.Context, id string) (*model.BookingDetail, error)
	getAllFunc      func(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error)
	addTripFunc     func(ctx context.Context, bookingID string, in *model.TripInput) (*model.Trip, error)
	updateTripFunc  func(ctx context.Context, tripID string, update *model.TripUpdate) (*model.Trip, error)
	transitionFunc  func(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error)
	transitionsFunc func(ctx context.Context, bookingID string) (*model.BookingTransitions, error)
}

func (m *mockBookingService) Create(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return &model.BookingDetail{}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.BookingDetail, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.BookingDetail{}, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, filter)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) AddTrip(ctx context.Context, bookingID string, in *model.TripInput) (*model.Trip, error) {
	if m.addTripFunc != nil {
		return m.addTripFunc(ctx, bookingID, in)
	}
	return &model.Trip{}, nil
}

func (m *mockBookingService) UpdateTrip(ctx context.Context, tripID string, update *model.TripUpdate) (*model.Trip, error) {
	if m.updateTripFunc != nil {
		return m.updateTripFunc(ctx, tripID, update)
	}
	return &model.Trip{}, nil
}

func (m *mockBookingService) Transition(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, bookingID, target)
	}
	return &model.BookingDetail{}, nil
}

func (m *mockBookingService) Transitions(ctx context.Context, bookingID string) (*model.BookingTransitions, error) {
	if m.transitionsFunc != nil {
		return m.transitionsFunc(ctx, bookingID)
	}
	return &model.BookingTransitions{}, nil
}

func newTestRouter(svc *mockBookingService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	})
	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetAll_QueryParameters(t *testing.T) {
	var received model.BookingFilter
	svc := &mockBookingService{
		getAllFunc: func(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error) {
			received = filter
			return []*model.Booking{{ID: "b1"}}, 7, nil
		},
	}
	router := newTestRouter(svc)

	tests := []struct {
		name           string
		query          string
		expectHTTPCode int
		expectLimit    int
		expectOffset   int64
	}{
		{"defaults", "", http.StatusOK, 10, 0},
		{"explicit", "?limit=5&offset=20", http.StatusOK, 5, 20},
		{"limit capped", "?limit=100000", http.StatusOK, 100, 0},
		{"negative offset", "?offset=-4", http.StatusOK, 10, 0},
		{"non numeric limit", "?limit=abc", http.StatusBadRequest, 0, 0},
		{"non numeric offset", "?offset=x", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received = model.BookingFilter{}
			rec := serve(router, http.MethodGet, "/api/v1/bookings"+tt.query, "")
			assert.Equal(t, tt.expectHTTPCode, rec.Code)
			if tt.expectHTTPCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.expectLimit, received.Limit)
			assert.Equal(t, tt.expectOffset, received.Offset)

			var page struct {
				TotalCount int64 `json:"total_count"`
				Limit      int   `json:"limit"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
			assert.Equal(t, int64(7), page.TotalCount)
			assert.Equal(t, tt.expectLimit, page.Limit)
		})
	}
}

func TestGetAll_PassesFilters(t *testing.T) {
	var received model.BookingFilter
	router := newTestRouter(&mockBookingService{
		getAllFunc: func(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int64, error) {
			received = filter
			return nil, 0, nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/bookings?status=PAYMENT_RECEIVED&customer_id=c-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusPaymentReceived, received.Status)
	assert.Equal(t, "c-1", received.CustomerID)
}

func TestCreate(t *testing.T) {
	var received *model.BookingCreate
	router := newTestRouter(&mockBookingService{
		createFunc: func(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error) {
			received = in
			return &model.BookingDetail{Booking: &model.Booking{ID: "b1", Code: "BOOK/2025/03/001"}}, nil
		},
	})

	body := `{"customer_id":"5f0c2c52-3c55-4d7b-9b3a-3a39b6bb3c11","trips":[{"start_time":"2025-03-20T08:00:00Z","end_time":"2025-03-20T18:00:00Z","pickup":"Depot","destination":"Lake","requested_category":"BIG_BUS"}]}`
	rec := serve(router, http.MethodPost, "/api/v1/bookings", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, received)
	assert.Len(t, received.Trips, 1)
	assert.Contains(t, rec.Body.String(), "BOOK/2025/03/001")
}

func TestCreate_RejectsBadBodies(t *testing.T) {
	called := false
	router := newTestRouter(&mockBookingService{
		createFunc: func(ctx context.Context, in *model.BookingCreate) (*model.BookingDetail, error) {
			called = true
			return nil, nil
		},
	})

	for name, body := range map[string]string{
		"empty":         "",
		"malformed":     `{"customer_id":`,
		"unknown field": `{"customer_id":"x","extra":true}`,
		"two objects":   `{"customer_id":"x"}{"customer_id":"y"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/api/v1/bookings", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, rec)["code"])
		})
	}
	assert.False(t, called)
}

func TestGetByID_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectBody string
	}{
		{"not found", apperrors.NotFoundWithID("Booking", "b1"), http.StatusNotFound, apperrors.CodeNotFound},
		{"unauthorized", apperrors.Unauthorized("Tenant scope is required"), http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"internal", apperrors.Internal("Failed to get booking", assert.AnError), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockBookingService{
				getByIDFunc: func(ctx context.Context, id string) (*model.BookingDetail, error) {
					assert.Equal(t, "b1", id)
					return nil, tt.err
				},
			})
			rec := serve(router, http.MethodGet, "/api/v1/bookings/id/b1", "")
			assert.Equal(t, tt.expectCode, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.expectBody, body["code"])
			if tt.expectCode == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", body["error"])
			}
		})
	}
}

func TestTransition(t *testing.T) {
	var gotID string
	var gotTarget model.BookingStatus
	router := newTestRouter(&mockBookingService{
		transitionFunc: func(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error) {
			gotID, gotTarget = bookingID, target
			return &model.BookingDetail{Booking: &model.Booking{ID: bookingID, Status: target}}, nil
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/bookings/id/b9/transitions", `{"target":"QUOTATION_SENT"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b9", gotID)
	assert.Equal(t, model.StatusQuotationSent, gotTarget)
}

func TestTransition_InvalidEdge(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		transitionFunc: func(ctx context.Context, bookingID string, target model.BookingStatus) (*model.BookingDetail, error) {
			return nil, apperrors.InvalidTransition("DRAFT", "COMPLETED", []string{"QUOTATION_SENT", "CANCELLED"})
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/bookings/id/b9/transitions", `{"target":"COMPLETED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeInvalidTransition, body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"QUOTATION_SENT", "CANCELLED"}, details["allowed"])
}

func TestTransitions(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		transitionsFunc: func(ctx context.Context, bookingID string) (*model.BookingTransitions, error) {
			return &model.BookingTransitions{
				Status:     model.StatusDraft,
				NextStates: []model.BookingStatus{model.StatusQuotationSent, model.StatusCancelled},
			}, nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/bookings/id/b9/transitions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"next_states":["QUOTATION_SENT","CANCELLED"]`)
}

func TestTripRoutes(t *testing.T) {
	var addedTo, updated string
	router := newTestRouter(&mockBookingService{
		addTripFunc: func(ctx context.Context, bookingID string, in *model.TripInput) (*model.Trip, error) {
			addedTo = bookingID
			return &model.Trip{ID: "t1", BookingID: bookingID}, nil
		},
		updateTripFunc: func(ctx context.Context, tripID string, update *model.TripUpdate) (*model.Trip, error) {
			updated = tripID
			require.NotNil(t, update.Destination)
			return &model.Trip{ID: tripID, Destination: *update.Destination}, nil
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/bookings/id/b1/trips",
		`{"start_time":"2025-03-20T08:00:00Z","end_time":"2025-03-20T18:00:00Z","pickup":"Depot","destination":"Lake","requested_category":"HIACE"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "b1", addedTo)

	rec = serve(router, http.MethodPatch, "/api/v1/trips/id/t1", `{"destination":"Harbour"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", updated)
	assert.Contains(t, rec.Body.String(), "Harbour")
}

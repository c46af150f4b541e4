//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"testing"
	"time"

	"buscharter/pkg/client"
	apperrors "buscharter/pkg/errors"
	"buscharter/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live service: TEST_SERVER_URL=http://localhost:8080 go test -tags integration ./test/...

var codePattern = regexp.MustCompile(`^[A-Z]+/\d{4}/\d{2}/\d{3,}$`)

func newClient(t *testing.T) *client.HttpClient {
	t.Helper()
	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	c := client.NewHttpClient(serverURL, "it-"+uuid.NewString()[:8], "integration")
	require.NoError(t, c.WaitForHealthy(context.Background(), 30*time.Second))
	return c
}

func mustCreate[T any](t *testing.T, c *client.HttpClient, path string, body any) T {
	t.Helper()
	resp, err := c.POST(context.Background(), path, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))
	var out T
	require.NoError(t, resp.DecodeData(&out))
	return out
}

func fleetFixture(t *testing.T, c *client.HttpClient) (*model.Customer, *model.Vehicle, *model.Driver) {
	t.Helper()
	suffix := time.Now().UnixNano() % 10000
	customer := mustCreate[*model.Customer](t, c, "/api/v1/customers", map[string]any{
		"name":  "PT Wisata Integrasi",
		"kind":  "CORPORATE",
		"phone": fmt.Sprintf("+62812000%04d", suffix),
	})
	vehicle := mustCreate[*model.Vehicle](t, c, "/api/v1/vehicles", map[string]any{
		"plate_number":  fmt.Sprintf("B %04d IT", suffix),
		"display_name":  "Integration Bus",
		"category":      "BIG_BUS",
		"seat_capacity": 45,
		"ownership":     "OWNED",
	})
	driver := mustCreate[*model.Driver](t, c, "/api/v1/drivers", map[string]any{
		"full_name":      "Pak Integrasi",
		"phone":          fmt.Sprintf("+62813000%04d", suffix),
		"license_number": fmt.Sprintf("SIM-%04d", suffix),
		"license_expiry": time.Now().AddDate(2, 0, 0).UTC().Format(time.RFC3339),
	})
	return customer, vehicle, driver
}

func createBooking(t *testing.T, c *client.HttpClient, customerID string, start time.Time) *model.BookingDetail {
	t.Helper()
	return mustCreate[*model.BookingDetail](t, c, "/api/v1/bookings", map[string]any{
		"customer_id": customerID,
		"trips": []map[string]any{{
			"start_time":  start.Format(time.RFC3339),
			"end_time":    start.Add(10 * time.Hour).Format(time.RFC3339),
			"pickup":      "Jakarta",
			"destination": "Bandung",
		}},
	})
}

func TestCharterFlow(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	customer, vehicle, driver := fleetFixture(t, c)

	start := time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Hour)
	detail := createBooking(t, c, customer.ID, start)
	booking := detail.Booking
	assert.Equal(t, model.StatusDraft, booking.Status)
	assert.Regexp(t, codePattern, booking.Code)
	require.Len(t, detail.Trips, 1)
	tripID := detail.Trips[0].ID

	resp, err := c.POST(ctx, "/api/v1/bookings/id/"+booking.ID+"/transitions", map[string]any{"target": "QUOTATION_SENT"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, client.GetErrorMessage(resp))

	mustCreate[*model.Charge](t, c, "/api/v1/bookings/id/"+booking.ID+"/charges", map[string]any{
		"kind": "PRIMARY", "description": "Sewa bus Jakarta Bandung", "quantity": 1, "unit_price": 5_000_000,
	})

	result := mustCreate[*model.PaymentResult](t, c, "/api/v1/bookings/id/"+booking.ID+"/payments", map[string]any{
		"amount": 1_000_000, "method": "TRANSFER",
	})
	assert.Equal(t, model.StatusPaymentReceived, result.Booking.Status)
	assert.Equal(t, int64(4_000_000), result.Totals.Outstanding)

	assigned := mustCreate[*model.AssignResult](t, c, "/api/v1/assignments", map[string]any{
		"trip_id": tripID, "vehicle_id": vehicle.ID, "driver_id": driver.ID,
	})
	assert.Equal(t, model.AssignmentScheduled, assigned.Assignment.Status)

	t.Run("overlapping booking is a hard conflict", func(t *testing.T) {
		other := createBooking(t, c, customer.ID, start.Add(2*time.Hour))
		resp, err := c.POST(ctx, "/api/v1/bookings/id/"+other.Booking.ID+"/transitions", map[string]any{"target": "QUOTATION_SENT"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		mustCreate[*model.Charge](t, c, "/api/v1/bookings/id/"+other.Booking.ID+"/charges", map[string]any{
			"kind": "PRIMARY", "description": "Sewa bus", "quantity": 1, "unit_price": 1_000_000,
		})
		mustCreate[*model.PaymentResult](t, c, "/api/v1/bookings/id/"+other.Booking.ID+"/payments", map[string]any{
			"amount": 1_000_000, "method": "CASH",
		})

		resp, err = c.POST(ctx, "/api/v1/assignments", map[string]any{
			"trip_id": other.Trips[0].ID, "vehicle_id": vehicle.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, apperrors.CodeHardConflict, client.ErrorCode(resp))
	})

	t.Run("other tenant cannot see the booking", func(t *testing.T) {
		resp, err := c.AsTenant("it-stranger").GET(ctx, "/api/v1/bookings/id/"+booking.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing tenant is rejected", func(t *testing.T) {
		resp, err := c.AsTenant("").GET(ctx, "/api/v1/bookings")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "buscharter/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "not found",
			err:        apperrors.NotFound("booking"),
			wantStatus: stdhttp.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
			wantError:  "booking not found",
		},
		{
			name:       "invalid transition",
			err:        apperrors.InvalidTransition("DRAFT", "COMPLETED", []string{"QUOTATION_SENT"}),
			wantStatus: stdhttp.StatusConflict,
			wantCode:   apperrors.CodeInvalidTransition,
			wantError:  "cannot transition booking from DRAFT to COMPLETED",
		},
		{
			name:       "plain error hides message",
			err:        assert.AnError,
			wantStatus: stdhttp.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestWritePaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WritePaginated(rec, []string{"a"}, 7, 1, 3))

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.TotalCount)
	assert.Equal(t, 1, body.Limit)
	assert.Equal(t, int64(3), body.Offset)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"bus"}`},
		{name: "empty body", body: ``, wantErr: true},
		{name: "unknown field", body: `{"name":"bus","tenant_id":"x"}`, wantErr: true},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(r, &p)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bus", p.Name)
		})
	}
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(stdhttp.MethodGet, "/?from=2025-03-01T08:00:00Z&bad=yesterday", nil)

	got, err := QueryTime(r, "from", true)
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	_, err = QueryTime(r, "bad", false)
	assert.Error(t, err)

	_, err = QueryTime(r, "to", true)
	assert.Error(t, err)

	zero, err := QueryTime(r, "to", false)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestExtractLimitOffset(t *testing.T) {
	r := httptest.NewRequest(stdhttp.MethodGet, "/?limit=10&offset=20", nil)
	limit, offset, err := ExtractLimitOffset(r)
	require.NoError(t, err)
	assert.Equal(t, 10, limit)
	assert.Equal(t, int64(20), offset)

	r = httptest.NewRequest(stdhttp.MethodGet, "/?limit=ten", nil)
	_, _, err = ExtractLimitOffset(r)
	assert.Error(t, err)
}

package respond_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

func TestServiceResponse_MapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/requests", nil)

	respond.ServiceResponse(logger.NewNopLogger(), rec, req, nil, apperror.NewInsufficientStockError("p1", 3, 1), http.StatusCreated)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Category)
	assert.Equal(t, http.StatusConflict, body.Code)
}

func TestServiceResponse_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)

	respond.ServiceResponse(logger.NewNopLogger(), rec, req, map[string]string{"ok": "sim"}, nil, http.StatusOK)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"sim"}`, rec.Body.String())
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"x","extra":1}`))
	var dst struct {
		Reason string `json:"reason"`
	}

	err := respond.DecodeJSON(rec, req, &dst)

	assert.IsType(t, &apperror.ValidationError{}, err)
}

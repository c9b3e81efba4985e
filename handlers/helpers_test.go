package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: club", services.ErrTournamentNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: got 3", services.ErrInvalidParticipantCount), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: \"A\"", services.ErrDuplicatePlayer), http.StatusUnprocessableEntity},
		{services.ErrValidationFailed, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: [1]", services.ErrIncompleteResults), http.StatusBadRequest},
		{services.ErrPairingMismatch, http.StatusBadRequest},
		{&brackets.PairingExhaustedError{Round: 3, Unpaired: []models.PlayerID{"B", "C"}}, http.StatusConflict},
		{fmt.Errorf("%w: cannot commit", services.ErrStateMismatch), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPairingExhaustedResponse_ListsUnpaired(t *testing.T) {
	rec := httptest.NewRecorder()
	exhausted := &brackets.PairingExhaustedError{Round: 3, Unpaired: []models.PlayerID{"B", "C"}}
	pairingExhaustedResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), exhausted,
		[]models.Pairing{{Board: 1, First: "A", Second: "D"}})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Round    int              `json:"round"`
		Unpaired []string         `json:"unpaired"`
		Pairings []models.Pairing `json:"pairings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Round)
	assert.Equal(t, []string{"B", "C"}, body.Unpaired)
	assert.Len(t, body.Pairings, 1)
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"names":["A","B"]}`, ""},
		{"empty", ``, "body must not be empty"},
		{"unknown field", `{"players":["A"]}`, "unknown key"},
		{"wrong type", `{"names":"A"}`, "incorrect JSON type"},
		{"two values", `{"names":[]}{"names":[]}`, "single JSON value"},
		{"malformed", `{"names":[`, "badly-formed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst setupRequest
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

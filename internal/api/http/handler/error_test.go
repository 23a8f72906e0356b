package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/chatdata-server/internal/model"
)

func TestHandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantDetail  string
	}{
		{
			name:        "validation",
			err:         model.NewValidationError("Invalid ID format", errors.New("invalid UUID length: 3")),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid ID format",
			wantDetail:  "invalid UUID length: 3",
		},
		{
			name:        "not found without cause",
			err:         model.NewNotFoundError("Profile not found", nil),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Profile not found",
		},
		{
			name:        "conflict",
			err:         model.NewConflictError("Nickname is already taken", model.ErrConflict),
			wantStatus:  http.StatusConflict,
			wantMessage: "Nickname is already taken",
			wantDetail:  "conflict",
		},
		{
			name:        "unauthorized wrapping not found",
			err:         model.NewUnauthorizedError("invalid refresh token", model.ErrNotFound),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "invalid refresh token",
			wantDetail:  "not found",
		},
		{
			name:        "storage",
			err:         model.NewStorageError("Error retrieving data", errors.New("connection refused")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Error retrieving data",
			wantDetail:  "connection refused",
		},
		{
			name:        "unclassified",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "internal server error",
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			handleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantDetail, body.Error)
		})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/chatdata-server/internal/mocks"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	validID := uuid.New()

	tests := []struct {
		name         string
		header       string
		tokenUserID  uuid.UUID
		tokenErr     error
		callsService bool
		wantStatus   int
	}{
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:         "invalid token",
			header:       "Bearer invalid",
			tokenErr:     errors.New("token is malformed"),
			callsService: true,
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "nil user id",
			header:       "Bearer token",
			tokenUserID:  uuid.Nil,
			callsService: true,
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "valid token",
			header:       "Bearer token",
			tokenUserID:  validID,
			callsService: true,
			wantStatus:   http.StatusOK,
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := mocks.NewTokenService(t)
			cm := mocks.NewContextManager(t)
			if tt.callsService {
				svc.On("GetUserID", mock.Anything, mock.AnythingOfType("string")).Return(tt.tokenUserID, tt.tokenErr)
			}
			if tt.wantStatus == http.StatusOK {
				cm.On("SetUserIDToContext", mock.Anything, tt.tokenUserID).Return(context.Background())
			}

			m := NewAuthenticate(svc, cm, testutil.MakeNoopLogger())

			var reached bool
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Handle(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, reached)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

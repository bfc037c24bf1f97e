package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/auth"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(username, password string) (string, error) {
	args := m.Called(username, password)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "success",
			requestBody: models.LoginRequest{Username: "admin", Password: "secret"},
			setupMocks: func(s *MockService) {
				s.On("Login", "admin", "secret").Return("jwt-token", nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"token":"jwt-token"}}`,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not a json",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "missing password",
			requestBody:    models.LoginRequest{Username: "admin"},
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Password is a required field"}`,
		},
		{
			name:        "invalid credentials",
			requestBody: models.LoginRequest{Username: "admin", Password: "wrong"},
			setupMocks: func(s *MockService) {
				s.On("Login", "admin", "wrong").Return("", auth.ErrInvalidCredentials).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid credentials"}`,
		},
		{
			name:        "service error",
			requestBody: models.LoginRequest{Username: "admin", Password: "secret"},
			setupMocks: func(s *MockService) {
				s.On("Login", "admin", "secret").Return("", errors.New("signing failed")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not login"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			handler := New(newNoopLogger(), service)

			tt.setupMocks(service)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			service.AssertExpectations(t)
		})
	}
}

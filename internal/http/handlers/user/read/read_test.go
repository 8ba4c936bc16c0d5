package read

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/models"
)

// MockService реализует интерфейс read.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

const validID = "3f2b8c1e-7d4a-4b6e-9c0d-1a2b3c4d5e6f"

func TestReadHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name         string
		id           string
		setupMock    func(*MockService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "успешное чтение пользователя",
			id:   validID,
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, validID).
					Return(&models.User{ID: validID, Name: "alice", Email: "alice@example.com", Role: "user", PasswordHash: "hash"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `"email":"alice@example.com"`,
		},
		{
			name:         "id не является UUID",
			id:           "abc",
			setupMock:    func(_ *MockService) {},
			expectedCode: http.StatusNotFound,
			expectedBody: `"message":"User not found"`,
		},
		{
			name: "пользователь удален",
			id:   validID,
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, validID).Return(nil, apperr.NotFound("User not found"))
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `"message":"User not found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/user/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "hash")
			mockService.AssertExpectations(t)
		})
	}
}

func TestReadHandler_BodyShape(t *testing.T) {
	mockService := new(MockService)
	mockService.On("Get", mock.Anything, validID).Return(&models.User{ID: validID, Name: "alice"}, nil)
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), mockService)

	req := httptest.NewRequest(http.MethodGet, "/api/user/"+validID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", validID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var got map[string]map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, validID, got["user"]["id"])
	assert.NotContains(t, got["user"], "isDeleted")
	assert.NotContains(t, got["user"], "passwordResetToken")
}

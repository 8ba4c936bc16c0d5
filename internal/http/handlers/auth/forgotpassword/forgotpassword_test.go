package forgotpassword

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestForgotPasswordHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name        string
		exposeToken bool
		body        string
		mockToken   string
		mockErr     error
		callService bool
		wantCode    int
		wantBody    string
	}{
		{
			name:        "token hidden by default",
			body:        `{"email":"alice@example.com"}`,
			mockToken:   "plain",
			callService: true,
			wantCode:    http.StatusOK,
			wantBody:    `{"message":"Token sent to email"}`,
		},
		{
			name:        "token exposed when enabled",
			exposeToken: true,
			body:        `{"email":"alice@example.com"}`,
			mockToken:   "plain",
			callService: true,
			wantCode:    http.StatusOK,
			wantBody:    `{"message":"Token sent to email","token_for_test":"plain"}`,
		},
		{
			name:        "unknown email",
			body:        `{"email":"alice@example.com"}`,
			mockErr:     apperr.NotFound("User not found"),
			callService: true,
			wantCode:    http.StatusNotFound,
			wantBody:    `{"status":"fail","message":"User not found","statusCode":404}`,
		},
		{
			name:        "mail failure",
			body:        `{"email":"alice@example.com"}`,
			mockErr:     errors.New("smtp down"),
			callService: true,
			wantCode:    http.StatusInternalServerError,
			wantBody:    `{"status":"error","message":"Something went wrong","statusCode":500}`,
		},
		{
			name:     "missing email",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"status":"fail","message":"field Email is a required field","statusCode":400}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.callService {
				serviceMock.On("ForgotPassword", mock.Anything, "alice@example.com").
					Return(tt.mockToken, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), serviceMock, tt.exposeToken)

			req := httptest.NewRequest(http.MethodPost, "/api/user/auth/forgotPassword", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			serviceMock.AssertExpectations(t)
		})
	}
}

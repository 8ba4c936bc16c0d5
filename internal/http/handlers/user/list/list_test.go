package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).([]map[string]any)
	return res, args.Error(1)
}

func TestListHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		url      string
		params   url.Values
		mockRes  []map[string]any
		mockErr  error
		wantCode int
		wantBody string
	}{
		{
			name:     "page of users",
			url:      "/api/user?role=admin&sort=-name&page=2",
			params:   url.Values{"role": {"admin"}, "sort": {"-name"}, "page": {"2"}},
			mockRes:  []map[string]any{{"id": "u1", "name": "bob"}},
			wantCode: http.StatusOK,
			wantBody: `{"users":[{"id":"u1","name":"bob"}]}`,
		},
		{
			name:     "empty page is an empty array",
			url:      "/api/user?page=99",
			params:   url.Values{"page": {"99"}},
			wantCode: http.StatusOK,
			wantBody: `{"users":[]}`,
		},
		{
			name:     "malformed filter value fails in storage",
			url:      "/api/user?createdAt%5Bgte%5D=yesterday",
			params:   url.Values{"createdAt[gte]": {"yesterday"}},
			mockErr:  errors.New("invalid input syntax for type timestamp"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"status":"error","message":"Something went wrong","statusCode":500}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			serviceMock.On("List", mock.Anything, tt.params).Return(tt.mockRes, tt.mockErr).Once()
			handler := New(logger, serviceMock)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			serviceMock.AssertExpectations(t)
		})
	}
}

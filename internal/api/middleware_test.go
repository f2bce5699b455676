package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer()
	userID := primitive.NewObjectID()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", "Authorization header is missing"},
		{"wrong scheme", "Token abc", "Authorization header format must be Bearer {token}"},
		{"expired", "Bearer " + signToken(t, userID, domain.RoleRunner, -time.Minute), "Token has expired"},
		{"garbage", "Bearer not.a.jwt", "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.want)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/me", signToken(t, userID, domain.RoleRunner, time.Hour), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		decode(t, w, &body)
		assert.Equal(t, userID.Hex(), body["userId"])
		assert.Equal(t, "runner@example.com", body["email"])
		assert.Equal(t, "runner", body["role"])
	})
}

func TestRoleMiddleware_AdminOnly(t *testing.T) {
	ts := newTestServer()
	ts.scheduler.On("CompleteExpiredPlans", mock.Anything).Return(2, nil)
	ts.scheduler.On("RunDaily", mock.Anything).Return(service.DailyReport{Plans: 3, Missed: 1, Created: 3}, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/admin/scheduler/run", signToken(t, primitive.NewObjectID(), domain.RoleRunner, time.Hour), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	ts.scheduler.AssertNotCalled(t, "RunDaily", mock.Anything)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/scheduler/run", signToken(t, primitive.NewObjectID(), domain.RoleAdmin, time.Hour), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body SchedulerRunResponse
	decode(t, w, &body)
	assert.Equal(t, 2, body.ExpiredClosed)
	assert.Equal(t, 3, body.Daily.Created)
}

func TestRequestLogger_RequestID(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("record 0: %w", service.ErrValidation), http.StatusBadRequest},
		{service.ErrNoActivePlan, http.StatusNotFound},
		{service.ErrPlanAccessDenied, http.StatusNotFound},
		{fmt.Errorf("%w: 7 minutes", service.ErrRestIntervalExceeded), http.StatusConflict},
		{service.ErrUserAlreadyExists, http.StatusConflict},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{service.ErrRestThresholdUndefined, http.StatusInternalServerError},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

package adminsetup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shortsos/shortsos/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) AdminSetup(ctx context.Context, email string, credits *int) (*models.AccountSummary, error) {
	args := m.Called(ctx, email, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountSummary), args.Error(1)
}

func TestAdminSetupHandler_ServeHTTP(t *testing.T) {
	expiry := time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)
	days := 365
	credits := 500

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "тариф выдан с балансом",
			body: `{"email":"owner@example.com","credits":500}`,
			setupMock: func(s *MockService) {
				s.On("AdminSetup", mock.Anything, "owner@example.com", &credits).Return(&models.AccountSummary{
					UserID:          "u-1",
					Tier:            models.TierAgency,
					Status:          models.StatusActive,
					IsPaid:          true,
					Credits:         500,
					PlanExpiry:      &expiry,
					DaysUntilExpiry: &days,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"user_id":"u-1","tier":"agency","status":"active","is_paid":true,"is_admin":false,
				"credits":500,"plan_expiry":"2027-03-10T12:00:00Z","days_until_expiry":365}`,
		},
		{
			name: "баланс не передан",
			body: `{"email":"owner@example.com"}`,
			setupMock: func(s *MockService) {
				s.On("AdminSetup", mock.Anything, "owner@example.com", (*int)(nil)).Return(&models.AccountSummary{
					UserID:          "u-1",
					Tier:            models.TierAgency,
					Status:          models.StatusActive,
					IsPaid:          true,
					Credits:         5,
					PlanExpiry:      &expiry,
					DaysUntilExpiry: &days,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"user_id":"u-1","tier":"agency","status":"active","is_paid":true,"is_admin":false,
				"credits":5,"plan_expiry":"2027-03-10T12:00:00Z","days_until_expiry":365}`,
		},
		{
			name:           "некорректный email",
			body:           `{"email":"not-an-email"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Email must be a valid email"}`,
		},
		{
			name:           "отрицательный баланс",
			body:           `{"email":"owner@example.com","credits":-1}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Credits must not be negative"}`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"email":`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка хранилища",
			body: `{"email":"owner@example.com"}`,
			setupMock: func(s *MockService) {
				s.On("AdminSetup", mock.Anything, "owner@example.com", (*int)(nil)).
					Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/admin/setup", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

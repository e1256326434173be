package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CreditTransaction), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHistoryHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedCount  int
	}{
		{
			name:  "по умолчанию",
			query: "",
			setupMock: func(s *MockService) {
				s.On("History", mock.Anything, "u-1", 0, 0).
					Return([]*models.CreditTransaction{{Feature: "planner", CreditsUsed: 2, CreditsRemaining: 98}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:  "пагинация",
			query: "?limit=5&offset=10",
			setupMock: func(s *MockService) {
				s.On("History", mock.Anything, "u-1", 5, 10).Return(nil, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "отрицательное смещение",
			query:          "?offset=-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "не число",
			query:          "?limit=ten",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodGet, "/credits/history"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "u-1", ""))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, rr.Body.String(), `"transactions":[`)
				assert.Contains(t, rr.Body.String(), fmt.Sprintf(`"count":%d`, tt.expectedCount))
			}
			svc.AssertExpectations(t)
		})
	}
}

package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shortsos/shortsos/internal/models"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestScheduler(repo ExpiringPlans, pub Publisher) *Scheduler {
	s := NewScheduler(repo, pub, 3, 24*time.Hour, newNoopLogger())
	s.now = func() time.Time { return testNow }
	return s
}

func TestScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()
	from := testNow.Add(72 * time.Hour)
	to := from.Add(24 * time.Hour)
	expiry := from.Add(5 * time.Hour)

	tests := []struct {
		name          string
		setupMocks    func(*MockRepository, *MockPublisher)
		wantPublished int
		wantErr       bool
	}{
		{
			name: "публикует напоминание",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindPlansExpiringBetween", ctx, from, to).Return([]*models.Account{{
					UserID:           "u-1",
					Email:            "creator@example.com",
					SubscriptionTier: models.TierPro,
					PlanExpiry:       &expiry,
				}}, nil)
				p.On("Notify", ctx, models.Notification{
					Kind:       models.NotificationPlanExpiring,
					UserID:     "u-1",
					Email:      "creator@example.com",
					Tier:       models.TierPro,
					PlanExpiry: &expiry,
					DaysLeft:   4,
				}).Return(nil).Once()
			},
			wantPublished: 1,
		},
		{
			name: "нет истекающих планов",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindPlansExpiringBetween", ctx, from, to).Return([]*models.Account{}, nil)
			},
		},
		{
			name: "ошибка публикации не останавливает обход",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindPlansExpiringBetween", ctx, from, to).Return([]*models.Account{
					{UserID: "u-1", Email: "a@example.com", SubscriptionTier: models.TierStarter, PlanExpiry: &expiry},
					{UserID: "u-2", Email: "b@example.com", SubscriptionTier: models.TierAgency, PlanExpiry: &expiry},
				}, nil)
				p.On("Notify", ctx, mock.MatchedBy(func(n models.Notification) bool { return n.UserID == "u-1" })).
					Return(errors.New("channel closed")).Once()
				p.On("Notify", ctx, mock.MatchedBy(func(n models.Notification) bool { return n.UserID == "u-2" })).
					Return(nil).Once()
			},
			wantPublished: 1,
		},
		{
			name: "ошибка хранилища",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindPlansExpiringBetween", ctx, from, to).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			tt.setupMocks(repo, pub)

			n, err := newTestScheduler(repo, pub).RunOnce(ctx)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantPublished, n)
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindPlansExpiringBetween", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	s := newTestScheduler(repo, new(MockPublisher))
	s.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	repo.AssertNumberOfCalls(t, "FindPlansExpiringBetween", 1)
}

package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shortsos/shortsos/internal/models"
)

func TestCost(t *testing.T) {
	tests := []struct {
		feature string
		want    int
		ok      bool
	}{
		{"prompt-studio", 5, true},
		{"hook-caption", 3, true},
		{"post-processing", 8, true},
		{"creator-audit", 15, true},
		{"planner", 2, true},
		{"content-ideas", 2, true},
		{"scripts", 4, true},
		{"hook-generator", 0, false},
		{"unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.feature, func(t *testing.T) {
			got, ok := Cost(tt.feature)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDailyLimit(t *testing.T) {
	limit, ok := DailyLimit("creator-audit")
	assert.True(t, ok)
	assert.Equal(t, 1, limit)

	_, ok = DailyLimit("scripts")
	assert.False(t, ok)
}

func TestEveryFeatureHasOneStrategy(t *testing.T) {
	for _, f := range All() {
		switch f.Strategy {
		case StrategyCredits:
			assert.Positive(t, f.Cost, f.Name)
		case StrategyDaily:
			assert.Positive(t, f.DailyLimit, f.Name)
		case StrategyTier:
			assert.NotEqual(t, models.TierFree, f.RequiredTier, f.Name)
		default:
			t.Fatalf("feature %s has no strategy", f.Name)
		}
	}
}

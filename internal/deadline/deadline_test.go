package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		due  time.Time
		days int
		tier Tier
	}{
		{name: "two days", due: now.Add(2 * day), days: 2, tier: TierUrgent},
		{name: "five days", due: now.Add(5 * day), days: 5, tier: TierWarning},
		{name: "ten days", due: now.Add(10 * day), days: 10, tier: TierNormal},
		{name: "yesterday", due: now.Add(-day), days: -1, tier: TierOverdue},
		{name: "exactly now", due: now, days: 0, tier: TierOverdue},
		{name: "a few hours left", due: now.Add(5 * time.Hour), days: 1, tier: TierUrgent},
		{name: "three and a bit", due: now.Add(3*day + time.Minute), days: 4, tier: TierWarning},
		{name: "seven days", due: now.Add(7 * day), days: 7, tier: TierWarning},
		{name: "hours ago", due: now.Add(-3 * time.Hour), days: 0, tier: TierOverdue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Classify(tc.due, now)
			require.Equal(t, tc.days, result.DaysRemaining)
			require.Equal(t, tc.tier, result.Tier)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	now := time.Now()
	due := now.Add(36 * time.Hour)

	require.Equal(t, Classify(due, now), Classify(due, now))
	require.True(t, Classify(now.Add(-time.Second), now).Overdue())
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{StatusDraft, StatusScheduled, true},
		{StatusDraft, StatusInProgress, true},
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusFailed, true},
		{StatusInProgress, StatusInProgress, true},
		{StatusInProgress, StatusPublished, true},
		{StatusInProgress, StatusFailed, true},
		{StatusScheduled, StatusDraft, false},
		{StatusInProgress, StatusScheduled, false},
		{StatusScheduled, StatusPublished, false},
		{StatusPublished, StatusFailed, false},
		{StatusPublished, StatusInProgress, false},
		{StatusFailed, StatusInProgress, false},
		{StatusFailed, StatusPublished, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusPublished.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.ElementsMatch(t, []JobStatus{StatusDraft, StatusScheduled, StatusInProgress}, SourceStatuses(StatusFailed))
	assert.ElementsMatch(t, []JobStatus{StatusInProgress}, SourceStatuses(StatusPublished))
}

func TestEngagementRateTwitter(t *testing.T) {
	raw, err := json.Marshal(map[string]int{
		"impressions": 1000, "likes": 50, "retweets": 10, "replies": 5, "quotes": 3,
	})
	require.NoError(t, err)

	p := SocialPost{Platform: PlatformTwitter, Metrics: raw}
	assert.InDelta(t, 6.8, p.EngagementRate(), 1e-9)
}

func TestEngagementRateByPlatform(t *testing.T) {
	m := map[string]float64{"impressions": 200, "likes": 10, "comments": 4, "shares": 2, "reactions": 4}
	assert.InDelta(t, 8.0, EngagementRate(PlatformLinkedIn, m), 1e-9)
	assert.InDelta(t, 10.0, EngagementRate(PlatformFacebook, m), 1e-9)
	assert.Zero(t, EngagementRate(PlatformTwitter, map[string]float64{"likes": 3}))
}

func TestEngagementRateMalformedMetrics(t *testing.T) {
	p := SocialPost{Platform: PlatformTwitter, Metrics: []byte("not json")}
	assert.Zero(t, p.EngagementRate())
}

func TestAgentRecordOutcome(t *testing.T) {
	a := AIAgent{}
	a.RecordOutcome(true, 2.0)
	a.RecordOutcome(true, 4.0)
	assert.InDelta(t, 3.0, a.AverageResponseTime, 1e-9)
	assert.InDelta(t, 100.0, a.SuccessRate, 1e-9)

	a.RecordOutcome(false, 0)
	a.RecordOutcome(false, 0)
	assert.Equal(t, 4, a.TotalInteractions)
	assert.Equal(t, 2, a.SuccessfulInteractions)
	assert.InDelta(t, 50.0, a.SuccessRate, 1e-9)
}

func TestSuccessRateZeroTotal(t *testing.T) {
	assert.Zero(t, SuccessRate(0, 0))
}

func TestJobStateRetries(t *testing.T) {
	s := JobState{RetryCount: 2, MaxRetries: 3, Attempts: 3}
	assert.True(t, s.RetriesLeft())
	assert.False(t, s.Exhausted())

	s.RetryCount, s.Attempts = 3, 4
	assert.False(t, s.RetriesLeft())
	assert.True(t, s.Exhausted())
}

func TestRetryCeilingOnState(t *testing.T) {
	assert.Equal(t, DefaultMaxRetries, (&SocialPost{}).State().MaxRetries)

	one := (&AIInteraction{MaxRetries: Retries(0)}).State()
	assert.Zero(t, one.MaxRetries)
	assert.False(t, one.RetriesLeft())
	assert.False(t, one.Exhausted())

	one.Attempts = 1
	assert.True(t, one.Exhausted())
}

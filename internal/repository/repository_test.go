package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"launchpad/internal/models"
	"launchpad/internal/pkg/testdb"
	"launchpad/internal/repository"
)

func newPost(t *testing.T, db *gorm.DB, mutate func(*models.SocialPost)) *models.SocialPost {
	t.Helper()
	p := &models.SocialPost{
		UserID:   "user-1",
		Platform: models.PlatformTwitter,
		Content:  "gm",
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, repository.NewPostRepository(db).Create(context.Background(), p))
	return p
}

func TestPostLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	posts := repository.NewPostRepository(db)
	p := newPost(t, db, nil)

	assert.Equal(t, models.StatusDraft, p.Status)
	assert.Equal(t, 3, *p.MaxRetries)

	st, err := posts.BeginAttempt(ctx, p.State())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Attempts)

	st, err = posts.MarkRetry(ctx, st, time.Now().Add(time.Minute), "429 rate limited")
	require.NoError(t, err)
	assert.Equal(t, 1, st.RetryCount)

	st, err = posts.BeginAttempt(ctx, st)
	require.NoError(t, err)

	require.NoError(t, posts.MarkPublished(ctx, st, repository.PublishResult{
		PlatformPostID: "tw-1",
		PlatformURL:    "https://twitter.com/i/web/status/tw-1",
		PublishedAt:    time.Now(),
	}))

	got, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, "tw-1", got.PlatformPostID)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.ErrorMessage)
	assert.Nil(t, got.NextRetryAt)

	// Terminal records cannot move again.
	err = posts.MarkFailed(ctx, got.State(), "late failure")
	assert.True(t, errors.Is(err, repository.ErrConflict))
	_, err = posts.BeginAttempt(ctx, got.State())
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

func TestPostStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	posts := repository.NewPostRepository(db)
	p := newPost(t, db, nil)

	stale := p.State()
	_, err := posts.BeginAttempt(ctx, stale)
	require.NoError(t, err)

	_, err = posts.BeginAttempt(ctx, stale)
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

func TestPostMarkPublishedRequiresExternalID(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	posts := repository.NewPostRepository(db)
	p := newPost(t, db, nil)

	st, err := posts.BeginAttempt(ctx, p.State())
	require.NoError(t, err)
	assert.Error(t, posts.MarkPublished(ctx, st, repository.PublishResult{}))
}

func TestPostMarkRetryRespectsCeiling(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	posts := repository.NewPostRepository(db)
	p := newPost(t, db, func(p *models.SocialPost) { p.MaxRetries = models.Retries(1) })

	st, err := posts.BeginAttempt(ctx, p.State())
	require.NoError(t, err)
	st, err = posts.MarkRetry(ctx, st, time.Now(), "boom")
	require.NoError(t, err)
	st, err = posts.BeginAttempt(ctx, st)
	require.NoError(t, err)
	_, err = posts.MarkRetry(ctx, st, time.Now(), "boom")
	assert.Error(t, err)

	require.NoError(t, posts.MarkFailed(ctx, st, ""))
	got, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.LessOrEqual(t, got.RetryCount, *got.MaxRetries)
}

func TestFindByIDNotFound(t *testing.T) {
	db := testdb.New(t)
	_, err := repository.NewPostRepository(db).FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestPostList(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	newPost(t, db, nil)
	newPost(t, db, func(p *models.SocialPost) { p.Platform = models.PlatformLinkedIn })
	newPost(t, db, func(p *models.SocialPost) { p.UserID = "user-2" })

	posts, total, err := repository.NewPostRepository(db).List(ctx, repository.PostFilter{UserID: "user-1"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, posts, 2)

	posts, total, err = repository.NewPostRepository(db).List(ctx, repository.PostFilter{Platform: models.PlatformLinkedIn}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.PlatformLinkedIn, posts[0].Platform)
}

func TestScheduleClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	schedules := repository.NewScheduleRepository(db)
	p := newPost(t, db, nil)

	entry := &models.PostSchedule{ScheduledTime: time.Now().Add(-time.Minute)}
	require.NoError(t, schedules.SchedulePost(ctx, p, entry))
	assert.Equal(t, models.StatusScheduled, p.Status)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := schedules.Claim(ctx, entry.ID, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	require.NoError(t, schedules.MarkProcessed(ctx, entry.ID, time.Now()))
	got, err := schedules.FindByPostID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	assert.NotNil(t, got.ProcessedAt)

	ok, err := schedules.Claim(ctx, entry.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "processed entries are never claimed again")
}

func TestScheduleOnePerPost(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	schedules := repository.NewScheduleRepository(db)
	p := newPost(t, db, nil)

	require.NoError(t, schedules.Create(ctx, &models.PostSchedule{PostID: p.ID, ScheduledTime: time.Now()}))
	assert.Error(t, schedules.Create(ctx, &models.PostSchedule{PostID: p.ID, ScheduledTime: time.Now()}))
}

func TestScheduleFindDueHonoursRetryTime(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	schedules := repository.NewScheduleRepository(db)
	now := time.Now().UTC()

	due := &models.PostSchedule{PostID: newPost(t, db, nil).ID, ScheduledTime: now.Add(-time.Hour)}
	future := &models.PostSchedule{PostID: newPost(t, db, nil).ID, ScheduledTime: now.Add(time.Hour)}
	backingOff := &models.PostSchedule{PostID: newPost(t, db, nil).ID, ScheduledTime: now.Add(-time.Hour)}
	for _, s := range []*models.PostSchedule{due, future, backingOff} {
		require.NoError(t, schedules.Create(ctx, s))
	}

	ok, err := schedules.Claim(ctx, backingOff.ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, schedules.ReleaseForRetry(ctx, backingOff.ID, now.Add(5*time.Minute), "queue down"))

	entries, err := schedules.FindDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, due.ID, entries[0].ID)

	entries, err = schedules.FindDue(ctx, now.Add(6*time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestScheduleRecoverStaleClaims(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	schedules := repository.NewScheduleRepository(db)
	now := time.Now().UTC()

	s := &models.PostSchedule{PostID: newPost(t, db, nil).ID, ScheduledTime: now.Add(-time.Hour)}
	require.NoError(t, schedules.Create(ctx, s))
	ok, err := schedules.Claim(ctx, s.ID, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	reopened, closed, err := schedules.RecoverStaleClaims(ctx, now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reopened)
	assert.Zero(t, closed)

	ok, err = schedules.Claim(ctx, s.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduleRecoverStaleClaimsClosesStartedPosts(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	schedules := repository.NewScheduleRepository(db)
	posts := repository.NewPostRepository(db)
	now := time.Now().UTC()

	waiting := newPost(t, db, nil)
	started := newPost(t, db, nil)
	var entries []*models.PostSchedule
	for _, p := range []*models.SocialPost{waiting, started} {
		s := &models.PostSchedule{ScheduledTime: now.Add(-time.Hour)}
		require.NoError(t, schedules.SchedulePost(ctx, p, s))
		ok, err := schedules.Claim(ctx, s.ID, now.Add(-30*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		entries = append(entries, s)
	}

	// A worker already ran the second post.
	_, err := posts.BeginAttempt(ctx, started.State())
	require.NoError(t, err)

	reopened, closed, err := schedules.RecoverStaleClaims(ctx, now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reopened)
	assert.EqualValues(t, 1, closed)

	got, err := schedules.FindByPostID(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SchedulePending, got.Status)

	got, err = schedules.FindByPostID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleProcessed, got.Status)
	assert.True(t, got.IsProcessed)

	due, err := schedules.FindDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, entries[0].ID, due[0].ID)
}

func TestInteractionCompletion(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	interactions := repository.NewInteractionRepository(db)

	i := &models.AIInteraction{UserID: "u", AgentType: models.AgentMarketing, Prompt: "hello"}
	require.NoError(t, interactions.Create(ctx, i))
	assert.Equal(t, models.StatusScheduled, i.Status)

	st, err := interactions.BeginAttempt(ctx, i.State())
	require.NoError(t, err)
	require.NoError(t, interactions.MarkCompleted(ctx, st, repository.GenerationResult{
		Response: "hi", ModelUsed: "gemini-pro", TokensUsed: 12, ResponseTime: 1.5, CompletedAt: time.Now(),
	}))

	got, err := interactions.FindByID(ctx, i.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.True(t, got.IsSuccessful)
	assert.Equal(t, "hi", got.Response)
	assert.NotNil(t, got.CompletedAt)
}

func TestAgentRecordOutcome(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	agents := repository.NewAgentRepository(db)

	a, err := agents.FindActiveByType(ctx, models.AgentCommunity)
	require.NoError(t, err)

	require.NoError(t, agents.RecordOutcome(ctx, a.ID, true, 2, time.Now()))
	require.NoError(t, agents.RecordOutcome(ctx, a.ID, false, 0, time.Now()))

	got, err := agents.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalInteractions)
	assert.Equal(t, 1, got.SuccessfulInteractions)
	assert.InDelta(t, 50.0, got.SuccessRate, 1e-9)
	assert.NotNil(t, got.LastActive)
}

func TestInteractionStatsSince(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	interactions := repository.NewInteractionRepository(db)
	agent, err := repository.NewAgentRepository(db).FindActiveByType(ctx, models.AgentAnalytics)
	require.NoError(t, err)

	now := time.Now().UTC()
	rows := []*models.AIInteraction{
		{AgentID: agent.ID, Status: models.StatusPublished, IsSuccessful: true, ResponseTime: 2, CreatedAt: now.Add(-time.Hour)},
		{AgentID: agent.ID, Status: models.StatusPublished, IsSuccessful: true, ResponseTime: 4, CreatedAt: now.Add(-2 * time.Hour)},
		{AgentID: agent.ID, Status: models.StatusFailed, ErrorMessage: "x", CreatedAt: now.Add(-3 * time.Hour)},
		{AgentID: agent.ID, Status: models.StatusFailed, ErrorMessage: "x", CreatedAt: now.Add(-4 * time.Hour)},
		{AgentID: agent.ID, Status: models.StatusScheduled, CreatedAt: now.Add(-time.Hour)},
		{AgentID: agent.ID, Status: models.StatusPublished, IsSuccessful: true, ResponseTime: 100, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for _, r := range rows {
		require.NoError(t, interactions.Create(ctx, r))
	}

	stats, err := interactions.StatsSince(ctx, agent.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 2, stats.Successful)
	assert.InDelta(t, 3.0, stats.AvgResponseTime, 1e-9)
}

func TestRetentionCutoffsAreStrict(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	now := time.Now().UTC()
	posts := repository.NewPostRepository(db)
	interactions := repository.NewInteractionRepository(db)
	schedules := repository.NewScheduleRepository(db)

	oldFailed := newPost(t, db, func(p *models.SocialPost) {
		p.Status, p.ErrorMessage, p.CreatedAt = models.StatusFailed, "x", now.AddDate(0, 0, -31)
	})
	recentFailed := newPost(t, db, func(p *models.SocialPost) {
		p.Status, p.ErrorMessage, p.CreatedAt = models.StatusFailed, "x", now.AddDate(0, 0, -29)
	})
	oldPublished := newPost(t, db, func(p *models.SocialPost) {
		p.Status, p.PlatformPostID, p.CreatedAt = models.StatusPublished, "id", now.AddDate(0, 0, -60)
	})
	require.NoError(t, schedules.Create(ctx, &models.PostSchedule{PostID: oldFailed.ID, ScheduledTime: now.AddDate(0, 0, -31)}))

	n, err := posts.DeleteFailedOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = posts.FindByID(ctx, oldFailed.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	_, err = schedules.FindByPostID(ctx, oldFailed.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	_, err = posts.FindByID(ctx, recentFailed.ID)
	assert.NoError(t, err)
	_, err = posts.FindByID(ctx, oldPublished.ID)
	assert.NoError(t, err)

	old := &models.AIInteraction{Status: models.StatusPublished, CreatedAt: now.AddDate(0, 0, -91)}
	recent := &models.AIInteraction{Status: models.StatusScheduled, CreatedAt: now.AddDate(0, 0, -89)}
	require.NoError(t, interactions.Create(ctx, old))
	require.NoError(t, interactions.Create(ctx, recent))

	n, err = interactions.DeleteOlderThan(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = interactions.FindByID(ctx, recent.ID)
	assert.NoError(t, err)
}

package cron

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"launchpad/internal/adapter"
	"launchpad/internal/models"
)

const (
	metricsLookback   = 7 * 24 * time.Hour
	metricsStaleAfter = time.Hour
	metricsBatchSize  = 100
	agentWindow       = 24 * time.Hour
)

// RefreshPostMetrics pulls engagement numbers for recently published posts.
// It returns the number of posts updated.
func (s *Scheduler) RefreshPostMetrics(ctx context.Context) int {
	now := s.now()
	posts, err := s.repos.Posts.ListForMetricsRefresh(ctx, now.Add(-metricsLookback), now.Add(-metricsStaleAfter), metricsBatchSize)
	if err != nil {
		s.logger.Error("Failed to load posts for metrics refresh", zap.Error(err))
		return 0
	}

	updated := 0
	for i := range posts {
		p := &posts[i]
		pub, err := s.registry.Publisher(p.Platform)
		if err != nil || !adapter.SupportsMetrics(pub) {
			continue
		}
		values, err := pub.(adapter.MetricsReader).Metrics(ctx, p.PlatformPostID)
		if err != nil {
			s.logger.Warn("Failed to fetch post metrics", zap.String("post_id", p.ID), zap.Error(err))
			continue
		}
		raw, err := json.Marshal(values)
		if err != nil {
			continue
		}
		if err := s.repos.Posts.UpdateMetrics(ctx, p.ID, raw, now); err != nil {
			s.logger.Error("Failed to store post metrics", zap.String("post_id", p.ID), zap.Error(err))
			continue
		}
		updated++
		s.logger.Debug("Post metrics refreshed",
			zap.String("post_id", p.ID),
			zap.Float64("engagement_rate", models.EngagementRate(p.Platform, values)))
	}

	s.logger.Info("Updated social media metrics", zap.Int("posts", updated))
	return updated
}

// SyncAgentMetrics recomputes each active agent's success rate and average
// response time over the last day of finished interactions.
func (s *Scheduler) SyncAgentMetrics(ctx context.Context) int {
	agents, err := s.repos.Agents.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list agents", zap.Error(err))
		return 0
	}

	since := s.now().Add(-agentWindow)
	synced := 0
	for _, a := range agents {
		stats, err := s.repos.Interactions.StatsSince(ctx, a.ID, since)
		if err != nil {
			s.logger.Error("Failed to aggregate agent interactions", zap.String("agent_id", a.ID), zap.Error(err))
			continue
		}
		if stats.Total == 0 {
			continue
		}
		rate := models.SuccessRate(int(stats.Successful), int(stats.Total))
		if err := s.repos.Agents.UpdateWindowMetrics(ctx, a.ID, rate, stats.AvgResponseTime); err != nil {
			s.logger.Error("Failed to update agent metrics", zap.String("agent_id", a.ID), zap.Error(err))
			continue
		}
		synced++
	}
	return synced
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"launchpad/internal/models"
	"launchpad/internal/queue"
	"launchpad/internal/repository"
)

// ErrInvalid marks submissions rejected before anything was persisted.
var ErrInvalid = errors.New("invalid request")

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalid)
}

// Service creates job records and hands them to the queue.
type Service struct {
	repos      *Repos
	queue      queue.Queue
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(repos *Repos, q queue.Queue, defaultMaxRetries int, logger *zap.Logger) *Service {
	if defaultMaxRetries <= 0 {
		defaultMaxRetries = models.DefaultMaxRetries
	}
	return &Service{
		repos:      repos,
		queue:      q,
		maxRetries: defaultMaxRetries,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) retriesFor(v *int) (int, error) {
	if v == nil {
		return s.maxRetries, nil
	}
	if *v < 0 {
		return 0, invalidf("max_retries must not be negative")
	}
	return *v, nil
}

// CreatePost stores a post. A future scheduled time schedules it, PublishNow
// submits it right away, otherwise it stays a draft.
func (s *Service) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.SocialPost, error) {
	if !req.Platform.Valid() {
		return nil, invalidf("unsupported platform %q", req.Platform)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalidf("content is required")
	}
	maxRetries, err := s.retriesFor(req.MaxRetries)
	if err != nil {
		return nil, err
	}
	postType := req.PostType
	if postType == "" {
		postType = "TEXT"
	}

	post := &models.SocialPost{
		UserID:     req.UserID,
		CampaignID: req.CampaignID,
		Platform:   req.Platform,
		PostType:   postType,
		Content:    req.Content,
		MediaURLs:  datatypes.JSONSlice[string](req.MediaURLs),
		Status:     models.StatusDraft,
		MaxRetries: models.Retries(maxRetries),
	}
	if err := s.repos.Posts.Create(ctx, post); err != nil {
		return nil, errors.Wrap(err, "create post")
	}

	switch {
	case req.ScheduledTime != nil && req.ScheduledTime.After(s.now()):
		if err := s.SchedulePost(ctx, post, *req.ScheduledTime, req.Timezone); err != nil {
			return nil, err
		}
	case req.PublishNow || req.ScheduledTime != nil:
		// A scheduled time already in the past publishes immediately.
		if err := s.submit(ctx, post.ID); err != nil {
			return nil, err
		}
	}
	return post, nil
}

// SchedulePost binds the post to a due time through a schedule entry.
func (s *Service) SchedulePost(ctx context.Context, post *models.SocialPost, at time.Time, timezone string) error {
	entry := &models.PostSchedule{
		ScheduledTime: at,
		Timezone:      timezone,
	}
	if err := s.repos.Schedules.SchedulePost(ctx, post, entry); err != nil {
		return errors.Wrapf(err, "schedule post %s", post.ID)
	}
	s.logger.Info("Post scheduled",
		zap.String("post_id", post.ID),
		zap.String("platform", string(post.Platform)),
		zap.Time("scheduled_time", entry.ScheduledTime))
	return nil
}

// SubmitPost enqueues an existing post for immediate publishing.
func (s *Service) SubmitPost(ctx context.Context, postID string) (*models.SocialPost, error) {
	post, err := s.repos.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status.IsTerminal() {
		return nil, errors.Mark(errors.Newf("post %s is already %s", post.ID, post.Status), repository.ErrConflict)
	}
	if err := s.submit(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) submit(ctx context.Context, postID string) error {
	t, err := s.queue.Enqueue(ctx, TaskPublishPost, postID)
	if err != nil {
		msg := "submission failed: " + err.Error()
		if ferr := s.repos.Posts.FailByID(ctx, postID, msg); ferr != nil {
			s.logger.Error("Failed to mark unsubmitted post as failed", zap.String("post_id", postID), zap.Error(ferr))
		}
		return errors.Wrapf(err, "enqueue post %s", postID)
	}
	s.logger.Info("Post submitted", zap.String("post_id", postID), zap.String("task_id", t.ID))
	return nil
}

// BulkResult reports the outcome of one item of a bulk submission.
type BulkResult struct {
	Index int                `json:"index"`
	Post  *models.SocialPost `json:"post,omitempty"`
	Error string             `json:"error,omitempty"`
}

// BulkSchedulePosts creates each post independently; one bad item does not
// stop the rest.
func (s *Service) BulkSchedulePosts(ctx context.Context, userID string, reqs []models.CreatePostRequest) []BulkResult {
	out := make([]BulkResult, 0, len(reqs))
	for i, req := range reqs {
		if req.UserID == "" {
			req.UserID = userID
		}
		post, err := s.CreatePost(ctx, req)
		if err != nil {
			s.logger.Warn("Bulk schedule item failed", zap.Int("index", i), zap.Error(err))
			out = append(out, BulkResult{Index: i, Error: err.Error()})
			continue
		}
		out = append(out, BulkResult{Index: i, Post: post})
	}
	return out
}

// SubmitGeneration stores an AI interaction for the active agent of the
// requested type and enqueues it.
func (s *Service) SubmitGeneration(ctx context.Context, req models.CreateInteractionRequest) (*models.AIInteraction, error) {
	i, err := s.newInteraction(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Interactions.Create(ctx, i); err != nil {
		return nil, errors.Wrap(err, "create interaction")
	}
	if err := s.enqueueGeneration(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// BatchGenerate stores one interaction per prompt in a single transaction and
// enqueues each of them.
func (s *Service) BatchGenerate(ctx context.Context, req models.BatchGenerateRequest) ([]*models.AIInteraction, error) {
	if len(req.Prompts) == 0 {
		return nil, invalidf("prompts are required")
	}
	items := make([]*models.AIInteraction, 0, len(req.Prompts))
	for _, p := range req.Prompts {
		i, err := s.newInteraction(ctx, models.CreateInteractionRequest{
			UserID:    req.UserID,
			AgentType: req.AgentType,
			Prompt:    p,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := s.repos.Interactions.CreateBatch(ctx, items); err != nil {
		return nil, errors.Wrap(err, "create interactions")
	}

	var failed int
	for _, i := range items {
		if err := s.enqueueGeneration(ctx, i); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return items, errors.Newf("%d of %d interactions could not be submitted", failed, len(items))
	}
	return items, nil
}

// GenerateCampaignContent requests one marketing text per campaign platform
// that has a content template.
func (s *Service) GenerateCampaignContent(ctx context.Context, campaignID string) ([]*models.AIInteraction, error) {
	c, err := s.repos.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !c.UseAIContent {
		s.logger.Info("AI content disabled for campaign", zap.String("campaign_id", c.ID))
		return nil, nil
	}

	var out []*models.AIInteraction
	for _, p := range c.Platforms {
		platform := models.Platform(p)
		tmpl := c.Template(platform)
		if tmpl == "" {
			continue
		}
		i, err := s.SubmitGeneration(ctx, models.CreateInteractionRequest{
			UserID:     c.UserID,
			AgentType:  models.AgentMarketing,
			Prompt:     campaignPrompt(c, platform, tmpl),
			CampaignID: c.ID,
			Platform:   platform,
			Context: map[string]interface{}{
				"campaign_id":   c.ID,
				"platform":      p,
				"campaign_type": "social_media",
			},
		})
		if err != nil {
			return out, errors.Wrapf(err, "campaign %s platform %s", c.ID, p)
		}
		out = append(out, i)
	}
	s.logger.Info("Queued content generation for campaign",
		zap.String("campaign_id", c.ID),
		zap.Int("interactions", len(out)))
	return out, nil
}

func campaignPrompt(c *models.Campaign, p models.Platform, tmpl string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s post for the campaign: %s\n\n", p, c.Name)
	fmt.Fprintf(&b, "Campaign Description: %s\n", c.Description)
	fmt.Fprintf(&b, "Tone: %s\n", c.AITone)
	fmt.Fprintf(&b, "Guidelines: %s\n\n", c.AIGuidelines)
	fmt.Fprintf(&b, "Template: %s\n", tmpl)
	return b.String()
}

func (s *Service) newInteraction(ctx context.Context, req models.CreateInteractionRequest) (*models.AIInteraction, error) {
	if !req.AgentType.Valid() {
		return nil, invalidf("unsupported agent type %q", req.AgentType)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, invalidf("prompt is required")
	}
	if req.Platform != "" && !req.Platform.Valid() {
		return nil, invalidf("unsupported platform %q", req.Platform)
	}
	maxRetries, err := s.retriesFor(req.MaxRetries)
	if err != nil {
		return nil, err
	}
	agent, err := s.repos.Agents.FindActiveByType(ctx, req.AgentType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalidf("no active %s agent", req.AgentType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find agent")
	}

	var rawCtx datatypes.JSON
	if len(req.Context) > 0 {
		b, err := json.Marshal(req.Context)
		if err != nil {
			return nil, invalidf("context is not serializable: %v", err)
		}
		rawCtx = b
	}

	return &models.AIInteraction{
		UserID:      req.UserID,
		AgentID:     agent.ID,
		AgentType:   agent.AgentType,
		Prompt:      req.Prompt,
		Context:     rawCtx,
		CampaignID:  req.CampaignID,
		Platform:    req.Platform,
		Status:      models.StatusScheduled,
		MaxRetries:  models.Retries(maxRetries),
		Temperature: agent.Temperature,
		MaxTokens:   agent.MaxTokens,
	}, nil
}

func (s *Service) enqueueGeneration(ctx context.Context, i *models.AIInteraction) error {
	t, err := s.queue.Enqueue(ctx, TaskGenerateContent, i.ID)
	if err != nil {
		msg := "submission failed: " + err.Error()
		if ferr := s.repos.Interactions.MarkFailed(ctx, i.State(), msg); ferr != nil {
			s.logger.Error("Failed to mark unsubmitted interaction as failed", zap.String("interaction_id", i.ID), zap.Error(ferr))
		}
		return errors.Wrapf(err, "enqueue interaction %s", i.ID)
	}
	s.logger.Info("Interaction submitted",
		zap.String("interaction_id", i.ID),
		zap.String("agent_type", string(i.AgentType)),
		zap.String("task_id", t.ID))
	return nil
}

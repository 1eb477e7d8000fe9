package tasks

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"launchpad/internal/adapter"
	"launchpad/internal/models"
	"launchpad/internal/queue"
	"launchpad/internal/repository"
)

// HandleGenerate runs one AI generation request.
func (d *Dispatcher) HandleGenerate(ctx context.Context, t *queue.Task) error {
	return d.run(ctx, t, &generateJob{d: d})
}

type generateJob struct {
	d           *Dispatcher
	interaction *models.AIInteraction
	agent       *models.AIAgent
}

func (j *generateJob) kind() string { return "interaction" }

func (j *generateJob) load(ctx context.Context, id string) (models.JobState, error) {
	i, err := j.d.repos.Interactions.FindByID(ctx, id)
	if err != nil {
		return models.JobState{}, err
	}
	j.interaction = i
	return i.State(), nil
}

func (j *generateJob) begin(ctx context.Context, st models.JobState) (models.JobState, error) {
	return j.d.repos.Interactions.BeginAttempt(ctx, st)
}

func (j *generateJob) resolveAgent(ctx context.Context) (*models.AIAgent, error) {
	if j.agent != nil {
		return j.agent, nil
	}
	var (
		a   *models.AIAgent
		err error
	)
	if j.interaction.AgentID != "" {
		a, err = j.d.repos.Agents.FindByID(ctx, j.interaction.AgentID)
	} else {
		a, err = j.d.repos.Agents.FindActiveByType(ctx, j.interaction.AgentType)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, adapter.Permanentf("no agent for interaction %s (%s)", j.interaction.ID, j.interaction.AgentType)
	}
	if err != nil {
		return nil, adapter.Transient(errors.Wrap(err, "load agent"))
	}
	j.agent = a
	return a, nil
}

func (j *generateJob) perform(ctx context.Context, st models.JobState) error {
	agent, err := j.resolveAgent(ctx)
	if err != nil {
		return err
	}
	gen, err := j.d.registry.Generator(agent.AgentType)
	if err != nil {
		return err
	}

	req := adapter.GenerateRequest{
		Prompt:       j.interaction.Prompt,
		SystemPrompt: agent.SystemPrompt,
		Model:        agent.Model,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
	}
	if j.interaction.Temperature > 0 {
		req.Temperature = j.interaction.Temperature
	}
	if j.interaction.MaxTokens > 0 {
		req.MaxTokens = j.interaction.MaxTokens
	}

	started := j.d.now()
	res, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	finished := j.d.now()
	elapsed := finished.Sub(started).Seconds()

	err = j.d.repos.Interactions.MarkCompleted(ctx, st, repository.GenerationResult{
		Response:     res.Text,
		ModelUsed:    res.Model,
		TokensUsed:   res.TokensUsed,
		Cost:         res.Cost,
		ResponseTime: elapsed,
		CompletedAt:  finished,
	})
	if err != nil {
		return j.d.persistErr(err)
	}

	j.recordAgent(ctx, agent.ID, true, elapsed)
	j.createDraftPost(ctx, agent, res.Text)
	return nil
}

func (j *generateJob) retry(ctx context.Context, st models.JobState, next time.Time, msg string) (models.JobState, error) {
	return j.d.repos.Interactions.MarkRetry(ctx, st, next, msg)
}

func (j *generateJob) fail(ctx context.Context, st models.JobState, msg string) error {
	return j.d.repos.Interactions.MarkFailed(ctx, st, msg)
}

func (j *generateJob) failed(ctx context.Context, _ models.JobState, _ string) {
	agentID := j.interaction.AgentID
	if j.agent != nil {
		agentID = j.agent.ID
	}
	if agentID == "" {
		return
	}
	j.recordAgent(ctx, agentID, false, 0)
}

// Follow-ups run after the record is terminal; their failures are logged only.

func (j *generateJob) recordAgent(ctx context.Context, agentID string, success bool, responseTime float64) {
	if err := j.d.repos.Agents.RecordOutcome(ctx, agentID, success, responseTime, j.d.now()); err != nil {
		j.d.logger.Error("Failed to update agent metrics",
			zap.String("agent_id", agentID),
			zap.String("interaction_id", j.interaction.ID),
			zap.Error(err))
	}
}

func (j *generateJob) createDraftPost(ctx context.Context, agent *models.AIAgent, text string) {
	i := j.interaction
	if i.CampaignID == "" || !i.Platform.Valid() {
		return
	}
	post := &models.SocialPost{
		UserID:        i.UserID,
		CampaignID:    i.CampaignID,
		Platform:      i.Platform,
		PostType:      "TEXT",
		Content:       text,
		Status:        models.StatusDraft,
		IsAIGenerated: true,
		AIPrompt:      i.Prompt,
		AIAgentUsed:   agent.Name,
	}
	if err := j.d.repos.Posts.Create(ctx, post); err != nil {
		j.d.logger.Error("Failed to create AI generated draft post",
			zap.String("interaction_id", i.ID),
			zap.String("campaign_id", i.CampaignID),
			zap.Error(err))
		return
	}
	j.d.logger.Info("Created AI generated draft post",
		zap.String("post_id", post.ID),
		zap.String("interaction_id", i.ID),
		zap.String("platform", string(i.Platform)))
}

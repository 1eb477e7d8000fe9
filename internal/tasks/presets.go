package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"launchpad/internal/models"
)

// LaunchGuidance asks the launch guide agent for advice on one launch step.
func (s *Service) LaunchGuidance(ctx context.Context, req models.LaunchGuidanceRequest) (*models.AIInteraction, error) {
	step := strings.TrimSpace(req.Step)
	if step == "" {
		return nil, invalidf("step is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Provide guidance for the %s phase of token launch:\n\n", step)
	fmt.Fprintf(&b, "User Profile: %s\n\n", compactJSON(req.UserData))
	b.WriteString("Give specific, actionable advice including:\n")
	b.WriteString("1. What to do in this step\n")
	b.WriteString("2. Best practices\n")
	b.WriteString("3. Common mistakes to avoid\n")
	b.WriteString("4. Tools and resources needed\n")
	b.WriteString("5. Success criteria\n\n")
	b.WriteString("Tailor advice to user's experience level.\n")

	i, err := s.SubmitGeneration(ctx, models.CreateInteractionRequest{
		UserID:    req.UserID,
		AgentType: models.AgentLaunchGuide,
		Prompt:    b.String(),
		Context: map[string]interface{}{
			"task":      "launch_guidance",
			"step":      step,
			"user_data": req.UserData,
		},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Launch guidance queued", zap.String("user_id", req.UserID), zap.String("step", step))
	return i, nil
}

// ModerateContent asks the community agent to check user content against the
// community guidelines.
func (s *Service) ModerateContent(ctx context.Context, req models.ModerationRequest) (*models.AIInteraction, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalidf("content is required")
	}

	var b strings.Builder
	b.WriteString("Analyze this content for community guidelines violations:\n\n")
	fmt.Fprintf(&b, "Content: %s\n\n", req.Content)
	b.WriteString("Check for:\n")
	b.WriteString("1. Spam or promotional content\n")
	b.WriteString("2. Offensive language\n")
	b.WriteString("3. Misinformation\n")
	b.WriteString("4. Appropriate topic relevance\n\n")
	b.WriteString("Respond with:\n")
	b.WriteString("- approved: true/false\n")
	b.WriteString("- reasoning: explanation\n")
	b.WriteString("- suggestions: improvements if needed\n")

	i, err := s.SubmitGeneration(ctx, models.CreateInteractionRequest{
		UserID:    req.UserID,
		AgentType: models.AgentCommunity,
		Prompt:    b.String(),
		Context: map[string]interface{}{
			"task":       "content_moderation",
			"content_id": req.ContentID,
			"content":    req.Content,
		},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Content moderation queued", zap.String("content_id", req.ContentID))
	return i, nil
}

// AnswerQuestion asks the community agent to answer a member's question.
func (s *Service) AnswerQuestion(ctx context.Context, req models.QuestionRequest) (*models.AIInteraction, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, invalidf("question is required")
	}

	var b strings.Builder
	b.WriteString("As a helpful community manager for AI LaunchPad, answer this question:\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Provide a helpful, accurate, and friendly response. If you don't know something,\n")
	b.WriteString("say so and suggest where they might find the answer.\n")

	// Caller context first so the task keys always win.
	genCtx := make(map[string]interface{}, len(req.Context)+3)
	for k, v := range req.Context {
		genCtx[k] = v
	}
	genCtx["task"] = "community_qa"
	genCtx["question"] = question
	genCtx["question_id"] = req.QuestionID

	i, err := s.SubmitGeneration(ctx, models.CreateInteractionRequest{
		UserID:    req.UserID,
		AgentType: models.AgentCommunity,
		Prompt:    b.String(),
		Context:   genCtx,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Community question queued", zap.String("question_id", req.QuestionID))
	return i, nil
}

func compactJSON(v map[string]interface{}) string {
	if len(v) == 0 {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

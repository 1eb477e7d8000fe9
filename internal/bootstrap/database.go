package bootstrap

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// MigrateAndSeed ensures required tables exist and inserts the default agents.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		// Job records
		&models.SocialPost{},
		&models.AIInteraction{},
		// Scheduling
		&models.PostSchedule{},
		// Supporting entities
		&models.AIAgent{},
		&models.Campaign{},
	}
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, agent := range defaultAgents() {
			if err := ensureAgent(tx, agent); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureAgent(tx *gorm.DB, agent models.AIAgent) error {
	var count int64
	if err := tx.Model(&models.AIAgent{}).Where("agent_type = ?", agent.AgentType).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	agent.ID = uuid.NewString()
	return tx.Create(&agent).Error
}

func defaultAgents() []models.AIAgent {
	return []models.AIAgent{
		{
			Name:         "Marketing Specialist",
			AgentType:    models.AgentMarketing,
			Description:  "Expert in token marketing, social media campaigns, and market analysis. Helps create compelling content and marketing strategies.",
			SystemPrompt: "You are a cryptocurrency marketing expert with deep knowledge of token launches, social media marketing, and market analysis. Provide strategic, actionable marketing advice.",
			Model:        "gemini-pro",
			Temperature:  0.7,
			MaxTokens:    1000,
			Status:       models.AgentActive,
		},
		{
			Name:         "Community Manager",
			AgentType:    models.AgentCommunity,
			Description:  "Manages community interactions, answers questions, and moderates content. Builds engagement and handles user support.",
			SystemPrompt: "You are a friendly and knowledgeable community manager for a token launchpad platform. Help users with questions, provide guidance, and maintain a positive community environment.",
			Model:        "gemini-pro",
			Temperature:  0.6,
			MaxTokens:    800,
			Status:       models.AgentActive,
		},
		{
			Name:         "Analytics Expert",
			AgentType:    models.AgentAnalytics,
			Description:  "Analyzes platform data, generates insights, and predicts launch success. Provides data-driven recommendations.",
			SystemPrompt: "You are a data analytics expert specializing in cryptocurrency and token launch metrics. Analyze data objectively and provide actionable insights.",
			Model:        "gemini-pro",
			Temperature:  0.3,
			MaxTokens:    1200,
			Status:       models.AgentActive,
		},
		{
			Name:         "Launch Guide",
			AgentType:    models.AgentLaunchGuide,
			Description:  "Provides step-by-step guidance through token launch process. Offers personalized advice based on project needs.",
			SystemPrompt: "You are an experienced token launch consultant. Guide users through each phase of their token launch with detailed, practical advice tailored to their experience level.",
			Model:        "gemini-pro",
			Temperature:  0.5,
			MaxTokens:    1500,
			Status:       models.AgentActive,
		},
	}
}

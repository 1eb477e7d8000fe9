package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// CampaignRepository handles social_media_campaigns table operations.
type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = "DRAFT"
	}
	if c.AITone == "" {
		c.AITone = "professional"
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

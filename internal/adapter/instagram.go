package adapter

import (
	"context"

	"github.com/cockroachdb/errors"

	"launchpad/internal/models"
	"launchpad/internal/pkg/httpclient"
)

// InstagramPublisher publishes an image post in two steps: create a media
// container, then publish it.
type InstagramPublisher struct {
	client      *httpclient.Client
	baseURL     string
	accountID   string
	accessToken string
}

func NewInstagramPublisher(baseURL, accountID, accessToken string) *InstagramPublisher {
	return &InstagramPublisher{
		client:      httpclient.New(),
		baseURL:     baseURL,
		accountID:   accountID,
		accessToken: accessToken,
	}
}

func (i *InstagramPublisher) Platform() models.Platform { return models.PlatformInstagram }

func (i *InstagramPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, Permanentf("instagram: a post requires at least one media url")
	}

	var container struct {
		ID string `json:"id"`
	}
	_, err := i.client.PostForm(ctx, joinURL(i.baseURL, i.accountID, "media"), map[string]string{
		"image_url":    req.MediaURLs[0],
		"caption":      req.Content,
		"access_token": i.accessToken,
	}, &container)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "instagram: create container"))
	}
	if container.ID == "" {
		return nil, Transient(errors.New("instagram: response without container id"))
	}

	var published struct {
		ID string `json:"id"`
	}
	_, err = i.client.PostForm(ctx, joinURL(i.baseURL, i.accountID, "media_publish"), map[string]string{
		"creation_id":  container.ID,
		"access_token": i.accessToken,
	}, &published)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "instagram: publish container"))
	}
	if published.ID == "" {
		return nil, Transient(errors.New("instagram: response without media id"))
	}
	return &PublishResult{
		ExternalID: published.ID,
		URL:        "https://www.instagram.com/p/" + published.ID,
	}, nil
}

func (i *InstagramPublisher) Metrics(ctx context.Context, externalID string) (map[string]float64, error) {
	return graphInsights(ctx, i.client, joinURL(i.baseURL, externalID, "insights"), i.accessToken,
		"impressions,reach,engagement")
}

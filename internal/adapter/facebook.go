package adapter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"launchpad/internal/models"
	"launchpad/internal/pkg/httpclient"
)

// FacebookPublisher posts to a page feed through the Graph API.
type FacebookPublisher struct {
	client      *httpclient.Client
	baseURL     string
	pageID      string
	accessToken string
}

func NewFacebookPublisher(baseURL, pageID, accessToken string) *FacebookPublisher {
	return &FacebookPublisher{
		client:      httpclient.New(),
		baseURL:     baseURL,
		pageID:      pageID,
		accessToken: accessToken,
	}
}

func (f *FacebookPublisher) Platform() models.Platform { return models.PlatformFacebook }

func (f *FacebookPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	form := map[string]string{
		"message":      req.Content,
		"access_token": f.accessToken,
	}
	if len(req.MediaURLs) > 0 {
		form["link"] = req.MediaURLs[0]
	}

	var out struct {
		ID string `json:"id"`
	}
	if _, err := f.client.PostForm(ctx, joinURL(f.baseURL, f.pageID, "feed"), form, &out); err != nil {
		return nil, Classify(errors.Wrap(err, "facebook: create post"))
	}
	if out.ID == "" {
		return nil, Transient(errors.New("facebook: response without post id"))
	}
	return &PublishResult{
		ExternalID: out.ID,
		URL:        "https://www.facebook.com/" + out.ID,
	}, nil
}

func (f *FacebookPublisher) Metrics(ctx context.Context, externalID string) (map[string]float64, error) {
	return graphInsights(ctx, f.client, joinURL(f.baseURL, externalID, "insights"), f.accessToken,
		"post_impressions,post_engaged_users,post_clicks")
}

type graphInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value float64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// graphInsights reads Graph API insights and names them after the engagement
// keys used elsewhere.
func graphInsights(ctx context.Context, client *httpclient.Client, endpoint, token, metrics string) (map[string]float64, error) {
	var out graphInsightsResponse
	_, err := client.GetJSON(ctx, endpoint, map[string]string{
		"metric":       metrics,
		"access_token": token,
	}, &out)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "graph insights"))
	}

	result := map[string]float64{}
	for _, d := range out.Data {
		if len(d.Values) == 0 {
			continue
		}
		result[insightKey(d.Name)] = d.Values[0].Value
	}
	return result, nil
}

func insightKey(name string) string {
	switch name {
	case "post_impressions", "impressions":
		return "impressions"
	case "post_engaged_users", "engagement":
		return "engaged_users"
	case "post_clicks":
		return "clicks"
	}
	return strings.TrimPrefix(name, "post_")
}

package adapter

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"

	"launchpad/internal/models"
	"launchpad/internal/pkg/httpclient"
)

// LinkedInPublisher shares text posts as the authenticated member.
type LinkedInPublisher struct {
	client *httpclient.Client
}

func NewLinkedInPublisher(baseURL, accessToken string) *LinkedInPublisher {
	return &LinkedInPublisher{
		client: httpclient.New().
			WithBaseURL(baseURL).
			WithBearerToken(accessToken).
			WithHeader("X-Restli-Protocol-Version", "2.0.0"),
	}
}

func (l *LinkedInPublisher) Platform() models.Platform { return models.PlatformLinkedIn }

func (l *LinkedInPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	var me struct {
		ID string `json:"id"`
	}
	if _, err := l.client.GetJSON(ctx, "/people/~", nil, &me); err != nil {
		return nil, Classify(errors.Wrap(err, "linkedin: profile"))
	}
	if me.ID == "" {
		return nil, Permanentf("linkedin: profile without id")
	}

	body := map[string]interface{}{
		"author":         "urn:li:person:" + me.ID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary":    map[string]string{"text": req.Content},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var out struct {
		ID string `json:"id"`
	}
	resp, err := l.client.PostJSON(ctx, "/ugcPosts", body, &out)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "linkedin: create post"))
	}
	id := resp.Header().Get("X-Restli-Id")
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return nil, Transient(errors.New("linkedin: response without post id"))
	}
	return &PublishResult{
		ExternalID: id,
		URL:        "https://www.linkedin.com/feed/update/" + id,
	}, nil
}

// Metrics reads likes and comments of a share. LinkedIn does not expose
// impressions for member posts, so the engagement rate stays zero.
func (l *LinkedInPublisher) Metrics(ctx context.Context, externalID string) (map[string]float64, error) {
	var out struct {
		LikesSummary struct {
			TotalLikes float64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalFirstLevelComments float64 `json:"totalFirstLevelComments"`
		} `json:"commentsSummary"`
	}
	_, err := l.client.GetJSON(ctx, "/socialActions/"+url.PathEscape(externalID), nil, &out)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "linkedin: social actions"))
	}
	return map[string]float64{
		"likes":    out.LikesSummary.TotalLikes,
		"comments": out.CommentsSummary.TotalFirstLevelComments,
	}, nil
}

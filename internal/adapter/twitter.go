package adapter

import (
	"context"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"launchpad/internal/models"
	"launchpad/internal/pkg/httpclient"
)

const twitterMaxChars = 280

// TwitterPublisher posts tweets through the v2 API and uploads media through
// the v1.1 upload endpoint.
type TwitterPublisher struct {
	client    *httpclient.Client
	uploadURL string
}

func NewTwitterPublisher(baseURL, uploadURL, bearerToken string) *TwitterPublisher {
	return &TwitterPublisher{
		client:    httpclient.New().WithBaseURL(baseURL).WithBearerToken(bearerToken),
		uploadURL: strings.TrimRight(uploadURL, "/"),
	}
}

func (t *TwitterPublisher) Platform() models.Platform { return models.PlatformTwitter }

func (t *TwitterPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, Permanentf("twitter: empty content")
	}
	if utf8.RuneCountInString(req.Content) > twitterMaxChars {
		return nil, Permanentf("twitter: content exceeds %d characters", twitterMaxChars)
	}

	body := map[string]interface{}{"text": req.Content}
	if len(req.MediaURLs) > 0 {
		ids := make([]string, 0, len(req.MediaURLs))
		for _, u := range req.MediaURLs {
			id, err := t.uploadMedia(ctx, u)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		body["media"] = map[string]interface{}{"media_ids": ids}
	}

	var out struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if _, err := t.client.PostJSON(ctx, "/tweets", body, &out); err != nil {
		return nil, Classify(errors.Wrap(err, "twitter: create tweet"))
	}
	if out.Data.ID == "" {
		return nil, Transient(errors.New("twitter: response without tweet id"))
	}
	return &PublishResult{
		ExternalID: out.Data.ID,
		URL:        "https://twitter.com/i/web/status/" + out.Data.ID,
	}, nil
}

func (t *TwitterPublisher) uploadMedia(ctx context.Context, mediaURL string) (string, error) {
	data, err := t.client.Download(ctx, mediaURL)
	if err != nil {
		return "", Classify(errors.Wrapf(err, "twitter: download media %s", mediaURL))
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	_, err = t.client.PostFile(ctx, t.uploadURL+"/media/upload.json", "media", path.Base(mediaURL), bytesReader(data), &out)
	if err != nil {
		return "", Classify(errors.Wrap(err, "twitter: upload media"))
	}
	if out.MediaIDString == "" {
		return "", Transient(errors.New("twitter: upload returned no media id"))
	}
	return out.MediaIDString, nil
}

// Metrics reads the public metrics of a tweet.
func (t *TwitterPublisher) Metrics(ctx context.Context, externalID string) (map[string]float64, error) {
	var out struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    float64 `json:"retweet_count"`
				ReplyCount      float64 `json:"reply_count"`
				LikeCount       float64 `json:"like_count"`
				QuoteCount      float64 `json:"quote_count"`
				ImpressionCount float64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	_, err := t.client.GetJSON(ctx, "/tweets/"+externalID, map[string]string{"tweet.fields": "public_metrics"}, &out)
	if err != nil {
		return nil, Classify(errors.Wrap(err, "twitter: tweet metrics"))
	}
	m := out.Data.PublicMetrics
	return map[string]float64{
		"impressions": m.ImpressionCount,
		"likes":       m.LikeCount,
		"retweets":    m.RetweetCount,
		"replies":     m.ReplyCount,
		"quotes":      m.QuoteCount,
	}, nil
}

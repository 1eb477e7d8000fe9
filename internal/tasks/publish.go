package tasks

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"launchpad/internal/adapter"
	"launchpad/internal/models"
	"launchpad/internal/queue"
	"launchpad/internal/repository"
)

// HandlePublish publishes one social post.
func (d *Dispatcher) HandlePublish(ctx context.Context, t *queue.Task) error {
	return d.run(ctx, t, &publishJob{d: d})
}

type publishJob struct {
	d    *Dispatcher
	post *models.SocialPost
}

func (j *publishJob) kind() string { return "post" }

func (j *publishJob) load(ctx context.Context, id string) (models.JobState, error) {
	p, err := j.d.repos.Posts.FindByID(ctx, id)
	if err != nil {
		return models.JobState{}, err
	}
	j.post = p
	return p.State(), nil
}

func (j *publishJob) begin(ctx context.Context, st models.JobState) (models.JobState, error) {
	return j.d.repos.Posts.BeginAttempt(ctx, st)
}

func (j *publishJob) perform(ctx context.Context, st models.JobState) error {
	pub, err := j.d.registry.Publisher(j.post.Platform)
	if err != nil {
		return err
	}
	res, err := pub.Publish(ctx, adapter.PublishRequest{
		Content:   j.post.Content,
		MediaURLs: []string(j.post.MediaURLs),
		PostType:  j.post.PostType,
	})
	if err != nil {
		return err
	}
	if res == nil || res.ExternalID == "" {
		return adapter.Transient(errors.Newf("%s publish returned no post id", j.post.Platform))
	}

	err = j.d.repos.Posts.MarkPublished(ctx, st, repository.PublishResult{
		PlatformPostID: res.ExternalID,
		PlatformURL:    res.URL,
		PublishedAt:    j.d.now(),
	})
	if err != nil {
		return j.d.persistErr(err)
	}
	return nil
}

func (j *publishJob) retry(ctx context.Context, st models.JobState, next time.Time, msg string) (models.JobState, error) {
	return j.d.repos.Posts.MarkRetry(ctx, st, next, msg)
}

func (j *publishJob) fail(ctx context.Context, st models.JobState, msg string) error {
	return j.d.repos.Posts.MarkFailed(ctx, st, msg)
}

func (j *publishJob) failed(context.Context, models.JobState, string) {}

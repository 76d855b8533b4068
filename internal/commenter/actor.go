package commenter

import (
	"context"

	"threadwatch/internal/logger"
	"threadwatch/internal/models"
)

// Actor submits a comment on a post. Implementations own the session with
// the upstream site; the runner only cares whether the attempt succeeded.
type Actor interface {
	Comment(ctx context.Context, post *models.Post, text string) error
}

// DryRunActor logs the comment instead of posting it. Used until a real
// posting backend is wired, and for rehearsing queue behavior in staging.
type DryRunActor struct {
	logger logger.Logger
}

func NewDryRunActor(log logger.Logger) *DryRunActor {
	return &DryRunActor{logger: log}
}

func (a *DryRunActor) Comment(_ context.Context, post *models.Post, text string) error {
	a.logger.Info("Dry run: would comment",
		logger.String("channel", post.Channel),
		logger.String("post_id", post.PostID),
		logger.String("url", post.URL),
		logger.String("text", text),
	)
	return nil
}

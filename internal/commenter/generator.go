package commenter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"threadwatch/internal/models"
)

// Generator produces the comment text for a claimed post.
type Generator interface {
	Generate(ctx context.Context, post *models.Post) (string, error)
}

// channelMentionChance is how often a generated comment names the channel.
const channelMentionChance = 0.3

var defaultTemplates = []string{
	"Love this. Stuff like this is why I keep my kit ready",
	"This is exactly the kind of thing I needed to see today. Thanks for sharing!",
	"Solid post. Always appreciate seeing real-world examples like this.",
	"Can't wait to try this out myself. Great find!",
	"This is why I love this community. Practical and helpful.",
	"Bookmarking this for later. Really useful stuff here.",
	"Nice! This is the kind of content that keeps me coming back.",
	"Appreciate the share. Always learning something new here.",
}

// TemplateGenerator picks a random canned comment. Placeholder for a model
// backed generator behind the same interface.
type TemplateGenerator struct {
	templates []string
	rand      *rand.Rand
}

// NewTemplateGenerator returns a generator over the default template set.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{
		templates: defaultTemplates,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // variety, not crypto
	}
}

func (g *TemplateGenerator) Generate(_ context.Context, post *models.Post) (string, error) {
	comment := g.templates[g.rand.Intn(len(g.templates))]
	if g.rand.Float64() < channelMentionChance {
		comment = fmt.Sprintf("%s (r/%s)", comment, post.Channel)
	}
	return comment, nil
}

package source

import (
	"context"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// Submission adapts a creator's upload/submission list, ordered by
// pubtime. Unlike Favorite, ReleaseAt falls back to pubtime since
// VideoInfo.FavTime is never populated for this variant.
type Submission struct {
	base
}

func NewSubmission(vs *domain.VideoSource, ruleTree *rule.Node) *Submission {
	return &Submission{base: newBase(vs, ruleTree)}
}

func (s *Submission) Refresh(ctx context.Context, client Client) (Adapter, Stream, error) {
	return s, newPagedStream(client, s), nil
}

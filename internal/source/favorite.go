package source

import (
	"context"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// Favorite adapts a favorite-list VideoSource. Candidates are ordered by
// fav_time, newest first; ReleaseAt reads fav_time for this variant (see
// VideoInfo.ReleaseAt).
type Favorite struct {
	base
}

func NewFavorite(vs *domain.VideoSource, ruleTree *rule.Node) *Favorite {
	return &Favorite{base: newBase(vs, ruleTree)}
}

func (f *Favorite) Refresh(ctx context.Context, client Client) (Adapter, Stream, error) {
	return f, newPagedStream(client, f), nil
}

package source

import (
	"context"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// WatchLater adapts the user's watch-later queue. Its upstream list is
// comparatively small and unpaginated in practice, but the stream contract
// is identical to Favorite's.
type WatchLater struct {
	base
}

func NewWatchLater(vs *domain.VideoSource, ruleTree *rule.Node) *WatchLater {
	return &WatchLater{base: newBase(vs, ruleTree)}
}

func (w *WatchLater) Refresh(ctx context.Context, client Client) (Adapter, Stream, error) {
	return w, newPagedStream(client, w), nil
}

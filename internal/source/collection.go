package source

import (
	"context"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// Collection adapts a curated collection/playlist (a fixed, user-built
// list rather than an auto-growing feed). It still exposes a stream so
// refresh/ingest can treat it uniformly with the other four variants.
type Collection struct {
	base
}

func NewCollection(vs *domain.VideoSource, ruleTree *rule.Node) *Collection {
	return &Collection{base: newBase(vs, ruleTree)}
}

func (c *Collection) Refresh(ctx context.Context, client Client) (Adapter, Stream, error) {
	return c, newPagedStream(client, c), nil
}

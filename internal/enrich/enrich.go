// Package enrich implements the detail-fetch phase (spec.md §4.5): for
// every video still missing detail, fetch tags and the page list under a
// concurrency limit, then write pages, tags and should_download back in one
// transaction. The relation id is not written here; refresh stamps it when
// the row is first inserted.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/brackenfield/mediasync/internal/data/repos/sync"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/apierr"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/platform/logger"
	"github.com/brackenfield/mediasync/internal/rule"
	"github.com/brackenfield/mediasync/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Deps bundles the repos and transport collaborator one enrich run needs.
type Deps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Videos   sync.VideoRepo
	Pages    sync.PageRepo
	Client   source.Client
	RuleTree *rule.Node // nil means "always download" (spec.md §4.3)

	// Concurrency bounds how many videos are detail-fetched at once
	// (config.concurrent_limit.video, spec.md §4.5).
	Concurrency int
}

// Result summarizes one enrich run for the driver's logging.
type Result struct {
	Fetched   int
	Invalidated int
	Failed    int
}

// Run fetches detail for every row ListPendingDetail returns for sourceID,
// under deps.Concurrency concurrent workers (spec.md §4.5).
func Run(ctx context.Context, deps Deps, sourceID uuid.UUID) (Result, error) {
	res := Result{}
	if deps.Log == nil || deps.Videos == nil || deps.Pages == nil || deps.Client == nil {
		return res, fmt.Errorf("enrich: missing deps")
	}
	limit := deps.Concurrency
	if limit < 1 {
		limit = 1
	}

	rows, err := deps.Videos.ListPendingDetail(dbctx.Context{Ctx: ctx}, sourceID)
	if err != nil {
		return res, fmt.Errorf("enrich: list pending detail: %w", err)
	}
	if len(rows) == 0 {
		return res, nil
	}
	if deps.DB == nil {
		return res, fmt.Errorf("enrich: missing deps")
	}

	var fetched, invalidated, failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, v := range rows {
		v := v
		g.Go(func() error {
			outcome, err := fetchOne(gctx, deps, v)
			switch outcome {
			case outcomeFetched:
				atomic.AddInt32(&fetched, 1)
			case outcomeInvalidated:
				atomic.AddInt32(&invalidated, 1)
			case outcomeFailed:
				atomic.AddInt32(&failed, 1)
			}
			return err
		})
	}

	waitErr := g.Wait()
	res.Fetched = int(atomic.LoadInt32(&fetched))
	res.Invalidated = int(atomic.LoadInt32(&invalidated))
	res.Failed = int(atomic.LoadInt32(&failed))
	if waitErr != nil {
		return res, fmt.Errorf("enrich: %w", waitErr)
	}
	deps.Log.Info("enrich complete", "fetched", res.Fetched, "invalidated", res.Invalidated, "failed", res.Failed)
	return res, nil
}

type outcome int

const (
	outcomeFetched outcome = iota
	outcomeInvalidated
	outcomeFailed
)

// fetchOne fetches one video's detail and, on success, writes pages + video
// in a single transaction (spec.md §4.5 step 3: "Detail-fetch writes
// (pages + video) are transactional").
func fetchOne(ctx context.Context, deps Deps, v *domain.Video) (outcome, error) {
	detail, err := deps.Client.FetchDetail(ctx, v.BVID)
	if err != nil {
		if apierr.IsNotFound(err) {
			v.Valid = false
			if uerr := deps.Videos.UpdateDetail(dbctx.Context{Ctx: ctx}, v); uerr != nil {
				return outcomeFailed, fmt.Errorf("mark not-found %s: %w", v.BVID, uerr)
			}
			return outcomeInvalidated, nil
		}
		if apierr.IsRiskControl(err) {
			return outcomeFailed, err
		}
		deps.Log.Warn("detail fetch failed, row stays pending", "bvid", v.BVID, "err", err.Error())
		return outcomeFailed, nil
	}
	if detail.NotFound {
		v.Valid = false
		if err := deps.Videos.UpdateDetail(dbctx.Context{Ctx: ctx}, v); err != nil {
			return outcomeFailed, fmt.Errorf("mark not-found %s: %w", v.BVID, err)
		}
		return outcomeInvalidated, nil
	}

	pages := materializePages(v, detail)

	v.Tags = marshalTags(detail.Tags)
	v.SinglePage = detail.SinglePage
	v.SeasonID = detail.SeasonID
	v.EpID = detail.EpID
	v.ShareCopy = detail.ShareCopy
	v.Actors = detail.Actors

	shouldDownload, err := rule.Evaluate(deps.RuleTree, rule.Subject{Video: v, Tags: detail.Tags})
	if err != nil {
		return outcomeFailed, fmt.Errorf("evaluate rule for %s: %w", v.BVID, err)
	}
	v.ShouldDownload = shouldDownload

	err = deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if len(pages) > 0 {
			if err := deps.Pages.ReplaceForVideo(dbc, v.ID, pages); err != nil {
				return err
			}
		}
		return deps.Videos.UpdateDetail(dbc, v)
	})
	if err != nil {
		return outcomeFailed, fmt.Errorf("write detail for %s: %w", v.BVID, err)
	}
	return outcomeFetched, nil
}

// materializePages builds the page rows for one video's detail payload. For
// bangumi extras, page.name is overridden with video.show_title (spec.md
// §4.5 step 3) since the upstream page list carries no useful per-page name
// for a standalone extra.
func materializePages(v *domain.Video, detail source.Detail) []*domain.Page {
	out := make([]*domain.Page, 0, len(detail.Pages))
	overrideName := v.SourceType == domain.SourceTypeBangumi && v.IsBangumiExtra() && v.ShowTitle != ""
	for _, p := range detail.Pages {
		name := p.Name
		if overrideName {
			name = v.ShowTitle
		}
		out = append(out, &domain.Page{
			PID:      p.PID,
			CID:      p.CID,
			Name:     name,
			Duration: p.Duration,
			Width:    p.Width,
			Height:   p.Height,
			Image:    p.Image,
		})
	}
	return out
}

func marshalTags(tags []string) []byte {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return b
}

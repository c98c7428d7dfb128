// Package refresh implements the ingest phase (spec.md §4.4): drain a
// source's candidate stream until a full page falls behind the source's
// high-water mark, buffer accepted items into chunks of ten, upsert them,
// and advance the mark only once the whole scan succeeds.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/platform/logger"
	syncrepo "github.com/brackenfield/mediasync/internal/data/repos/sync"
	"github.com/brackenfield/mediasync/internal/source"
	"gorm.io/gorm"
)

// chunkSize mirrors the "chunks of ten" batching spec.md §4.4/§4.10 both
// describe for refresh and persistence writes.
const chunkSize = 10

// Deps bundles the repos and transport collaborators a Run needs, the way
// the teacher lineage's job steps take a Deps struct per stage.
type Deps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Sources syncrepo.VideoSourceRepo
	Videos  syncrepo.VideoRepo
	Client  source.Client
}

// Result reports what one source's refresh run accomplished, for the
// driver's summary logging.
type Result struct {
	Accepted     int
	Aborted      bool // stream error: hwm was not advanced
	NewHighWater time.Time
}

// Run drains a.Refresh's stream, page by page, applying the stop/filter
// predicates and writing accepted rows in chunks of ten (spec.md §4.4).
func Run(ctx context.Context, deps Deps, sourceRow *domain.VideoSource) (Result, error) {
	res := Result{}
	if deps.Log == nil || deps.Sources == nil || deps.Videos == nil || deps.Client == nil {
		return res, fmt.Errorf("refresh: missing deps")
	}

	a, err := source.New(sourceRow)
	if err != nil {
		return res, fmt.Errorf("refresh: build adapter: %w", err)
	}

	refreshed, stream, err := a.Refresh(ctx, deps.Client)
	if err != nil {
		return res, fmt.Errorf("refresh: %s: %w", refreshed.DisplayName(), err)
	}

	hwm := sourceRow.LatestRowAt
	maxSeen := hwm
	idx := 0
	var buffer []*domain.Video

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := deps.Videos.UpsertNew(dbctx.Context{Ctx: ctx}, buffer); err != nil {
			return err
		}
		res.Accepted += len(buffer)
		buffer = buffer[:0]
		return nil
	}

	for {
		page, ok, err := stream.NextPage(ctx)
		if err != nil {
			// Stream error: finish without advancing hwm so the next run
			// resumes from the same point (spec.md §4.4 step 5).
			res.Aborted = true
			return res, fmt.Errorf("refresh: %s: stream: %w", refreshed.DisplayName(), err)
		}
		if !ok {
			break
		}

		exhausted := pageIsExhausted(page, refreshed, hwm)

		for _, item := range page {
			releaseAt := item.ReleaseAt()
			if releaseAt.After(maxSeen) {
				maxSeen = releaseAt
			}
			if !refreshed.ShouldTake(idx, releaseAt, hwm) {
				continue
			}
			idx++
			if !refreshed.ShouldFilter(idx, item, hwm) {
				continue
			}
			v := videoFromCandidate(item)
			refreshed.SetRelationID(v)
			buffer = append(buffer, v)
			if len(buffer) >= chunkSize {
				if err := flush(); err != nil {
					res.Aborted = true
					return res, fmt.Errorf("refresh: %s: upsert: %w", refreshed.DisplayName(), err)
				}
			}
		}

		if exhausted {
			break
		}
	}

	if err := flush(); err != nil {
		res.Aborted = true
		return res, fmt.Errorf("refresh: %s: final upsert: %w", refreshed.DisplayName(), err)
	}

	res.NewHighWater = maxSeen
	if maxSeen.After(hwm) {
		if err := deps.Sources.AdvanceLatestRowAt(dbctx.Context{Ctx: ctx}, sourceRow.ID, maxSeen); err != nil {
			return res, fmt.Errorf("refresh: %s: advance hwm: %w", refreshed.DisplayName(), err)
		}
	}

	deps.Log.Info("refresh complete",
		"source", refreshed.DisplayName(),
		"accepted", res.Accepted,
		"high_water_mark", res.NewHighWater,
	)
	return res, nil
}

// pageIsExhausted reports whether every item on this page is already at or
// behind the high-water mark, i.e. nothing on the page would be taken. Only
// once a *whole* page is exhausted does the scan stop (spec.md §4.4): the
// upstream is paginated, and a concurrent insert can shift an item across a
// page boundary mid-scan, so stopping on the first stale item risks
// silently skipping one that lands later in the same page.
func pageIsExhausted(page []source.VideoInfo, a source.Adapter, hwm time.Time) bool {
	for i, item := range page {
		if a.ShouldTake(i, item.ReleaseAt(), hwm) {
			return false
		}
	}
	return true
}

func videoFromCandidate(item source.VideoInfo) *domain.Video {
	v := &domain.Video{
		BVID:      item.BVID,
		Name:      item.Name,
		UpperID:   item.UpperID,
		UpperName: item.UpperName,
		Cover:     item.Cover,
		PubTime:   item.PubTime,
		FavTime:   item.FavTime,
		Category:  item.Category,
		Valid:     true,
	}
	// SectionName is only populated for bangumi extras (spec.md §4.2); it
	// seeds section_title here so enrich's IsBangumiExtra classification
	// doesn't have to wait on a detail fetch that carries no section info.
	if item.SectionName != "" {
		v.SectionTitle = &item.SectionName
	}
	return v
}

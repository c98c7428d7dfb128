package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/pathplan"
	"github.com/brackenfield/mediasync/internal/platform/apierr"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/status"
	"golang.org/x/sync/errgroup"
)

// Page-level subtask indices (spec.md §4.7): poster/fanart, the video
// file, the page NFO, danmaku, and subtitles.
const (
	pageSubtaskPoster = iota
	pageSubtaskVideoFile
	pageSubtaskNFO
	pageSubtaskDanmaku
	pageSubtaskSubtitles

	pageSubtaskCount
)

// RunPages dispatches the page-level subtasks for every not-yet-finished
// page of v under a concurrency_limit.page-sized semaphore, then folds the
// minimum across every subtask field of every page into one aggregate
// (spec.md §4.7's aggregation law — "succeeded propagates only if every
// page fully succeeded") and returns that minimum, plus any risk-control
// error so the caller can abort the run. Aggregating only the video-file
// field would let a page whose danmaku/subtitle/poster/NFO subtask failed
// still report the parent video as fully succeeded, and that failure would
// never be retried — the original's workflow.rs explicitly folds all five
// fields of all pages for exactly this reason.
func RunPages(ctx context.Context, deps Deps, src *domain.VideoSource, v *domain.Video, pages []*domain.Page) (int, error) {
	if len(pages) == 0 {
		return status.StatusSucceeded, nil
	}
	limit := deps.Config.ConcurrentLimit.Page
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	var updated []*domain.Page
	var riskErr error

	for _, p := range pages {
		if status.Finished(p.DownloadStatus) {
			continue
		}
		mu.Lock()
		tripped := riskErr != nil
		mu.Unlock()
		if tripped {
			break
		}

		p := p
		g.Go(func() error {
			newStatus, perr := runOnePage(ctx, deps, src, v, p)
			p.DownloadStatus = newStatus
			if perr != nil && apierr.IsRiskControl(perr) {
				mu.Lock()
				if riskErr == nil {
					riskErr = perr
				}
				mu.Unlock()
			} else if perr != nil {
				deps.Log.Warn("page subtasks reported a non-fatal error",
					"video", v.Name, "pid", p.PID, "err", perr.Error())
			}
			mu.Lock()
			updated = append(updated, p)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(updated) > 0 {
		if err := deps.Pages.UpdateDownloadStatus(dbctx.Context{Ctx: ctx}, updated); err != nil {
			return minFieldAcrossPages(pages), fmt.Errorf("scheduler: batch update page status: %w", err)
		}
	}

	return minFieldAcrossPages(pages), riskErr
}

// minFieldAcrossPages folds the minimum value across every subtask field of
// every page, matching the original's `for status in separate_status {
// target_status = target_status.min(status) }` over each page's full field
// set, not just one subtask.
func minFieldAcrossPages(pages []*domain.Page) int {
	statuses := statusesOf(pages)
	min := status.StatusSucceeded
	for i := 0; i < pageSubtaskCount; i++ {
		if f := status.MinField(statuses, i); f < min {
			min = f
		}
	}
	return min
}

func statusesOf(pages []*domain.Page) []int32 {
	out := make([]int32, len(pages))
	for i, p := range pages {
		out[i] = p.DownloadStatus
	}
	return out
}

var pageSubtaskLabels = [pageSubtaskCount]string{
	pageSubtaskPoster:    "poster",
	pageSubtaskVideoFile: "video_file",
	pageSubtaskNFO:       "nfo",
	pageSubtaskDanmaku:   "danmaku",
	pageSubtaskSubtitles: "subtitles",
}

// runOnePage runs one page's five subtasks concurrently and folds their
// results into the page's bitfield (spec.md §4.7).
func runOnePage(ctx context.Context, deps Deps, src *domain.VideoSource, v *domain.Video, p *domain.Page) (int32, error) {
	shouldRun := status.ShouldRun(p.DownloadStatus)
	results := [5]status.Result{status.Skipped(), status.Skipped(), status.Skipped(), status.Skipped(), status.Skipped()}
	var mu sync.Mutex
	set := func(i int, r status.Result) {
		mu.Lock()
		results[i] = r
		mu.Unlock()
		publishSubtask(ctx, deps, src.DisplayName, titleOf(v), p.PID, pageSubtaskLabels[i], r)
	}

	var riskMu sync.Mutex
	var riskErr error
	reportRisk := func(err error) {
		if err == nil || !apierr.IsRiskControl(err) {
			return
		}
		riskMu.Lock()
		if riskErr == nil {
			riskErr = err
		}
		riskMu.Unlock()
	}

	pp := pathplan.PlanPage(src.Path, v, p, videoPathArgs(ctx, deps, v))
	shape := pathplan.ClassifyShape(v)
	fanart := shape == pathplan.ShapeSinglePage || shape == pathplan.ShapeBangumiExtra

	var wg sync.WaitGroup
	spawn := func(i int, fn func() status.Result) {
		if !shouldRun[i] {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			set(i, fn())
		}()
	}

	if deps.Config.SkipOption.NoPoster {
		set(pageSubtaskPoster, status.Ignored())
	} else {
		spawn(pageSubtaskPoster, func() status.Result { return pagePoster(ctx, deps, v, p, pp, fanart, reportRisk) })
	}

	spawn(pageSubtaskVideoFile, func() status.Result { return pageVideoFile(ctx, deps, p, pp, reportRisk) })

	if deps.Config.SkipOption.NoVideoNFO {
		set(pageSubtaskNFO, status.Ignored())
	} else {
		spawn(pageSubtaskNFO, func() status.Result { return pageNFO(ctx, deps, v, p, pp, shape, reportRisk) })
	}

	if deps.Config.SkipOption.NoDanmaku {
		set(pageSubtaskDanmaku, status.Ignored())
	} else {
		spawn(pageSubtaskDanmaku, func() status.Result { return pageDanmaku(ctx, deps, p, pp, reportRisk) })
	}

	if deps.Config.SkipOption.NoSubtitle {
		set(pageSubtaskSubtitles, status.Ignored())
	} else {
		spawn(pageSubtaskSubtitles, func() status.Result { return pageSubtitles(ctx, deps, p, pp, reportRisk) })
	}

	wg.Wait()

	newStatus := status.Update(p.DownloadStatus, results)
	if pp.Base != "" {
		p.Path = pp.Base
	}
	return newStatus, riskErr
}

func pagePoster(ctx context.Context, deps Deps, v *domain.Video, p *domain.Page, pp pathplan.Paths, fanart bool, reportRisk func(error)) status.Result {
	label := p.Name
	if label == "" {
		label = titleOf(v)
	}
	if err := writeArtwork(ctx, deps, p.Image, label, pp.Poster(), false); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	if fanart {
		if err := writeArtwork(ctx, deps, p.Image, label, pp.Fanart(), false); err != nil {
			reportRisk(err)
			return status.Failed()
		}
	}
	return status.Succeeded()
}

// pageVideoFile asks the stream picker for BestStream and either fetches a
// single combined stream or fetches+merges separate video/audio streams,
// delegating CDN ordering to the downloader collaborator (spec.md §4.7
// subtask 2).
func pageVideoFile(ctx context.Context, deps Deps, p *domain.Page, pp pathplan.Paths, reportRisk func(error)) status.Result {
	choice, err := deps.Streams.BestStream(ctx, p.CID, deps.Config.FilterOption)
	if err != nil {
		reportRisk(err)
		return status.Failed()
	}
	dest := pp.VideoFile("mp4")
	limit := deps.Config.ConcurrentLimit.Download
	if choice.Combined {
		err = deps.Downloader.MultiFetch(ctx, choice.VideoURLs, dest, limit)
	} else {
		err = deps.Downloader.MultiFetchAndMerge(ctx, choice.VideoURLs, choice.AudioURLs, dest, limit)
	}
	if err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

func pageNFO(ctx context.Context, deps Deps, v *domain.Video, p *domain.Page, pp pathplan.Paths, shape pathplan.Shape, reportRisk func(error)) status.Result {
	var err error
	if shape == pathplan.ShapeSinglePage || shape == pathplan.ShapeBangumiExtra {
		err = deps.NFO.Movie(ctx, pp.NFO(), v, p)
	} else {
		err = deps.NFO.Episode(ctx, pp.NFO(), v, p)
	}
	if err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

func pageDanmaku(ctx context.Context, deps Deps, p *domain.Page, pp pathplan.Paths, reportRisk func(error)) status.Result {
	if err := deps.Danmaku.Write(ctx, p.CID, pp.Danmaku(), deps.Config.DanmakuOption); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

// pageSubtitles treats a zero-track response as a known-empty situation
// (spec.md §4.1 Ignored) rather than a failure: most pages legitimately
// have no subtitle tracks at all.
func pageSubtitles(ctx context.Context, deps Deps, p *domain.Page, pp pathplan.Paths, reportRisk func(error)) status.Result {
	tracks, err := deps.Subtitles.Fetch(ctx, p.CID)
	if err != nil {
		reportRisk(err)
		return status.Failed()
	}
	if len(tracks) == 0 {
		return status.Ignored()
	}
	for lang, content := range tracks {
		if err := deps.Files.WriteFile(ctx, pp.Subtitle(lang), []byte(content)); err != nil {
			reportRisk(err)
			return status.Failed()
		}
	}
	return status.Succeeded()
}

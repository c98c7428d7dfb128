package scheduler

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/pathplan"
	"github.com/brackenfield/mediasync/internal/platform/apierr"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/status"
	"golang.org/x/sync/errgroup"
)

// Video-level subtask indices (spec.md §4.6), in the order the codec packs
// them: poster/fanart, the video-level NFO, the uploader avatar, the
// uploader NFO, and the page-dispatch aggregate.
const (
	videoSubtaskPoster = iota
	videoSubtaskNFO
	videoSubtaskUploaderAvatar
	videoSubtaskUploaderNFO
	videoSubtaskPages
)

var videoSubtaskLabels = [5]string{
	videoSubtaskPoster:         "poster",
	videoSubtaskNFO:            "video_nfo",
	videoSubtaskUploaderAvatar: "uploader_avatar",
	videoSubtaskUploaderNFO:    "uploader_nfo",
	videoSubtaskPages:          "pages",
}

// VideoResult summarizes one source's video-scheduler pass.
type VideoResult struct {
	Dispatched  int
	Succeeded   int
	RiskControl bool
}

// uploaderGate is the one-shot "avatar/NFO written once per uploader per
// run" set (spec.md §4.6, §5): the only shared mutable state this package
// owns, guarded by a mutex held only for the claim itself.
type uploaderGate struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newUploaderGate() *uploaderGate { return &uploaderGate{seen: map[string]bool{}} }

// claim reports whether the caller is the first this run to claim
// upperID; a losing caller's uploader subtasks are recorded as Skipped
// (spec.md §8-S6): not run again this run, with their fields left
// unchanged, so they stay eligible on a later run.
func (g *uploaderGate) claim(upperID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if upperID == "" || g.seen[upperID] {
		return false
	}
	g.seen[upperID] = true
	return true
}

// RunVideos drains every runnable, not-yet-finished video for src under a
// concurrency_limit.video-sized semaphore, dispatching the five
// video-level subtasks per video (spec.md §4.6). Once any subtask reports a
// risk-control error, the dispatch loop stops handing out new work —
// already-running video tasks are left to finish, and their bitfields are
// still persisted — and the error is returned so the driver does not
// advance the source's high-water mark.
func RunVideos(ctx context.Context, deps Deps, src *domain.VideoSource, limit int) (VideoResult, error) {
	res := VideoResult{}
	if limit < 1 {
		limit = 1
	}
	rows, err := deps.Videos.ListRunnable(dbctx.Context{Ctx: ctx}, src.ID)
	if err != nil {
		return res, fmt.Errorf("scheduler: list runnable videos: %w", err)
	}

	gate := newUploaderGate()
	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	var updated []*domain.Video
	var riskErr error

	for _, v := range rows {
		if status.Finished(v.DownloadStatus) {
			continue
		}
		mu.Lock()
		tripped := riskErr != nil
		mu.Unlock()
		if tripped {
			break
		}

		v := v
		res.Dispatched++
		g.Go(func() error {
			newStatus, rerr := runOneVideo(ctx, deps, src, v, gate)
			v.DownloadStatus = newStatus
			if rerr != nil && apierr.IsRiskControl(rerr) {
				mu.Lock()
				if riskErr == nil {
					riskErr = rerr
				}
				mu.Unlock()
			} else if rerr != nil {
				deps.Log.Warn("video subtasks reported a non-fatal error",
					"video", v.Name, "err", rerr.Error())
			}
			mu.Lock()
			updated = append(updated, v)
			if status.Finished(v.DownloadStatus) {
				res.Succeeded++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // subtask bodies never return a real error; Wait only joins.

	if len(updated) > 0 {
		if err := deps.Videos.UpdateDownloadStatus(dbctx.Context{Ctx: ctx}, updated); err != nil {
			return res, fmt.Errorf("scheduler: batch update video status: %w", err)
		}
	}

	if riskErr != nil {
		res.RiskControl = true
		deps.Log.Error("risk control triggered, aborting source run",
			"source", src.DisplayName, "reason", apierr.RiskControlReason(riskErr))
		return res, riskErr
	}
	return res, nil
}

// runOneVideo runs the five video-level subtasks concurrently and folds
// their results into the row's bitfield (spec.md §4.6). A subtask that is
// not applicable to this video's shape, or disabled by skip_option, is
// recorded as Ignored (succeeded, never retried) rather than left to run
// forever against a condition that will never change.
func runOneVideo(ctx context.Context, deps Deps, src *domain.VideoSource, v *domain.Video, gate *uploaderGate) (int32, error) {
	shouldRun := status.ShouldRun(v.DownloadStatus)
	results := [5]status.Result{status.Skipped(), status.Skipped(), status.Skipped(), status.Skipped(), status.Skipped()}
	var mu sync.Mutex
	set := func(i int, r status.Result) {
		mu.Lock()
		results[i] = r
		mu.Unlock()
		publishSubtask(ctx, deps, src.DisplayName, titleOf(v), 0, videoSubtaskLabels[i], r)
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

	shape := pathplan.ClassifyShape(v)
	videoLevel := shape == pathplan.ShapeMultiPage || shape == pathplan.ShapeBangumiMain

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

	switch {
	case !videoLevel:
		set(videoSubtaskPoster, status.Ignored())
	case deps.Config.SkipOption.NoPoster:
		set(videoSubtaskPoster, status.Ignored())
	default:
		spawn(videoSubtaskPoster, func() status.Result { return videoPoster(ctx, deps, src, v, reportRisk) })
	}

	switch {
	case !videoLevel:
		set(videoSubtaskNFO, status.Ignored())
	case deps.Config.SkipOption.NoVideoNFO:
		set(videoSubtaskNFO, status.Ignored())
	default:
		spawn(videoSubtaskNFO, func() status.Result { return videoNFO(ctx, deps, src, v, reportRisk) })
	}

	switch {
	case deps.Config.SkipOption.NoUpper || v.UpperID == "":
		set(videoSubtaskUploaderAvatar, status.Ignored())
		set(videoSubtaskUploaderNFO, status.Ignored())
	case !gate.claim(v.UpperID):
		set(videoSubtaskUploaderAvatar, status.Skipped())
		set(videoSubtaskUploaderNFO, status.Skipped())
	default:
		spawn(videoSubtaskUploaderAvatar, func() status.Result { return uploaderAvatar(ctx, deps, v, reportRisk) })
		spawn(videoSubtaskUploaderNFO, func() status.Result { return uploaderNFO(ctx, deps, v, reportRisk) })
	}

	spawn(videoSubtaskPages, func() status.Result {
		pages, err := deps.Pages.ListForVideo(dbctx.Context{Ctx: ctx}, v.ID)
		if err != nil {
			deps.Log.Warn("list pages failed", "video", v.Name, "err", err.Error())
			return status.Failed()
		}
		minField, perr := RunPages(ctx, deps, src, v, pages)
		reportRisk(perr)
		return status.Fixed(minField)
	})

	wg.Wait()

	newStatus := status.Update(v.DownloadStatus, results)
	return newStatus, riskErr
}

// videoPathArgs resolves pathplan.Args.SeriesTitle for a bangumi-main video
// via the season-title cache (spec.md §4.9), keyed off the video's
// season_id, falling back to ExtractSeriesTitle against the stored name
// when the video carries no season_id or the cache has no answer yet.
func videoPathArgs(ctx context.Context, deps Deps, v *domain.Video) pathplan.Args {
	args := pathplan.Args{TimeFormat: deps.Config.TimeFormat}
	if pathplan.ClassifyShape(v) != pathplan.ShapeBangumiMain {
		return args
	}
	var apiTitle string
	if v.SeasonID != nil && *v.SeasonID != "" && deps.Seasons != nil {
		if title, ok := deps.Seasons.Title(ctx, *v.SeasonID); ok {
			apiTitle = title
		}
	}
	args.SeriesTitle = pathplan.ExtractSeriesTitle(apiTitle, v.Name)
	return args
}

func videoPoster(ctx context.Context, deps Deps, src *domain.VideoSource, v *domain.Video, reportRisk func(error)) status.Result {
	vp := pathplan.PlanVideo(src.Path, v, videoPathArgs(ctx, deps, v))
	label := titleOf(v)
	if err := writeArtwork(ctx, deps, v.Cover, label, vp.Poster, false); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	if err := writeArtwork(ctx, deps, v.Cover, label, vp.Fanart, false); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

func videoNFO(ctx context.Context, deps Deps, src *domain.VideoSource, v *domain.Video, reportRisk func(error)) status.Result {
	vp := pathplan.PlanVideo(src.Path, v, videoPathArgs(ctx, deps, v))
	var err error
	if v.SourceType == domain.SourceTypeBangumi {
		err = deps.NFO.Bangumi(ctx, vp.TVShowNFO, v)
	} else {
		err = deps.NFO.TVShow(ctx, vp.TVShowNFO, v)
	}
	if err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

// uploaderAvatar always renders a placeholder: unlike a video's cover, this
// data model carries no upstream avatar URL for an uploader at all (only
// upper_id/upper_name, spec.md §3), so there is nothing to fall back from.
func uploaderAvatar(ctx context.Context, deps Deps, v *domain.Video, reportRisk func(error)) status.Result {
	dest := path.Join(deps.Config.UpperPath, pathplan.SafeName(v.UpperID), "folder.jpg")
	if err := writeArtwork(ctx, deps, "", v.UpperName, dest, true); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

func uploaderNFO(ctx context.Context, deps Deps, v *domain.Video, reportRisk func(error)) status.Result {
	dest := path.Join(deps.Config.UpperPath, pathplan.SafeName(v.UpperID), "person.nfo")
	if err := deps.NFO.Upper(ctx, dest, v.UpperID, v.UpperName); err != nil {
		reportRisk(err)
		return status.Failed()
	}
	return status.Succeeded()
}

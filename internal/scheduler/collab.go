// Package scheduler implements the two-tier download scheduler (spec.md
// §4.6/§4.7): a video-level semaphore dispatching five video-level
// subtasks per video, and a page-level semaphore nested inside it
// dispatching five page-level subtasks per page. Risk-control detection in
// either tier aborts the whole source run without cancelling work already
// in flight.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/brackenfield/mediasync/internal/artwork"
	"github.com/brackenfield/mediasync/internal/config"
	syncrepo "github.com/brackenfield/mediasync/internal/data/repos/sync"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/logger"
	"github.com/brackenfield/mediasync/internal/progress"
	"github.com/brackenfield/mediasync/internal/seasoncache"
	"github.com/brackenfield/mediasync/internal/source"
	"github.com/brackenfield/mediasync/internal/status"
	"gorm.io/gorm"
)

// FileWriter is the blocking-aware filesystem facade spec.md §5 calls for:
// every artifact write in this package goes through it rather than a bare
// os.WriteFile, so a caller can dispatch the actual blocking syscall off
// the runtime's pollers however it sees fit.
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// NFOWriter renders the XML sidecar shapes spec.md §6 names: Movie,
// Episode, TVShow, Upper, Bangumi.
type NFOWriter interface {
	Movie(ctx context.Context, path string, v *domain.Video, p *domain.Page) error
	Episode(ctx context.Context, path string, v *domain.Video, p *domain.Page) error
	TVShow(ctx context.Context, path string, v *domain.Video) error
	Upper(ctx context.Context, path string, upperID, upperName string) error
	Bangumi(ctx context.Context, path string, v *domain.Video) error
}

// DanmakuWriter converts the upstream protobuf danmaku stream for cid into
// the rendered .ass sidecar at dest, per the user's style options (spec.md
// §6 Glossary "Danmaku").
type DanmakuWriter interface {
	Write(ctx context.Context, cid, dest string, opt config.DanmakuOption) error
}

// SubtitleFetcher returns zero or more subtitle tracks for a page's cid,
// keyed by language code (spec.md §4.7 subtask 5).
type SubtitleFetcher interface {
	Fetch(ctx context.Context, cid string) (map[string]string, error)
}

// StreamChoice is what StreamPicker.BestStream resolves to: either one
// combined stream to fetch directly, or separate video/audio streams the
// downloader collaborator must fetch and merge (spec.md §4.7 subtask 2).
type StreamChoice struct {
	Combined  bool
	VideoURLs []string
	AudioURLs []string
}

// StreamPicker selects BestStream per the configured filter options.
type StreamPicker interface {
	BestStream(ctx context.Context, cid string, opt config.FilterOption) (StreamChoice, error)
}

// Deps bundles every repo and external collaborator the two scheduler
// tiers need. Client, Downloader, Files, NFO, Danmaku, Subtitles, and
// Streams are all out-of-scope collaborators per spec.md §1/§6 — this
// package only ever calls through their narrow interfaces.
type Deps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Videos syncrepo.VideoRepo
	Pages  syncrepo.PageRepo

	Client     source.Client
	Downloader source.Downloader
	Files      FileWriter
	NFO        NFOWriter
	Danmaku    DanmakuWriter
	Subtitles  SubtitleFetcher
	Streams    StreamPicker
	Artwork    *artwork.Generator
	Seasons    *seasoncache.Cache
	Progress   progress.Bus

	Config config.Config
}

var errNoPlaceholder = errors.New("scheduler: no artwork url and no placeholder generator configured")

// writeArtwork fetches url to dest via the downloader collaborator, or
// falls back to a generated placeholder when the upstream row carries no
// url at all — the rare case a legacy row's cover/avatar field is empty
// (SPEC_FULL §11: the artwork generator's reason for existing).
func writeArtwork(ctx context.Context, deps Deps, url, label, dest string, circular bool) error {
	if url != "" {
		return deps.Downloader.Fetch(ctx, url, dest, deps.Config.ConcurrentLimit.Download)
	}
	if deps.Artwork == nil {
		return errNoPlaceholder
	}
	var (
		data []byte
		err  error
	)
	if circular {
		data, err = deps.Artwork.Avatar(label)
	} else {
		data, err = deps.Artwork.Poster(label)
	}
	if err != nil {
		return err
	}
	return deps.Files.WriteFile(ctx, dest, data)
}

func titleOf(v *domain.Video) string {
	if v.ShowTitle != "" {
		return v.ShowTitle
	}
	return v.Name
}

// outcomeLabel names a Result's Outcome the way spec.md §7's structured
// feed reports it.
func outcomeLabel(o status.Outcome) string {
	switch o {
	case status.OutcomeSucceeded:
		return "succeeded"
	case status.OutcomeSkipped:
		return "skipped"
	case status.OutcomeIgnored:
		return "ignored"
	case status.OutcomeFailed:
		return "failed"
	case status.OutcomeFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// publishSubtask emits one progress.Event per resolved subtask — poster,
// NFO, uploader avatar/NFO, danmaku, subtitles, video file, or the page-
// aggregate — the structured (source, video, page, subtask) feed spec.md
// §7 asks for. pagePID is 0 for video-level subtasks. A publish failure is
// logged and otherwise ignored: losing one progress event must never fail
// the subtask it's reporting on.
func publishSubtask(ctx context.Context, deps Deps, sourceName, videoName string, pagePID int, subtask string, r status.Result) {
	if deps.Progress == nil {
		return
	}
	ev := progress.Event{
		SourceName: sourceName,
		VideoName:  videoName,
		PagePID:    pagePID,
		Subtask:    subtask,
		Outcome:    outcomeLabel(r.Outcome),
		At:         time.Now().Unix(),
	}
	if perr := deps.Progress.Publish(ctx, ev); perr != nil {
		deps.Log.Warn("progress publish failed", "subtask", subtask, "err", perr.Error())
	}
}

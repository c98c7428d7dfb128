// Package source unifies the five video-source variants (spec.md §4.2)
// behind one capability set: a stable adapter dispatched on
// domain.SourceType, each exposing its new items as a lazy, finite
// sequence. The adapter never does its own I/O — Client is the external
// collaborator every variant's Refresh calls through.
package source

import (
	"context"
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// VideoInfo is one candidate item yielded by a source's refresh stream,
// newest-first, before it is persisted as a domain.Video row.
type VideoInfo struct {
	BVID        string
	Name        string
	UpperID     string
	UpperName   string
	Cover       string
	PubTime     time.Time
	FavTime     time.Time
	Category    int
	SectionType int    // bangumi only: 0 = main episode, 1 = trailer (dropped unconditionally)
	SectionID   int    // bangumi only
	SectionName string // bangumi only: tag applied when section is selected
}

// ReleaseAt is the timestamp should_take compares against the high-water
// mark: fav_time for favorite/watch-later sources, pubtime otherwise.
func (v VideoInfo) ReleaseAt() time.Time {
	if !v.FavTime.IsZero() {
		return v.FavTime
	}
	return v.PubTime
}

// PageInfo is a candidate page/part, as returned by detail fetch (§4.5), ahead
// of being written as a domain.Page row.
type PageInfo struct {
	PID      int
	CID      string
	Name     string
	Duration int
	Width    *int
	Height   *int
	Image    string
}

// Stream is the lazy, finite, non-restartable sequence spec.md §4.2/§9
// describes. Next returns (item, true, nil) while there is more to read,
// (zero, false, nil) at clean end of stream, or an error that must abort
// consumption without advancing the high-water mark (spec.md §4.4 step 5).
type Stream interface {
	Next(ctx context.Context) (VideoInfo, bool, error)

	// NextPage returns one whole upstream page (items, true, nil), or
	// (nil, false, nil) at clean end of stream. internal/refresh uses this
	// instead of Next so it can apply the full-page stop rule (spec.md
	// §4.4): per-item comparison alone would miss items that shifted
	// across a page boundary during a paginated scan.
	NextPage(ctx context.Context) ([]VideoInfo, bool, error)
}

// Adapter is the capability set every source variant implements (spec.md
// §4.2's operation table).
type Adapter interface {
	DisplayName() string
	Path() string
	LatestRowAt() time.Time
	SetLatestRowAt(t time.Time)
	Rule() *rule.Node

	// Refresh upgrades the adapter (e.g. rewrites DisplayName from an
	// upstream title) and returns a lazy stream of candidates.
	Refresh(ctx context.Context, client Client) (Adapter, Stream, error)

	// ShouldTake reports whether one item is new enough to take. Refresh
	// skips an item it rejects, and stops consuming the stream once it
	// rejects every item of a page (spec.md §4.4 step 2).
	ShouldTake(idx int, releaseAt time.Time, hwm time.Time) bool

	// ShouldFilter is the keep/drop predicate applied to items within the
	// last accepted page (spec.md §4.4 step 3).
	ShouldFilter(idx int, item VideoInfo, hwm time.Time) bool

	// SetRelationID stamps the back-reference columns on a candidate row
	// before it is persisted. For every variant here that is (source_id,
	// source_type); kept as a method so a future variant-specific column
	// can override it without touching callers.
	SetRelationID(v *domain.Video)
}

// Client is the external HTTP collaborator (spec.md §1, §6): the
// out-of-scope upstream client, envelope validator, and credential
// carrier. internal/source only calls through this interface.
type Client interface {
	FetchCandidates(ctx context.Context, a Adapter, page int) ([]VideoInfo, error)
	FetchDetail(ctx context.Context, bvid string) (Detail, error)
	FetchSeasonTitle(ctx context.Context, seasonID string) (string, error)
}

// Detail is the per-video payload detail fetch (§4.5) needs: tags, pages,
// and (for bangumi) the season entity fields.
type Detail struct {
	Tags        []string
	Pages       []PageInfo
	SinglePage  bool
	NotFound    bool // upstream code == -404
	SeasonID    *string
	EpID        *string
	ShareCopy   *string
	Actors      *string
}

// Downloader is the byte-level collaborator (spec.md §6): range requests,
// segment merging, CDN ordering — entirely out of scope for this package.
type Downloader interface {
	Fetch(ctx context.Context, url, dest string, limit int) error
	MultiFetch(ctx context.Context, urls []string, dest string, limit int) error
	MultiFetchAndMerge(ctx context.Context, videoURLs, audioURLs []string, dest string, limit int) error
}

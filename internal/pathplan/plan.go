// Package pathplan assembles deterministic, filesystem-safe destination
// paths for the four video/page shapes in spec.md §4.8. The actual
// template-string rendering is an out-of-scope collaborator (spec.md §6
// "Template engine collaborator"); this package renders the same format-
// args dictionaries spec.md §4.8 specifies through a small built-in
// formatter, grounded on the original project's format_arg.rs field set.
package pathplan

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
)

type Shape int

const (
	ShapeSinglePage Shape = iota
	ShapeMultiPage
	ShapeBangumiMain
	ShapeBangumiExtra
)

// ClassifyShape implements the (is_bangumi, is_single_page,
// has_section_title, has_episode_number) decision table in spec.md §4.8.
func ClassifyShape(v *domain.Video) Shape {
	if v.SourceType == domain.SourceTypeBangumi {
		if v.IsBangumiExtra() {
			return ShapeBangumiExtra
		}
		return ShapeBangumiMain
	}
	if v.SinglePage {
		return ShapeSinglePage
	}
	return ShapeMultiPage
}

// Paths is the reusable artifact-name set for one page: a base path+stem
// with no extension, plus the directory that stem lives in. Every sidecar
// file is a fixed suffix appended to Base. This is the stability anchor
// spec.md §4.8/§8-S7 describes: once Page.Path holds a non-empty Base, a
// later run reuses it verbatim instead of re-rendering.
type Paths struct {
	Dir  string
	Base string
}

func (p Paths) VideoFile(ext string) string  { return p.Base + "." + ext }
func (p Paths) Poster() string               { return p.Base + "-poster.jpg" }
func (p Paths) Fanart() string               { return p.Base + "-fanart.jpg" }
func (p Paths) NFO() string                  { return p.Base + ".nfo" }
func (p Paths) Danmaku() string              { return p.Base + ".zh-CN.default.ass" }
func (p Paths) Subtitle(lang string) string  { return p.Base + "." + lang + ".srt" }

// VideoLevelPaths are the fixed-name artifacts that live once per
// multi-page/bangumi-main video, not once per page.
type VideoLevelPaths struct {
	Dir       string
	TVShowNFO string
	Poster    string
	Fanart    string
}

// Args carries the per-plan knobs the planner needs beyond the row data
// itself: the time format used to render pubtime/favtime into strings
// (config.time_format, spec.md §6), and the season-title cache's answer
// for this video's season_id, if any.
type Args struct {
	TimeFormat  string
	SeriesTitle string // resolved by internal/seasoncache + pathplan.ExtractSeriesTitle upstream of this package
}

// PlanVideo returns the video-level artifact set for multi-page and
// bangumi-main shapes; single-page and bangumi-extra shapes have no
// separate video-level tier (the page IS the only artifact set), so
// callers must not call this for those shapes.
func PlanVideo(sourcePath string, v *domain.Video, args Args) VideoLevelPaths {
	switch ClassifyShape(v) {
	case ShapeMultiPage, ShapeBangumiMain:
		return VideoLevelPaths{
			Dir:       sourcePath,
			TVShowNFO: path.Join(sourcePath, "tvshow.nfo"),
			Poster:    path.Join(sourcePath, "poster.jpg"),
			Fanart:    path.Join(sourcePath, "fanart.jpg"),
		}
	default:
		return VideoLevelPaths{Dir: sourcePath}
	}
}

// PlanPage returns the page-level artifact base for video/page, reusing an
// existing Page.Path verbatim if one is already set (path stability,
// spec.md §8-S7).
func PlanPage(sourcePath string, v *domain.Video, p *domain.Page, args Args) Paths {
	if strings.TrimSpace(p.Path) != "" {
		return Paths{Dir: path.Dir(p.Path), Base: p.Path}
	}

	switch ClassifyShape(v) {
	case ShapeSinglePage:
		dir := sourcePath
		base := path.Join(dir, SafeName(displayTitle(v, args)))
		return Paths{Dir: dir, Base: base}

	case ShapeMultiPage:
		dir := path.Join(sourcePath, "Season 1")
		name := fmt.Sprintf("%s - S01E%02d", renderedPageName(v, p, args), p.PID)
		return Paths{Dir: dir, Base: path.Join(dir, SafeName(name))}

	case ShapeBangumiMain:
		season := ExtractSeasonNumber(v.Name, derefInt(v.SeasonNumber, 1))
		episode := derefInt(v.EpisodeNumber, p.PID)
		dir := path.Join(sourcePath, fmt.Sprintf("Season %d", season))
		name := fmt.Sprintf("%s - S%02dE%02d", renderedPageName(v, p, args), season, episode)
		return Paths{Dir: dir, Base: path.Join(dir, SafeName(name))}

	case ShapeBangumiExtra:
		dir := sourcePath
		if v.HasSectionTitle() {
			dir = path.Join(sourcePath, SafeName(*v.SectionTitle))
		}
		return Paths{Dir: dir, Base: path.Join(dir, SafeName(displayTitle(v, args)))}
	}

	return Paths{Dir: sourcePath, Base: path.Join(sourcePath, SafeName(v.Name))}
}

// displayTitle prefers args.SeriesTitle — the season-title cache's answer
// for this video's season_id, resolved upstream via ExtractSeriesTitle as a
// fallback (spec.md §4.8/§4.9) — over the stored show_title/name.
func displayTitle(v *domain.Video, args Args) string {
	if args.SeriesTitle != "" {
		return args.SeriesTitle
	}
	if v.ShowTitle != "" {
		return v.ShowTitle
	}
	return v.Name
}

func renderedPageName(v *domain.Video, p *domain.Page, args Args) string {
	title := displayTitle(v, args)
	if strings.TrimSpace(p.Name) == "" || strings.EqualFold(p.Name, v.Name) {
		return title
	}
	return fmt.Sprintf("%s - %s", title, p.Name)
}

func derefInt(p *int, fallback int) int {
	if p == nil || *p == 0 {
		return fallback
	}
	return *p
}

// FormatTime renders t using the configured time_format (spec.md §6), the
// same fields video_format_args/page_format_args expose for pubtime/
// fav_time in the original project.
func FormatTime(t time.Time, layout string) string {
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	return t.Format(layout)
}

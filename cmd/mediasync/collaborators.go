package main

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"

	"github.com/brackenfield/mediasync/internal/config"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/scheduler"
	"github.com/brackenfield/mediasync/internal/source"
)

// This file wires the narrow collaborator interfaces internal/source and
// internal/scheduler call through. The site's HTTP API, its byte-range CDN
// downloader, and its danmaku/subtitle endpoints are out of core scope
// (spec.md §1/§6): errNotWired marks the seam a real deployment replaces
// with an actual site client. The filesystem-only collaborators (files,
// NFO) need no network and are implemented directly.

var errNotWired = errors.New("mediasync: no site API client configured for this deployment")

type stubClient struct{}

func newStubClient() source.Client { return stubClient{} }

func (stubClient) FetchCandidates(ctx context.Context, a source.Adapter, page int) ([]source.VideoInfo, error) {
	return nil, errNotWired
}
func (stubClient) FetchDetail(ctx context.Context, bvid string) (source.Detail, error) {
	return source.Detail{}, errNotWired
}
func (stubClient) FetchSeasonTitle(ctx context.Context, seasonID string) (string, error) {
	return "", errNotWired
}

type stubDownloader struct{}

func newStubDownloader() source.Downloader { return stubDownloader{} }

func (stubDownloader) Fetch(ctx context.Context, url, dest string, limit int) error {
	return errNotWired
}
func (stubDownloader) MultiFetch(ctx context.Context, urls []string, dest string, limit int) error {
	return errNotWired
}
func (stubDownloader) MultiFetchAndMerge(ctx context.Context, videoURLs, audioURLs []string, dest string, limit int) error {
	return errNotWired
}

// localFileWriter needs no external service: writing a byte slice (an artwork placeholder, a subtitle track)
// to disk is plain filesystem I/O.
type localFileWriter struct{}

func newStubFileWriter() scheduler.FileWriter { return localFileWriter{} }

func (localFileWriter) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// localNFOWriter renders the minimal Kodi-style NFO XML shapes spec.md §6
// names. A production deployment typically swaps this for a template-
// engine-backed collaborator with richer field coverage; this one emits
// the fields the core's own domain rows carry.
type localNFOWriter struct{}

func newStubNFOWriter() scheduler.NFOWriter { return localNFOWriter{} }

type movieNFO struct {
	XMLName xml.Name `xml:"movie"`
	Title   string   `xml:"title"`
	Plot    string   `xml:"plot,omitempty"`
}

type episodeNFO struct {
	XMLName xml.Name `xml:"episodedetails"`
	Title   string   `xml:"title"`
	Season  int      `xml:"season,omitempty"`
	Episode int      `xml:"episode,omitempty"`
}

type tvShowNFO struct {
	XMLName xml.Name `xml:"tvshow"`
	Title   string   `xml:"title"`
}

type personNFO struct {
	XMLName xml.Name `xml:"person"`
	Name    string   `xml:"name"`
}

func writeXML(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), raw...), 0o644)
}

func (localNFOWriter) Movie(ctx context.Context, path string, v *domain.Video, p *domain.Page) error {
	title := v.ShowTitle
	if title == "" {
		title = v.Name
	}
	return writeXML(path, movieNFO{Title: title})
}

func (localNFOWriter) Episode(ctx context.Context, path string, v *domain.Video, p *domain.Page) error {
	episode := p.PID
	if v.EpisodeNumber != nil {
		episode = *v.EpisodeNumber
	}
	season := 1
	if v.SeasonNumber != nil {
		season = *v.SeasonNumber
	}
	return writeXML(path, episodeNFO{Title: p.Name, Season: season, Episode: episode})
}

func (localNFOWriter) TVShow(ctx context.Context, path string, v *domain.Video) error {
	title := v.ShowTitle
	if title == "" {
		title = v.Name
	}
	return writeXML(path, tvShowNFO{Title: title})
}

func (localNFOWriter) Upper(ctx context.Context, path, upperID, upperName string) error {
	name := upperName
	if name == "" {
		name = upperID
	}
	return writeXML(path, personNFO{Name: name})
}

func (localNFOWriter) Bangumi(ctx context.Context, path string, v *domain.Video) error {
	title := v.ShowTitle
	if title == "" {
		title = v.Name
	}
	return writeXML(path, tvShowNFO{Title: title})
}

// stubDanmakuWriter, stubSubtitleFetcher, and stubStreamPicker all need the
// site's live endpoints and are left unwired. stubDanmakuWriter and
// stubStreamPicker return errNotWired; stubSubtitleFetcher reports no
// tracks and no error.
type stubDanmakuWriter struct{}

func newStubDanmakuWriter() scheduler.DanmakuWriter { return stubDanmakuWriter{} }

func (stubDanmakuWriter) Write(ctx context.Context, cid, dest string, opt config.DanmakuOption) error {
	return errNotWired
}

type stubSubtitleFetcher struct{}

func newStubSubtitleFetcher() scheduler.SubtitleFetcher { return stubSubtitleFetcher{} }

func (stubSubtitleFetcher) Fetch(ctx context.Context, cid string) (map[string]string, error) {
	return nil, nil
}

type stubStreamPicker struct{}

func newStubStreamPicker() scheduler.StreamPicker { return stubStreamPicker{} }

func (stubStreamPicker) BestStream(ctx context.Context, cid string, opt config.FilterOption) (scheduler.StreamChoice, error) {
	return scheduler.StreamChoice{}, errNotWired
}

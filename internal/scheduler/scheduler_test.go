package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/brackenfield/mediasync/internal/config"
	"github.com/brackenfield/mediasync/internal/data/repos/testutil"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/apierr"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/status"
	"github.com/google/uuid"
)

// fakeVideoRepo and fakePageRepo are minimal in-memory stand-ins for
// internal/data/repos/sync's interfaces so these tests exercise scheduling
// logic without a Postgres fixture.
type fakeVideoRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Video
}

func newFakeVideoRepo(rows ...*domain.Video) *fakeVideoRepo {
	m := map[uuid.UUID]*domain.Video{}
	for _, r := range rows {
		m[r.ID] = r
	}
	return &fakeVideoRepo{rows: m}
}

func (f *fakeVideoRepo) UpsertNew(dbctx.Context, []*domain.Video) error { return nil }
func (f *fakeVideoRepo) ListRunnable(_ dbctx.Context, sourceID uuid.UUID) ([]*domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Video
	for _, v := range f.rows {
		if v.SourceID == sourceID && v.Valid && v.ShouldDownload {
			out = append(out, v)
		}
	}
	return out, nil
}
func (f *fakeVideoRepo) ListPendingDetail(dbctx.Context, uuid.UUID) ([]*domain.Video, error) {
	return nil, nil
}
func (f *fakeVideoRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id], nil
}
func (f *fakeVideoRepo) UpdateDetail(dbctx.Context, *domain.Video) error { return nil }
func (f *fakeVideoRepo) UpdateDownloadStatus(_ dbctx.Context, rows []*domain.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range rows {
		f.rows[v.ID] = v
	}
	return nil
}
func (f *fakeVideoRepo) MarkInvalid(dbctx.Context, uuid.UUID) error { return nil }

type fakePageRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]*domain.Page
}

func newFakePageRepo(byVideo map[uuid.UUID][]*domain.Page) *fakePageRepo {
	return &fakePageRepo{rows: byVideo}
}

func (f *fakePageRepo) ReplaceForVideo(dbctx.Context, uuid.UUID, []*domain.Page) error { return nil }
func (f *fakePageRepo) ListForVideo(_ dbctx.Context, videoID uuid.UUID) ([]*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[videoID], nil
}
func (f *fakePageRepo) UpdateDownloadStatus(_ dbctx.Context, rows []*domain.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range rows {
		list := f.rows[p.VideoID]
		for i, existing := range list {
			if existing.ID == p.ID {
				list[i] = p
			}
		}
	}
	return nil
}

type fakeDownloader struct {
	mu        sync.Mutex
	fetched   int
	failCID   string
	riskCID   string
}

func (d *fakeDownloader) Fetch(ctx context.Context, url, dest string, limit int) error {
	d.mu.Lock()
	d.fetched++
	d.mu.Unlock()
	return nil
}
func (d *fakeDownloader) MultiFetch(ctx context.Context, urls []string, dest string, limit int) error {
	d.mu.Lock()
	d.fetched++
	d.mu.Unlock()
	return nil
}
func (d *fakeDownloader) MultiFetchAndMerge(ctx context.Context, videoURLs, audioURLs []string, dest string, limit int) error {
	d.mu.Lock()
	d.fetched++
	d.mu.Unlock()
	return nil
}

type fakeNFO struct{}

func (fakeNFO) Movie(context.Context, string, *domain.Video, *domain.Page) error   { return nil }
func (fakeNFO) Episode(context.Context, string, *domain.Video, *domain.Page) error { return nil }
func (fakeNFO) TVShow(context.Context, string, *domain.Video) error                { return nil }
func (fakeNFO) Upper(context.Context, string, string, string) error                { return nil }
func (fakeNFO) Bangumi(context.Context, string, *domain.Video) error                { return nil }

type fakeDanmaku struct{}

func (fakeDanmaku) Write(context.Context, string, string, config.DanmakuOption) error { return nil }

type fakeSubtitles struct{ tracks map[string]string }

func (f fakeSubtitles) Fetch(context.Context, string) (map[string]string, error) { return f.tracks, nil }

type fakeStreamPicker struct {
	riskCID string
}

func (p fakeStreamPicker) BestStream(ctx context.Context, cid string, opt config.FilterOption) (StreamChoice, error) {
	if cid == p.riskCID {
		return StreamChoice{}, apierr.New(0, -412, errors.New("risk control challenge"))
	}
	return StreamChoice{Combined: true, VideoURLs: []string{fmt.Sprintf("https://example/%s.mp4", cid)}}, nil
}

type fakeFiles struct {
	mu      sync.Mutex
	written int
}

func (f *fakeFiles) WriteFile(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	f.written++
	f.mu.Unlock()
	return nil
}

func baseDeps(t *testing.T) Deps {
	return Deps{
		Log:        testutil.Logger(t),
		Downloader: &fakeDownloader{},
		Files:      &fakeFiles{},
		NFO:        fakeNFO{},
		Danmaku:    fakeDanmaku{},
		Subtitles:  fakeSubtitles{},
		Streams:    fakeStreamPicker{},
		Config: config.Config{
			ConcurrentLimit: config.ConcurrentLimit{Video: 2, Page: 2, Download: 2},
		},
	}
}

func TestRunVideosSinglePageReachesFinished(t *testing.T) {
	src := &domain.VideoSource{ID: uuid.New(), DisplayName: "fav", Path: "/media/fav", SourceType: domain.SourceTypeFavorite}
	v := &domain.Video{
		ID: uuid.New(), SourceID: src.ID, SourceType: src.SourceType,
		BVID: "BV1x", Name: "a video", SinglePage: true, Valid: true, ShouldDownload: true,
	}
	p := &domain.Page{ID: uuid.New(), VideoID: v.ID, PID: 1, CID: "cid1", Name: "a video", Image: "https://example/cid1.jpg"}

	deps := baseDeps(t)
	deps.Videos = newFakeVideoRepo(v)
	deps.Pages = newFakePageRepo(map[uuid.UUID][]*domain.Page{v.ID: {p}})

	res, err := RunVideos(context.Background(), deps, src, 2)
	if err != nil {
		t.Fatalf("RunVideos: %v", err)
	}
	if res.Dispatched != 1 || res.Succeeded != 1 {
		t.Fatalf("res = %+v, want 1 dispatched/succeeded", res)
	}
	if !status.Finished(v.DownloadStatus) {
		t.Fatalf("expected video status Finished, got %#x", v.DownloadStatus)
	}
	if !status.Finished(p.DownloadStatus) {
		t.Fatalf("expected page status Finished, got %#x", p.DownloadStatus)
	}
}

func TestRunVideosAbortsOnRiskControl(t *testing.T) {
	src := &domain.VideoSource{ID: uuid.New(), DisplayName: "fav", Path: "/media/fav", SourceType: domain.SourceTypeFavorite}
	v := &domain.Video{
		ID: uuid.New(), SourceID: src.ID, SourceType: src.SourceType,
		BVID: "BV1risky", Name: "risky video", SinglePage: true, Valid: true, ShouldDownload: true,
	}
	p := &domain.Page{ID: uuid.New(), VideoID: v.ID, PID: 1, CID: "risk-cid", Name: "risky video"}

	deps := baseDeps(t)
	deps.Videos = newFakeVideoRepo(v)
	deps.Pages = newFakePageRepo(map[uuid.UUID][]*domain.Page{v.ID: {p}})
	deps.Streams = fakeStreamPicker{riskCID: "risk-cid"}

	_, err := RunVideos(context.Background(), deps, src, 2)
	if err == nil {
		t.Fatal("expected RunVideos to return the risk-control error")
	}
	if !apierr.IsRiskControl(err) {
		t.Fatalf("expected a risk-control error, got %v", err)
	}
	// The video-file subtask failed once; its field should reflect that
	// rather than being silently dropped.
	if status.Finished(v.DownloadStatus) {
		t.Fatal("video should not be Finished when a subtask hit risk control")
	}
}

func TestUploaderGateOneShotPerRun(t *testing.T) {
	gate := newUploaderGate()
	if !gate.claim("up1") {
		t.Fatal("first claim should succeed")
	}
	if gate.claim("up1") {
		t.Fatal("second claim for the same uploader should fail")
	}
	if !gate.claim("up2") {
		t.Fatal("claim for a different uploader should succeed")
	}
}

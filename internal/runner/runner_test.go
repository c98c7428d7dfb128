package runner

import (
	"context"
	"testing"
	"time"

	"github.com/brackenfield/mediasync/internal/data/repos/testutil"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/scheduler"
	"github.com/brackenfield/mediasync/internal/source"
	"github.com/google/uuid"
)

// fakeSourcesRepo is a single-row in-memory VideoSourceRepo: enough to
// drive Run's per-source loop without a database.
type fakeSourcesRepo struct {
	row     *domain.VideoSource
	advance time.Time
}

func (f *fakeSourcesRepo) List(dbctx.Context) ([]*domain.VideoSource, error) {
	return []*domain.VideoSource{f.row}, nil
}
func (f *fakeSourcesRepo) GetByID(dbctx.Context, uuid.UUID) (*domain.VideoSource, error) {
	return f.row, nil
}
func (f *fakeSourcesRepo) GetByTypeAndUpstreamID(dbctx.Context, domain.SourceType, string) (*domain.VideoSource, error) {
	return f.row, nil
}
func (f *fakeSourcesRepo) AdvanceLatestRowAt(_ dbctx.Context, _ uuid.UUID, latestRowAt interface{}) error {
	f.advance = latestRowAt.(time.Time)
	return nil
}
func (f *fakeSourcesRepo) Upsert(dbctx.Context, []*domain.VideoSource) error { return nil }

type fakeVideosRepo struct{}

func (fakeVideosRepo) UpsertNew(dbctx.Context, []*domain.Video) error { return nil }
func (fakeVideosRepo) ListRunnable(dbctx.Context, uuid.UUID) ([]*domain.Video, error) {
	return nil, nil
}
func (fakeVideosRepo) ListPendingDetail(dbctx.Context, uuid.UUID) ([]*domain.Video, error) {
	return nil, nil
}
func (fakeVideosRepo) GetByID(dbctx.Context, uuid.UUID) (*domain.Video, error) { return nil, nil }
func (fakeVideosRepo) UpdateDetail(dbctx.Context, *domain.Video) error         { return nil }
func (fakeVideosRepo) UpdateDownloadStatus(dbctx.Context, []*domain.Video) error {
	return nil
}
func (fakeVideosRepo) MarkInvalid(dbctx.Context, uuid.UUID) error { return nil }

type fakePagesRepo struct{}

func (fakePagesRepo) ReplaceForVideo(dbctx.Context, uuid.UUID, []*domain.Page) error { return nil }
func (fakePagesRepo) ListForVideo(dbctx.Context, uuid.UUID) ([]*domain.Page, error) {
	return nil, nil
}
func (fakePagesRepo) UpdateDownloadStatus(dbctx.Context, []*domain.Page) error { return nil }

type fakeClient struct{}

func (fakeClient) FetchCandidates(context.Context, source.Adapter, int) ([]source.VideoInfo, error) {
	return nil, nil
}
func (fakeClient) FetchDetail(context.Context, string) (source.Detail, error) {
	return source.Detail{}, nil
}
func (fakeClient) FetchSeasonTitle(context.Context, string) (string, error) { return "", nil }

func TestRunDrivesAllThreePhasesForEachSource(t *testing.T) {
	dir := t.TempDir()
	src := &domain.VideoSource{
		ID:          uuid.New(),
		SourceType:  domain.SourceTypeFavorite,
		UpstreamID:  "123",
		DisplayName: "Favorites",
		Path:        dir + "/favorites",
		LatestRowAt: domain.EpochLatestRowAt,
	}

	deps := Deps{
		Log:     testutil.Logger(t),
		Sources: &fakeSourcesRepo{row: src},
		Videos:  fakeVideosRepo{},
		Pages:   fakePagesRepo{},
		Client:  fakeClient{},
		Scheduler: scheduler.Deps{
			Downloader: nil,
		},
	}

	res, err := Run(context.Background(), deps, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Sources) != 1 {
		t.Fatalf("expected 1 source result, got %d", len(res.Sources))
	}
	if res.Sources[0].Err != nil {
		t.Fatalf("source pass failed: %v", res.Sources[0].Err)
	}
}

func TestRunScanOnlySkipsScheduler(t *testing.T) {
	dir := t.TempDir()
	src := &domain.VideoSource{
		ID:          uuid.New(),
		SourceType:  domain.SourceTypeFavorite,
		UpstreamID:  "456",
		DisplayName: "Favorites",
		Path:        dir + "/favorites",
		LatestRowAt: domain.EpochLatestRowAt,
	}

	deps := Deps{
		Log:     testutil.Logger(t),
		Sources: &fakeSourcesRepo{row: src},
		Videos:  fakeVideosRepo{},
		Pages:   fakePagesRepo{},
		Client:  fakeClient{},
	}

	res, err := Run(context.Background(), deps, Options{ScanOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Sources[0].Video.Dispatched != 0 {
		t.Fatalf("expected no scheduler dispatch in scan-only mode, got %+v", res.Sources[0].Video)
	}
}

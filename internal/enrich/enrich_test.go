package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brackenfield/mediasync/internal/data/repos/sync"
	"github.com/brackenfield/mediasync/internal/data/repos/testutil"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/apierr"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/source"
)

type fakeClient struct {
	details  map[string]source.Detail
	notFound map[string]bool
}

func (c *fakeClient) FetchCandidates(ctx context.Context, a source.Adapter, page int) ([]source.VideoInfo, error) {
	return nil, nil
}
func (c *fakeClient) FetchDetail(ctx context.Context, bvid string) (source.Detail, error) {
	if c.notFound[bvid] {
		return source.Detail{}, apierr.New(0, apierr.CodeNotFound, errors.New("gone"))
	}
	return c.details[bvid], nil
}
func (c *fakeClient) FetchSeasonTitle(ctx context.Context, seasonID string) (string, error) {
	return "", nil
}

func TestRunFetchesDetailAndWritesPagesTransactionally(t *testing.T) {
	gdb := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	sourceRepo := sync.NewVideoSourceRepo(gdb, testutil.Logger(t))
	videoRepo := sync.NewVideoRepo(gdb, testutil.Logger(t))
	pageRepo := sync.NewPageRepo(gdb, testutil.Logger(t))

	src := &domain.VideoSource{
		SourceType:  domain.SourceTypeFavorite,
		UpstreamID:  "enrich-test-1",
		DisplayName: "Favorites",
		Path:        "/media/favorites",
		LatestRowAt: domain.EpochLatestRowAt,
	}
	if err := sourceRepo.Upsert(dbc, []*domain.VideoSource{src}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	got, err := sourceRepo.GetByTypeAndUpstreamID(dbc, domain.SourceTypeFavorite, "enrich-test-1")
	if err != nil {
		t.Fatalf("reload source: %v", err)
	}

	v := &domain.Video{
		SourceID:   got.ID,
		SourceType: domain.SourceTypeFavorite,
		BVID:       "BV1enrichme01",
		Name:       "not yet detailed",
		PubTime:    time.Now(),
	}
	if err := videoRepo.UpsertNew(dbc, []*domain.Video{v}); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	seeded, err := videoRepo.ListPendingDetail(dbc, got.ID)
	if err != nil || len(seeded) != 1 {
		t.Fatalf("seed lookup: rows=%d err=%v", len(seeded), err)
	}
	videoID := seeded[0].ID

	client := &fakeClient{details: map[string]source.Detail{
		"BV1enrichme01": {
			Tags:  []string{"tag1", "tag2"},
			Pages: []source.PageInfo{{PID: 1, CID: "c1", Name: "p1", Duration: 120}},
		},
	}}

	deps := Deps{
		DB:          gdb,
		Log:         testutil.Logger(t),
		Videos:      videoRepo,
		Pages:       pageRepo,
		Client:      client,
		Concurrency: 2,
	}

	res, err := Run(ctx, deps, got.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Fetched != 1 {
		t.Fatalf("Fetched = %d, want 1", res.Fetched)
	}

	pending, err := videoRepo.ListPendingDetail(dbc, got.ID)
	if err != nil {
		t.Fatalf("ListPendingDetail: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected 0 rows still pending detail, got %d", len(pending))
	}

	stored, err := videoRepo.GetByID(dbc, videoID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.ShouldDownload {
		t.Fatal("expected should_download true with a nil rule tree (always download)")
	}

	pages, err := pageRepo.ListForVideo(dbc, videoID)
	if err != nil {
		t.Fatalf("ListForVideo: %v", err)
	}
	if len(pages) != 1 || pages[0].CID != "c1" {
		t.Fatalf("expected 1 materialized page with cid c1, got %+v", pages)
	}
}

func TestRunInvalidatesNotFoundVideo(t *testing.T) {
	gdb := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	sourceRepo := sync.NewVideoSourceRepo(gdb, testutil.Logger(t))
	videoRepo := sync.NewVideoRepo(gdb, testutil.Logger(t))
	pageRepo := sync.NewPageRepo(gdb, testutil.Logger(t))

	src := &domain.VideoSource{
		SourceType:  domain.SourceTypeFavorite,
		UpstreamID:  "enrich-test-2",
		DisplayName: "Favorites",
		Path:        "/media/favorites",
		LatestRowAt: domain.EpochLatestRowAt,
	}
	if err := sourceRepo.Upsert(dbc, []*domain.VideoSource{src}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	got, err := sourceRepo.GetByTypeAndUpstreamID(dbc, domain.SourceTypeFavorite, "enrich-test-2")
	if err != nil {
		t.Fatalf("reload source: %v", err)
	}

	v := &domain.Video{
		SourceID:   got.ID,
		SourceType: domain.SourceTypeFavorite,
		BVID:       "BV1gone0001",
		Name:       "removed video",
		PubTime:    time.Now(),
	}
	if err := videoRepo.UpsertNew(dbc, []*domain.Video{v}); err != nil {
		t.Fatalf("seed video: %v", err)
	}

	client := &fakeClient{notFound: map[string]bool{"BV1gone0001": true}}
	deps := Deps{DB: gdb, Log: testutil.Logger(t), Videos: videoRepo, Pages: pageRepo, Client: client, Concurrency: 1}

	res, err := Run(ctx, deps, got.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalidated != 1 {
		t.Fatalf("Invalidated = %d, want 1", res.Invalidated)
	}

	runnable, err := videoRepo.ListRunnable(dbc, got.ID)
	if err != nil {
		t.Fatalf("ListRunnable: %v", err)
	}
	if len(runnable) != 0 {
		t.Fatalf("expected invalidated video excluded from ListRunnable, got %d", len(runnable))
	}
}

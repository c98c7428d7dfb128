package sync

import (
	"context"
	"testing"
	"time"

	"github.com/brackenfield/mediasync/internal/data/repos/testutil"
	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
)

func seedSource(t *testing.T, c dbctx.Context, repo VideoSourceRepo, upstreamID string) *domain.VideoSource {
	t.Helper()
	src := &domain.VideoSource{
		SourceType:  domain.SourceTypeFavorite,
		UpstreamID:  upstreamID,
		DisplayName: "Favorites",
		Path:        "/media/favorites",
		LatestRowAt: domain.EpochLatestRowAt,
	}
	if err := repo.Upsert(c, []*domain.VideoSource{src}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	got, err := repo.GetByTypeAndUpstreamID(c, domain.SourceTypeFavorite, upstreamID)
	if err != nil {
		t.Fatalf("reload seeded source: %v", err)
	}
	return got
}

// TestVideoRepoUpsertChunksAndDedup exercises the refresh-phase testable
// property (spec.md §8 S1): two pages of ten inserted in chunks of ten, and
// re-running the same insert must not duplicate rows.
func TestVideoRepoUpsertChunksAndDedup(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	sourceRepo := NewVideoSourceRepo(gdb, testutil.Logger(t))
	videoRepo := NewVideoRepo(gdb, testutil.Logger(t))
	src := seedSource(t, c, sourceRepo, "999")

	rows := make([]*domain.Video, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, &domain.Video{
			SourceID:   src.ID,
			SourceType: domain.SourceTypeFavorite,
			BVID:       bvidForTest(i),
			Name:       "video",
			PubTime:    time.Now(),
		})
	}
	if err := videoRepo.UpsertNew(c, rows); err != nil {
		t.Fatalf("UpsertNew: %v", err)
	}

	got, err := videoRepo.ListRunnable(c, src.ID)
	if err != nil {
		t.Fatalf("ListRunnable: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 rows after first insert, got %d", len(got))
	}

	// Re-inserting the same bvids must be a no-op under DoNothing conflict
	// handling.
	if err := videoRepo.UpsertNew(c, rows); err != nil {
		t.Fatalf("second UpsertNew: %v", err)
	}
	got, err = videoRepo.ListRunnable(c, src.ID)
	if err != nil {
		t.Fatalf("ListRunnable after re-insert: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 rows after re-insert (dedup), got %d", len(got))
	}
}

func TestVideoRepoMarkInvalid(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	sourceRepo := NewVideoSourceRepo(gdb, testutil.Logger(t))
	videoRepo := NewVideoRepo(gdb, testutil.Logger(t))
	src := seedSource(t, c, sourceRepo, "888")

	v := &domain.Video{
		SourceID:   src.ID,
		SourceType: domain.SourceTypeFavorite,
		BVID:       "BV1xx411c7abc",
		Name:       "video",
		PubTime:    time.Now(),
	}
	if err := videoRepo.UpsertNew(c, []*domain.Video{v}); err != nil {
		t.Fatalf("UpsertNew: %v", err)
	}
	rows, err := videoRepo.ListRunnable(c, src.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListRunnable: rows=%d err=%v", len(rows), err)
	}

	if err := videoRepo.MarkInvalid(c, rows[0].ID); err != nil {
		t.Fatalf("MarkInvalid: %v", err)
	}
	again, err := videoRepo.ListRunnable(c, src.ID)
	if err != nil {
		t.Fatalf("ListRunnable after invalidate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected invalidated video to drop out of ListRunnable, got %d rows", len(again))
	}
}

func TestVideoRepoListPendingDetail(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	sourceRepo := NewVideoSourceRepo(gdb, testutil.Logger(t))
	videoRepo := NewVideoRepo(gdb, testutil.Logger(t))
	src := seedSource(t, c, sourceRepo, "777")

	v := &domain.Video{
		SourceID:   src.ID,
		SourceType: domain.SourceTypeFavorite,
		BVID:       "BV1pending001",
		Name:       "video",
		PubTime:    time.Now(),
	}
	if err := videoRepo.UpsertNew(c, []*domain.Video{v}); err != nil {
		t.Fatalf("UpsertNew: %v", err)
	}

	pending, err := videoRepo.ListPendingDetail(c, src.ID)
	if err != nil {
		t.Fatalf("ListPendingDetail: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 row pending detail, got %d", len(pending))
	}

	pending[0].Tags = []byte(`["a"]`)
	if err := videoRepo.UpdateDetail(c, pending[0]); err != nil {
		t.Fatalf("UpdateDetail: %v", err)
	}

	again, err := videoRepo.ListPendingDetail(c, src.ID)
	if err != nil {
		t.Fatalf("ListPendingDetail after detail fetch: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected 0 rows pending detail after fetch, got %d", len(again))
	}
}

func bvidForTest(i int) string {
	return "BV1test0000" + string(rune('a'+i))
}

package source

import (
	"context"
	"testing"
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
)

type stubClient struct {
	pages map[int][]VideoInfo
}

func (c *stubClient) FetchCandidates(ctx context.Context, a Adapter, page int) ([]VideoInfo, error) {
	return c.pages[page], nil
}
func (c *stubClient) FetchDetail(ctx context.Context, bvid string) (Detail, error) { return Detail{}, nil }
func (c *stubClient) FetchSeasonTitle(ctx context.Context, seasonID string) (string, error) {
	return "", nil
}

func TestNewDispatchesByType(t *testing.T) {
	for _, st := range []domain.SourceType{
		domain.SourceTypeCollection, domain.SourceTypeFavorite,
		domain.SourceTypeWatchLater, domain.SourceTypeSubmission, domain.SourceTypeBangumi,
	} {
		vs := &domain.VideoSource{SourceType: st, DisplayName: "x", Path: "/x"}
		a, err := New(vs)
		if err != nil {
			t.Fatalf("New(%s): %v", st, err)
		}
		if a.DisplayName() != "x" {
			t.Fatalf("DisplayName() = %q", a.DisplayName())
		}
	}
}

func TestNewUnknownType(t *testing.T) {
	vs := &domain.VideoSource{SourceType: "bogus"}
	if _, err := New(vs); err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestPagedStreamDrainsAllPages(t *testing.T) {
	client := &stubClient{pages: map[int][]VideoInfo{
		1: {{BVID: "a"}, {BVID: "b"}},
		2: {{BVID: "c"}},
		3: {},
	}}
	vs := &domain.VideoSource{SourceType: domain.SourceTypeFavorite}
	a, err := New(vs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, stream, err := a.Refresh(context.Background(), client)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var got []string
	for {
		item, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, item.BVID)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestShouldTakeStopsOnOlderItem(t *testing.T) {
	vs := &domain.VideoSource{SourceType: domain.SourceTypeFavorite}
	a, _ := New(vs)
	hwm := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := hwm.Add(time.Hour)
	older := hwm.Add(-time.Hour)
	if !a.ShouldTake(0, newer, hwm) {
		t.Fatal("expected newer-than-hwm item to be taken")
	}
	if a.ShouldTake(0, older, hwm) {
		t.Fatal("expected older-than-hwm item to stop consumption")
	}
}

func TestBangumiShouldFilterDropsTrailersAndUnselectedExtras(t *testing.T) {
	vs := &domain.VideoSource{
		SourceType:         domain.SourceTypeBangumi,
		SelectedSectionIDs: []byte(`[99]`),
	}
	a, err := NewBangumi(vs, nil)
	if err != nil {
		t.Fatalf("NewBangumi: %v", err)
	}

	main := VideoInfo{SectionType: 0}
	trailer := VideoInfo{SectionType: 1}
	selectedExtra := VideoInfo{SectionType: 2, SectionID: 99}
	unselectedExtra := VideoInfo{SectionType: 2, SectionID: 7}

	if !a.ShouldFilter(0, main, time.Time{}) {
		t.Fatal("main episode should always pass")
	}
	if a.ShouldFilter(0, trailer, time.Time{}) {
		t.Fatal("trailer must be dropped unconditionally")
	}
	if !a.ShouldFilter(0, selectedExtra, time.Time{}) {
		t.Fatal("selected extra section should pass")
	}
	if a.ShouldFilter(0, unselectedExtra, time.Time{}) {
		t.Fatal("unselected extra section should be dropped")
	}
}

func TestReleaseAtPrefersFavTime(t *testing.T) {
	pub := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fav := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := VideoInfo{PubTime: pub, FavTime: fav}
	if !v.ReleaseAt().Equal(fav) {
		t.Fatalf("ReleaseAt() = %v, want fav_time %v", v.ReleaseAt(), fav)
	}
	v2 := VideoInfo{PubTime: pub}
	if !v2.ReleaseAt().Equal(pub) {
		t.Fatalf("ReleaseAt() without fav_time = %v, want pubtime %v", v2.ReleaseAt(), pub)
	}
}

package source

import "context"

// pagedStream lazily pulls one page at a time from Client.FetchCandidates,
// caching the current page and replaying it item-by-item. It backs all five
// variants, bangumi included; bangumi's section selection is applied per
// item by Bangumi.ShouldFilter, not by the stream.
type pagedStream struct {
	client  Client
	adapter Adapter
	page    int
	buf     []VideoInfo
	bufIdx  int
	idx     int
	done    bool
}

func newPagedStream(client Client, adapter Adapter) *pagedStream {
	return &pagedStream{client: client, adapter: adapter, page: 1}
}

func (s *pagedStream) Next(ctx context.Context) (VideoInfo, bool, error) {
	for {
		if s.bufIdx < len(s.buf) {
			item := s.buf[s.bufIdx]
			s.bufIdx++
			s.idx++
			return item, true, nil
		}
		if s.done {
			return VideoInfo{}, false, nil
		}
		page, err := s.fetchNextPage(ctx)
		if err != nil {
			return VideoInfo{}, false, err
		}
		if len(page) == 0 {
			continue
		}
		s.buf = page
		s.bufIdx = 0
	}
}

// NextPage returns one whole upstream page at a time, unconsumed by Next.
// internal/refresh uses this so it can apply the "don't stop scanning until
// a full page is older than the high-water mark" rule from spec.md §4.4,
// which per-item consumption alone can't express.
func (s *pagedStream) NextPage(ctx context.Context) ([]VideoInfo, bool, error) {
	page, err := s.fetchNextPage(ctx)
	if err != nil {
		return nil, false, err
	}
	if page == nil {
		return nil, false, nil
	}
	return page, true, nil
}

// fetchNextPage pulls the next non-empty page, or signals exhaustion by
// returning (nil, nil) once the upstream returns an empty page.
func (s *pagedStream) fetchNextPage(ctx context.Context) ([]VideoInfo, error) {
	if s.done {
		return nil, nil
	}
	page, err := s.client.FetchCandidates(ctx, s.adapter, s.page)
	if err != nil {
		return nil, err
	}
	s.page++
	if len(page) == 0 {
		s.done = true
		return nil, nil
	}
	return page, nil
}

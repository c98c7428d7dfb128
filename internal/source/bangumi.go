package source

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// Bangumi adapts a serialized-season source. It adds selected_section_ids
// (spec.md §4.2): when present, the stream yields every main episode
// (section_type == 0) plus every episode inside a selected section,
// tagged with that section's title; trailers (section_type == 1) are
// dropped unconditionally regardless of selection.
type Bangumi struct {
	base
	selectedSections map[int]bool
}

func NewBangumi(vs *domain.VideoSource, ruleTree *rule.Node) (*Bangumi, error) {
	selected := map[int]bool{}
	if len(vs.SelectedSectionIDs) > 0 {
		var ids []int
		if err := json.Unmarshal(vs.SelectedSectionIDs, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			selected[id] = true
		}
	}
	return &Bangumi{base: newBase(vs, ruleTree), selectedSections: selected}, nil
}

func (b *Bangumi) Refresh(ctx context.Context, client Client) (Adapter, Stream, error) {
	return b, newPagedStream(client, b), nil
}

// ShouldFilter drops trailers unconditionally and extras whose section was
// not selected; main episodes (section_type == 0) always pass.
func (b *Bangumi) ShouldFilter(idx int, item VideoInfo, hwm time.Time) bool {
	if item.SectionType == 1 {
		return false
	}
	if item.SectionType == 0 {
		return true
	}
	return b.selectedSections[item.SectionID]
}

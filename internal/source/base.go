package source

import (
	"time"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// base is embedded by every variant adapter; it wraps the VideoSource row
// itself (spec.md §3) and supplies the default ShouldTake/ShouldFilter/
// SetRelationID implementations, identical across variants except for the
// bangumi section-filter override in bangumi.go.
type base struct {
	vs       *domain.VideoSource
	ruleTree *rule.Node
}

func newBase(vs *domain.VideoSource, ruleTree *rule.Node) base {
	return base{vs: vs, ruleTree: ruleTree}
}

func (b *base) DisplayName() string        { return b.vs.DisplayName }
func (b *base) Path() string               { return b.vs.Path }
func (b *base) LatestRowAt() time.Time     { return b.vs.LatestRowAt }
func (b *base) SetLatestRowAt(t time.Time) { b.vs.LatestRowAt = t }
func (b *base) Rule() *rule.Node           { return b.ruleTree }

// ShouldTake is the shared stop predicate: an item is taken iff its
// release timestamp is strictly newer than the high-water mark. The
// "don't stop until a full page is older" nuance (spec.md §4.4) is
// enforced one layer up, in internal/refresh, which only calls ShouldTake
// after confirming whether any item in the current page is newer than
// hwm — see internal/refresh's pageIsExhausted.
func (b *base) ShouldTake(idx int, releaseAt time.Time, hwm time.Time) bool {
	return releaseAt.After(hwm)
}

// ShouldFilter keeps everything by default; the bangumi variant overrides
// this to drop trailers (section_type == 1) and unselected extra sections.
func (b *base) ShouldFilter(idx int, item VideoInfo, hwm time.Time) bool {
	return true
}

// SetRelationID stamps the unified (source_id, source_type) back-reference
// shared by every variant in this repo's steady-state schema (see
// internal/domain's VideoSource doc comment).
func (b *base) SetRelationID(v *domain.Video) {
	v.SourceID = b.vs.ID
	v.SourceType = b.vs.SourceType
}

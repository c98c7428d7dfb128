package source

import (
	"fmt"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/rule"
)

// New dispatches on vs.SourceType to build the matching Adapter, with its
// rule tree already parsed. This is the one seam where the tagged-variant
// dispatch spec.md §9 calls for happens.
func New(vs *domain.VideoSource) (Adapter, error) {
	ruleTree, err := rule.Parse(vs.RuleJSON)
	if err != nil {
		return nil, fmt.Errorf("parse rule for source %s: %w", vs.ID, err)
	}

	switch vs.SourceType {
	case domain.SourceTypeCollection:
		return NewCollection(vs, ruleTree), nil
	case domain.SourceTypeFavorite:
		return NewFavorite(vs, ruleTree), nil
	case domain.SourceTypeWatchLater:
		return NewWatchLater(vs, ruleTree), nil
	case domain.SourceTypeSubmission:
		return NewSubmission(vs, ruleTree), nil
	case domain.SourceTypeBangumi:
		return NewBangumi(vs, ruleTree)
	default:
		return nil, fmt.Errorf("unknown source type %q", vs.SourceType)
	}
}

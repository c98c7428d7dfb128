// Package rule evaluates a VideoSource's optional should_download rule
// tree against a video and its upstream tags during enrich (spec.md §4.3);
// the video's pages are not passed to it. The
// upstream grammar this was distilled from is out of scope for this pack
// (see DESIGN.md), so this is a small recursive JSON-tree grammar in the
// same shape as the rest of this project's nested filter expressions: a
// tagged node with And/Or/Not combinators over leaf predicates.
package rule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brackenfield/mediasync/internal/domain"
)

type Kind string

const (
	KindTag        Kind = "tag"
	KindUploaderID Kind = "uploader_id"
	KindCategory   Kind = "category"
	KindAnd        Kind = "and"
	KindOr         Kind = "or"
	KindNot        Kind = "not"
)

// Node is the on-disk shape of VideoSource.RuleJSON. Leaf kinds (tag,
// uploader_id, category) use Value; combinator kinds use Children.
type Node struct {
	Kind     Kind    `json:"kind"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Subject is everything the rule tree can inspect about a candidate video:
// the video row and its tag list. Pages are not part of it, and no leaf kind
// looks at page count or duration.
type Subject struct {
	Video *domain.Video
	Tags  []string
}

// Parse decodes a rule tree from its JSON encoding. A nil/empty payload is
// not an error — Evaluate treats it as "always download" per spec.md §4.3.
func Parse(raw []byte) (*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("parse rule tree: %w", err)
	}
	return &n, nil
}

// Evaluate returns should_download for the given subject. A nil tree
// always returns true.
func Evaluate(n *Node, s Subject) (bool, error) {
	if n == nil {
		return true, nil
	}
	switch n.Kind {
	case KindTag:
		return containsFold(s.Tags, n.Value), nil
	case KindUploaderID:
		return s.Video != nil && s.Video.UpperID == n.Value, nil
	case KindCategory:
		return s.Video != nil && fmt.Sprintf("%d", s.Video.Category) == n.Value, nil
	case KindAnd:
		for _, child := range n.Children {
			ok, err := Evaluate(child, s)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case KindOr:
		for _, child := range n.Children {
			ok, err := Evaluate(child, s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		if len(n.Children) != 1 {
			return false, fmt.Errorf("rule node %q: not requires exactly one child, got %d", KindNot, len(n.Children))
		}
		ok, err := Evaluate(n.Children[0], s)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("unknown rule node kind %q", n.Kind)
	}
}

func containsFold(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

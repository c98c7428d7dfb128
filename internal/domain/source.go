// Package domain holds the GORM-backed row shapes for the sync pipeline:
// VideoSource, Video, and Page (spec.md §3). Modeled as GORM structs the
// way the teacher lineage's internal/domain package models its rows, with
// clause.OnConflict-driven upserts living in internal/data/repos.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SourceType discriminates the five video-source variants (spec.md §3).
// It is part of the composite unique index on Video (source_type, bvid,
// ...) because a given bvid can legitimately appear once per source type
// (e.g. the same video favorited AND present in a submissions list).
type SourceType string

const (
	SourceTypeCollection SourceType = "collection"
	SourceTypeFavorite   SourceType = "favorite"
	SourceTypeWatchLater SourceType = "watch_later"
	SourceTypeSubmission SourceType = "submission"
	SourceTypeBangumi    SourceType = "bangumi"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeCollection, SourceTypeFavorite, SourceTypeWatchLater, SourceTypeSubmission, SourceTypeBangumi:
		return true
	default:
		return false
	}
}

// EpochLatestRowAt is the initial high-water mark for a freshly configured
// source: "monotonic, initial 1970-01-01" (spec.md §3).
var EpochLatestRowAt = time.Unix(0, 0).UTC()

// VideoSource is the unified table backing all five source variants
// (spec.md §3, §6 "a video_source unified table ... coexist[s]" with the
// legacy per-variant tables; this repo targets the unified shape as the
// steady state and does not carry the legacy tables forward, since nothing
// in SPEC_FULL reads them once the migration completes).
type VideoSource struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceType  SourceType `gorm:"column:source_type;type:text;not null;index:idx_video_source_type_upstream,unique" json:"source_type"`
	UpstreamID  string     `gorm:"column:upstream_id;not null;index:idx_video_source_type_upstream,unique" json:"upstream_id"` // fid/mlid/mid/season_id depending on SourceType
	DisplayName string     `gorm:"column:display_name;not null" json:"display_name"`
	Path        string     `gorm:"column:path;not null" json:"path"`
	LatestRowAt time.Time  `gorm:"column:latest_row_at;not null" json:"latest_row_at"`

	// RuleJSON is the optional rule tree evaluated by internal/rule
	// (spec.md §4.3); nil/empty means "always download".
	RuleJSON datatypes.JSON `gorm:"column:rule_json;type:jsonb" json:"rule_json,omitempty"`

	// SelectedSectionIDs is bangumi-only (spec.md §4.2): which "extra"
	// sections to include alongside the main episodes. JSON-encoded list
	// of upstream section ids.
	SelectedSectionIDs datatypes.JSON `gorm:"column:selected_section_ids;type:jsonb" json:"selected_section_ids,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoSource) TableName() string { return "video_source" }

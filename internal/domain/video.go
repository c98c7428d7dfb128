package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Video is one upstream video/episode row (spec.md §3). The composite
// unique index is (source_id, source_type, bvid): this repo targets the
// unified VideoSource shape as the steady state, so the five
// variant-specific back-reference columns spec.md describes as coexisting
// "during a migration window" collapse to the one (source_id, source_type)
// pair. Since source_id names exactly one source row, the index still
// allows at most one row per bvid per source.
type Video struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceID   uuid.UUID  `gorm:"column:source_id;type:uuid;not null;index:idx_video_source_bvid,unique" json:"source_id"`
	SourceType SourceType `gorm:"column:source_type;type:text;not null;index:idx_video_source_bvid,unique" json:"source_type"`
	BVID       string     `gorm:"column:bvid;not null;index:idx_video_source_bvid,unique" json:"bvid"`

	Name       string `gorm:"column:name;not null" json:"name"`
	ShowTitle  string `gorm:"column:show_title" json:"show_title,omitempty"`
	UpperID    string `gorm:"column:upper_id" json:"upper_id"`
	UpperName  string `gorm:"column:upper_name" json:"upper_name"`
	Cover      string `gorm:"column:cover" json:"cover"`
	PubTime    time.Time `gorm:"column:pubtime;not null" json:"pubtime"`
	FavTime    time.Time `gorm:"column:favtime" json:"favtime,omitempty"`
	Category   int    `gorm:"column:category" json:"category"`
	Tags       datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags,omitempty"`

	SinglePage      bool   `gorm:"column:single_page;not null;default:false" json:"single_page"`
	Valid           bool   `gorm:"column:valid;not null;default:true" json:"valid"`
	ShouldDownload  bool   `gorm:"column:should_download;not null;default:true" json:"should_download"`
	DownloadStatus  int32  `gorm:"column:download_status;not null;default:0" json:"download_status"`
	Path            string `gorm:"column:path" json:"path,omitempty"`

	// Bangumi-specific, all optional (spec.md §3).
	SeasonID      *string `gorm:"column:season_id" json:"season_id,omitempty"`
	EpID          *string `gorm:"column:ep_id" json:"ep_id,omitempty"`
	EpisodeNumber *int    `gorm:"column:episode_number" json:"episode_number,omitempty"`
	SeasonNumber  *int    `gorm:"column:season_number" json:"season_number,omitempty"`
	SectionTitle  *string `gorm:"column:section_title" json:"section_title,omitempty"`
	ShareCopy     *string `gorm:"column:share_copy" json:"share_copy,omitempty"`
	Actors        *string `gorm:"column:actors" json:"actors,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Video) TableName() string { return "video" }

// HasSectionTitle implements Open Question (b): a present-but-empty string
// is treated identically to absent, matching the original project's
// `.map(|s| !s.trim().is_empty())` test rather than a bare non-nil check.
func (v *Video) HasSectionTitle() bool {
	return v.SectionTitle != nil && trimmedNonEmpty(*v.SectionTitle)
}

// IsBangumiExtra mirrors the original project's detail-fetch routine: a
// non-empty section_title, or a missing/zero episode number, routes the
// row to the single-page path shape regardless of actual page count
// (spec.md §4.8).
func (v *Video) IsBangumiExtra() bool {
	if v.HasSectionTitle() {
		return true
	}
	if v.EpisodeNumber == nil {
		return true
	}
	return *v.EpisodeNumber == 0
}

func trimmedNonEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Page is one part/episode-page of a Video: for single_page videos there is
// exactly one Page row, for multi-page videos there is one per pid
// (spec.md §3, §4.5).
type Page struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VideoID uuid.UUID `gorm:"column:video_id;type:uuid;not null;index:idx_page_video_pid,unique" json:"video_id"`
	PID     int       `gorm:"column:pid;not null;index:idx_page_video_pid,unique" json:"pid"`
	CID     string    `gorm:"column:cid;not null" json:"cid"`

	Name     string `gorm:"column:name;not null" json:"name"`
	Duration int    `gorm:"column:duration" json:"duration"`
	Width    *int   `gorm:"column:width" json:"width,omitempty"`
	Height   *int   `gorm:"column:height" json:"height,omitempty"`
	Image    string `gorm:"column:image" json:"image,omitempty"`

	DownloadStatus int32  `gorm:"column:download_status;not null;default:0" json:"download_status"`
	Path           string `gorm:"column:path" json:"path,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Page) TableName() string { return "page" }

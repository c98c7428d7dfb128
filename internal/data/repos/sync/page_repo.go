package sync

import (
	"fmt"

	"github.com/brackenfield/mediasync/internal/domain"
	"github.com/brackenfield/mediasync/internal/platform/dbctx"
	"github.com/brackenfield/mediasync/internal/platform/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PageRepo interface {
	ReplaceForVideo(c dbctx.Context, videoID uuid.UUID, rows []*domain.Page) error
	ListForVideo(c dbctx.Context, videoID uuid.UUID) ([]*domain.Page, error)
	UpdateDownloadStatus(c dbctx.Context, rows []*domain.Page) error
}

type pageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageRepo(db *gorm.DB, baseLog *logger.Logger) PageRepo {
	return &pageRepo{db: db, log: baseLog.With("repo", "PageRepo")}
}

func (r *pageRepo) db_(c dbctx.Context) *gorm.DB { return c.DB(r.db) }

// ReplaceForVideo upserts the video's current page list by (video_id, pid)
// and is meant to run inside the same transaction as the owning Video's
// detail update (spec.md §4.5: "Detail-fetch writes (pages + video) are
// transactional"). It does not delete stale pages — a video's page count
// only grows or stays level between syncs in the upstream sources this
// repo supports.
func (r *pageRepo) ReplaceForVideo(c dbctx.Context, videoID uuid.UUID, rows []*domain.Page) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].VideoID = videoID
	}
	err := r.db_(c).WithContext(c.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}, {Name: "pid"}},
		DoUpdates: clause.AssignmentColumns([]string{"cid", "name", "duration", "width", "height", "image"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("replace pages for video %s: %w", videoID, err)
	}
	return nil
}

func (r *pageRepo) ListForVideo(c dbctx.Context, videoID uuid.UUID) ([]*domain.Page, error) {
	var out []*domain.Page
	err := r.db_(c).WithContext(c.Ctx).Where("video_id = ?", videoID).Order("pid asc").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pages for video %s: %w", videoID, err)
	}
	return out, nil
}

func (r *pageRepo) UpdateDownloadStatus(c dbctx.Context, rows []*domain.Page) error {
	if len(rows) == 0 {
		return nil
	}
	gdb := r.db_(c).WithContext(c.Ctx)
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		for _, p := range rows[start:end] {
			err := gdb.Model(&domain.Page{}).Where("id = ?", p.ID).
				Updates(map[string]interface{}{"download_status": p.DownloadStatus, "path": p.Path}).Error
			if err != nil {
				return fmt.Errorf("update page download status %s: %w", p.ID, err)
			}
		}
	}
	return nil
}

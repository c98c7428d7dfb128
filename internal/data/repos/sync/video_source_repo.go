// Package sync holds the GORM repositories backing the three row shapes in
// internal/domain: VideoSource, Video, Page. Mirrors the teacher lineage's
// internal/data/repos/<domain> packages — an interface per row shape, a
// struct wrapping *gorm.DB plus a scoped *logger.Logger, and every method
// taking a dbctx.Context so callers can opt into a shared transaction.
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

type VideoSourceRepo interface {
	List(c dbctx.Context) ([]*domain.VideoSource, error)
	GetByID(c dbctx.Context, id uuid.UUID) (*domain.VideoSource, error)
	GetByTypeAndUpstreamID(c dbctx.Context, sourceType domain.SourceType, upstreamID string) (*domain.VideoSource, error)
	AdvanceLatestRowAt(c dbctx.Context, id uuid.UUID, latestRowAt interface{}) error
	Upsert(c dbctx.Context, rows []*domain.VideoSource) error
}

type videoSourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoSourceRepo(db *gorm.DB, baseLog *logger.Logger) VideoSourceRepo {
	return &videoSourceRepo{db: db, log: baseLog.With("repo", "VideoSourceRepo")}
}

func (r *videoSourceRepo) db_(c dbctx.Context) *gorm.DB { return c.DB(r.db) }

func (r *videoSourceRepo) List(c dbctx.Context) ([]*domain.VideoSource, error) {
	var out []*domain.VideoSource
	if err := r.db_(c).WithContext(c.Ctx).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list video sources: %w", err)
	}
	return out, nil
}

func (r *videoSourceRepo) GetByID(c dbctx.Context, id uuid.UUID) (*domain.VideoSource, error) {
	var out domain.VideoSource
	if err := r.db_(c).WithContext(c.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *videoSourceRepo) GetByTypeAndUpstreamID(c dbctx.Context, sourceType domain.SourceType, upstreamID string) (*domain.VideoSource, error) {
	var out domain.VideoSource
	err := r.db_(c).WithContext(c.Ctx).
		Where("source_type = ? AND upstream_id = ?", sourceType, upstreamID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdvanceLatestRowAt moves the high-water mark forward. Callers are
// responsible for only ever passing a value >= the current one — see
// internal/refresh, which computes the new mark as the max fav/pub time
// seen across an entire drained page before calling this.
func (r *videoSourceRepo) AdvanceLatestRowAt(c dbctx.Context, id uuid.UUID, latestRowAt interface{}) error {
	res := r.db_(c).WithContext(c.Ctx).
		Model(&domain.VideoSource{}).
		Where("id = ?", id).
		Update("latest_row_at", latestRowAt)
	if res.Error != nil {
		return fmt.Errorf("advance latest_row_at: %w", res.Error)
	}
	return nil
}

// Upsert seeds or merges video_source rows by (source_type, upstream_id),
// overwriting display_name, path and selected_section_ids on conflict.
func (r *videoSourceRepo) Upsert(c dbctx.Context, rows []*domain.VideoSource) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db_(c).WithContext(c.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "upstream_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "path", "selected_section_ids"}),
	}).Create(&rows).Error
}

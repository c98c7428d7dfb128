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

// upsertChunkSize is the "chunks of ten" batching the refresh and detail
// phases both write in (spec.md §4.4, §4.10).
const upsertChunkSize = 10

type VideoRepo interface {
	UpsertNew(c dbctx.Context, rows []*domain.Video) error
	ListRunnable(c dbctx.Context, sourceID uuid.UUID) ([]*domain.Video, error)
	ListPendingDetail(c dbctx.Context, sourceID uuid.UUID) ([]*domain.Video, error)
	GetByID(c dbctx.Context, id uuid.UUID) (*domain.Video, error)
	UpdateDetail(c dbctx.Context, v *domain.Video) error
	UpdateDownloadStatus(c dbctx.Context, rows []*domain.Video) error
	MarkInvalid(c dbctx.Context, id uuid.UUID) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) db_(c dbctx.Context) *gorm.DB { return c.DB(r.db) }

// UpsertNew inserts newly discovered rows in chunks of ten, ignoring rows
// that already exist for (source_id, source_type, bvid): refresh never
// overwrites a row the detail/download phases may already be working on
// (spec.md §4.4 step 4).
func (r *videoRepo) UpsertNew(c dbctx.Context, rows []*domain.Video) error {
	if len(rows) == 0 {
		return nil
	}
	gdb := r.db_(c).WithContext(c.Ctx)
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		err := gdb.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}, {Name: "source_type"}, {Name: "bvid"}},
			DoNothing: true,
		}).Create(&chunk).Error
		if err != nil {
			return fmt.Errorf("upsert video chunk [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (r *videoRepo) ListRunnable(c dbctx.Context, sourceID uuid.UUID) ([]*domain.Video, error) {
	var out []*domain.Video
	err := r.db_(c).WithContext(c.Ctx).
		Where("source_id = ? AND valid = true AND should_download = true", sourceID).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list runnable videos: %w", err)
	}
	return out, nil
}

// ListPendingDetail selects rows whose detail sentinel column is still
// empty (spec.md §4.5: "where detail is absent (sentinel columns)"): refresh
// never writes tags and a successful detail fetch always writes a JSON list
// (possibly empty), so a null tags column means detail fetch never ran for
// this row.
func (r *videoRepo) ListPendingDetail(c dbctx.Context, sourceID uuid.UUID) ([]*domain.Video, error) {
	var out []*domain.Video
	err := r.db_(c).WithContext(c.Ctx).
		Where("source_id = ? AND valid = true AND tags IS NULL", sourceID).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list videos pending detail: %w", err)
	}
	return out, nil
}

func (r *videoRepo) GetByID(c dbctx.Context, id uuid.UUID) (*domain.Video, error) {
	var out domain.Video
	if err := r.db_(c).WithContext(c.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDetail persists the full set of fields the detail-fetch phase
// (spec.md §4.5) may have filled in: name/cover/tags/category plus the
// bangumi-only columns, and valid when a -404 flips it to false.
func (r *videoRepo) UpdateDetail(c dbctx.Context, v *domain.Video) error {
	err := r.db_(c).WithContext(c.Ctx).Model(&domain.Video{}).Where("id = ?", v.ID).Updates(map[string]interface{}{
		"name":           v.Name,
		"show_title":     v.ShowTitle,
		"upper_id":       v.UpperID,
		"upper_name":     v.UpperName,
		"cover":          v.Cover,
		"category":       v.Category,
		"tags":           v.Tags,
		"single_page":    v.SinglePage,
		"valid":          v.Valid,
		"season_id":      v.SeasonID,
		"ep_id":          v.EpID,
		"episode_number": v.EpisodeNumber,
		"season_number":  v.SeasonNumber,
		"section_title":  v.SectionTitle,
		"share_copy":     v.ShareCopy,
		"actors":         v.Actors,
	}).Error
	if err != nil {
		return fmt.Errorf("update video detail %s: %w", v.ID, err)
	}
	return nil
}

// UpdateDownloadStatus batches subtask-codec writes in groups of ten, per
// spec.md §4.6: "the driver batches returns in groups of ten for update."
func (r *videoRepo) UpdateDownloadStatus(c dbctx.Context, rows []*domain.Video) error {
	if len(rows) == 0 {
		return nil
	}
	gdb := r.db_(c).WithContext(c.Ctx)
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		for _, v := range rows[start:end] {
			err := gdb.Model(&domain.Video{}).Where("id = ?", v.ID).
				Updates(map[string]interface{}{"download_status": v.DownloadStatus, "path": v.Path}).Error
			if err != nil {
				return fmt.Errorf("update download status %s: %w", v.ID, err)
			}
		}
	}
	return nil
}

func (r *videoRepo) MarkInvalid(c dbctx.Context, id uuid.UUID) error {
	err := r.db_(c).WithContext(c.Ctx).Model(&domain.Video{}).Where("id = ?", id).
		Update("valid", false).Error
	if err != nil {
		return fmt.Errorf("mark video invalid %s: %w", id, err)
	}
	return nil
}

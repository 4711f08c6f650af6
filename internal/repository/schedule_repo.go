package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/utils"
	"time"

	"gorm.io/gorm"
)

// ScheduleRepository is the job queue table.
type ScheduleRepository interface {
	PurgeOrphans(ctx context.Context, opts ...utils.DBOption) (int64, error)
	FindByJob(ctx context.Context, jobID uint, opts ...utils.DBOption) (*model.ScheduleEntry, error)
	Create(ctx context.Context, entry *model.ScheduleEntry, opts ...utils.DBOption) error
	FindDue(ctx context.Context, now time.Time, opts ...utils.DBOption) ([]model.ScheduleEntry, error)
	Claim(ctx context.Context, entryID uint, opts ...utils.DBOption) (bool, error)
	DeleteByJob(ctx context.Context, jobID uint, opts ...utils.DBOption) error
	DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) (int64, error)
	Count(ctx context.Context, opts ...utils.DBOption) (int64, error)
}

type scheduleRepository struct {
	db     *gorm.DB
	driver string
}

func NewScheduleRepository(db *gorm.DB, driver string) ScheduleRepository {
	return &scheduleRepository{db: db, driver: driver}
}

// PurgeOrphans removes rows pointing at no job.
func (r *scheduleRepository) PurgeOrphans(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("job = 0 OR job NOT IN (SELECT id FROM job)").
		Delete(&model.ScheduleEntry{})
	return result.RowsAffected, result.Error
}

func (r *scheduleRepository) FindByJob(ctx context.Context, jobID uint, opts ...utils.DBOption) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("job = ?", jobID).
		First(&entry).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleRepository) Create(ctx context.Context, entry *model.ScheduleEntry, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Job").Create(entry).Error
}

// FindDue returns entries whose due time has passed, oldest first. PostgreSQL
// compares against the server clock; SQLite stores text timestamps and is
// compared against now.
func (r *scheduleRepository) FindDue(ctx context.Context, now time.Time, opts ...utils.DBOption) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	switch r.driver {
	case common.DB_DRIVER_POSTGRES:
		db = db.Where(`"after" < NOW()`)
	default:
		db = db.Where(`"after" < ?`, now.UTC())
	}
	err := db.Order(`"after" ASC, id ASC`).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Claim deletes the entry and reports whether this caller removed it.
func (r *scheduleRepository) Claim(ctx context.Context, entryID uint, opts ...utils.DBOption) (bool, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("id = ?", entryID).
		Delete(&model.ScheduleEntry{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *scheduleRepository) DeleteByJob(ctx context.Context, jobID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("job = ?", jobID).
		Delete(&model.ScheduleEntry{}).Error
}

func (r *scheduleRepository) DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("job IN (SELECT id FROM job WHERE runtemplate_id = ?)", runTemplateID).
		Delete(&model.ScheduleEntry{})
	return result.RowsAffected, result.Error
}

func (r *scheduleRepository) Count(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.ScheduleEntry{}).Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FileStoreRepository interface {
	// Upsert replaces the file of the same field and owner.
	Upsert(ctx context.Context, file *model.StoredFile, opts ...utils.DBOption) error
	// FindForJob returns the files of a run template followed by the files
	// of one of its jobs.
	FindForJob(ctx context.Context, runTemplateID, jobID uint, opts ...utils.DBOption) ([]model.StoredFile, error)
	DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error
}

type fileStoreRepository struct {
	db *gorm.DB
}

func NewFileStoreRepository(db *gorm.DB) FileStoreRepository {
	return &fileStoreRepository{db: db}
}

func (r *fileStoreRepository) Upsert(ctx context.Context, file *model.StoredFile, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "field"}, {Name: "runtemplate_id"}, {Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_name", "file_data", "updated_at"}),
		}).
		Create(file).Error
}

func (r *fileStoreRepository) FindForJob(ctx context.Context, runTemplateID, jobID uint, opts ...utils.DBOption) ([]model.StoredFile, error) {
	var files []model.StoredFile
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ? AND job_id IN ?", runTemplateID, []uint{0, jobID}).
		Order("job_id ASC").
		Order("field ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileStoreRepository) DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.StoredFile{}).Error
}

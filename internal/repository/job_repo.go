package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, job *model.Job, opts ...utils.DBOption) error
	Update(ctx context.Context, job *model.Job, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Job, error)
	Get(ctx context.Context, param *model.GetJobParam, opts ...utils.DBOption) ([]model.Job, error)
	DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) (int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.Job, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(job).Error
}

// Update writes every column of job, zero values included.
func (r *jobRepository) Update(ctx context.Context, job *model.Job, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("RunTemplate").Save(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Job, error) {
	var job model.Job
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&job, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Get(ctx context.Context, param *model.GetJobParam, opts ...utils.DBOption) ([]model.Job, error) {
	if len(param.IDs) > 0 {
		opts = append(opts, utils.WithWhere("id IN ?", param.IDs))
	}
	if param.RunTemplateID != nil {
		opts = append(opts, utils.WithWhere("runtemplate_id = ?", *param.RunTemplateID))
	}
	if len(param.States) > 0 {
		opts = append(opts, utils.WithWhere("state IN ?", param.States))
	}
	if param.Limit != nil {
		opts = append(opts, utils.WithLimit(*param.Limit))
	}
	opts = append(opts, utils.WithOrder("id DESC"))

	var jobs []model.Job
	if err := utils.ApplyOptions(r.db.WithContext(ctx).Model(&model.Job{}), opts...).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) DeleteByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.Job{})
	return result.RowsAffected, result.Error
}

package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RunTemplateRepository interface {
	Create(ctx context.Context, rt *model.RunTemplate, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.RunTemplate, error)
	FindByCompanyAndApp(ctx context.Context, companyID, appID uint, opts ...utils.DBOption) (*model.RunTemplate, error)
	FindDue(ctx context.Context, now time.Time, opts ...utils.DBOption) ([]model.RunTemplate, error)
	UpdateColumns(ctx context.Context, id uint, columns map[string]interface{}, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error

	GetConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) ([]model.RunTemplateConfig, error)
	UpsertConfig(ctx context.Context, cfg *model.RunTemplateConfig, opts ...utils.DBOption) error
	DeleteConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error

	GetCredentialBindings(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) ([]model.RunTemplateCredential, error)
	BindCredential(ctx context.Context, runTemplateID, credentialID uint, opts ...utils.DBOption) error
	DeleteCredentialBindings(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error

	GetActionConfig(ctx context.Context, runTemplateID uint, module, mode string, opts ...utils.DBOption) (*model.ActionConfig, error)
	SaveActionConfig(ctx context.Context, cfg *model.ActionConfig, opts ...utils.DBOption) error
	DeleteActionConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error
}

type runTemplateRepository struct {
	db *gorm.DB
}

func NewRunTemplateRepository(db *gorm.DB) RunTemplateRepository {
	return &runTemplateRepository{db: db}
}

func (r *runTemplateRepository) Create(ctx context.Context, rt *model.RunTemplate, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit(clause.Associations).Create(rt).Error
}

func (r *runTemplateRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.RunTemplate, error) {
	var rt model.RunTemplate
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&rt, id).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

func (r *runTemplateRepository) FindByCompanyAndApp(ctx context.Context, companyID, appID uint, opts ...utils.DBOption) (*model.RunTemplate, error) {
	var rt model.RunTemplate
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("company_id = ? AND app_id = ?", companyID, appID).
		Order("id ASC").
		First(&rt).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

// FindDue returns enabled templates whose next run is unset or has passed.
func (r *runTemplateRepository) FindDue(ctx context.Context, now time.Time, opts ...utils.DBOption) ([]model.RunTemplate, error) {
	var templates []model.RunTemplate
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("interv <> ? AND interv <> ''", "n").
		Where("next_schedule IS NULL OR next_schedule <= ?", now.UTC()).
		Order("id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *runTemplateRepository) UpdateColumns(ctx context.Context, id uint, columns map[string]interface{}, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.RunTemplate{}).
		Where("id = ?", id).
		Updates(columns).Error
}

func (r *runTemplateRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.RunTemplate{}, id).Error
}

func (r *runTemplateRepository) GetConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) ([]model.RunTemplateConfig, error) {
	var configs []model.RunTemplateConfig
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Order("name ASC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *runTemplateRepository) UpsertConfig(ctx context.Context, cfg *model.RunTemplateConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "runtemplate_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "config_type"}),
		}).
		Create(cfg).Error
}

func (r *runTemplateRepository) DeleteConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.RunTemplateConfig{}).Error
}

// GetCredentialBindings loads the bound credentials with their type and values.
func (r *runTemplateRepository) GetCredentialBindings(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) ([]model.RunTemplateCredential, error) {
	var bindings []model.RunTemplateCredential
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("Credential.CredentialType").
		Preload("Credential.Values").
		Where("runtemplate_id = ?", runTemplateID).
		Order("id ASC").
		Find(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *runTemplateRepository) BindCredential(ctx context.Context, runTemplateID, credentialID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&model.RunTemplateCredential{RunTemplateID: runTemplateID, CredentialsID: credentialID}).Error
}

func (r *runTemplateRepository) DeleteCredentialBindings(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.RunTemplateCredential{}).Error
}

func (r *runTemplateRepository) GetActionConfig(ctx context.Context, runTemplateID uint, module, mode string, opts ...utils.DBOption) (*model.ActionConfig, error) {
	var cfg model.ActionConfig
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ? AND module = ? AND mode = ?", runTemplateID, module, mode).
		First(&cfg).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *runTemplateRepository) SaveActionConfig(ctx context.Context, cfg *model.ActionConfig, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "runtemplate_id"}, {Name: "module"}, {Name: "mode"}},
			DoUpdates: clause.AssignmentColumns([]string{"options"}),
		}).
		Create(cfg).Error
}

func (r *runTemplateRepository) DeleteActionConfigs(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.ActionConfig{}).Error
}

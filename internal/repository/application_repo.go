package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Application, error)
	GetFields(ctx context.Context, appID uint, opts ...utils.DBOption) ([]model.AppConfigField, error)
	CreateField(ctx context.Context, field *model.AppConfigField, opts ...utils.DBOption) error
	CreateCompany(ctx context.Context, company *model.Company, opts ...utils.DBOption) error
	FindCompanyByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Company, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit(clause.Associations).Create(app).Error
}

func (r *applicationRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Application, error) {
	var app model.Application
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&app, id).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) GetFields(ctx context.Context, appID uint, opts ...utils.DBOption) ([]model.AppConfigField, error) {
	var fields []model.AppConfigField
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("app_id = ?", appID).
		Order("keyname ASC").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *applicationRepository) CreateField(ctx context.Context, field *model.AppConfigField, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(field).Error
}

func (r *applicationRepository) CreateCompany(ctx context.Context, company *model.Company, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(company).Error
}

func (r *applicationRepository) FindCompanyByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Company, error) {
	var company model.Company
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&company, id).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

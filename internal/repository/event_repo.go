package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	"gorm.io/gorm"
)

type EventRepository interface {
	CreateSource(ctx context.Context, src *model.EventSource, opts ...utils.DBOption) error
	FindEnabledSources(ctx context.Context, opts ...utils.DBOption) ([]model.EventSource, error)
	UpdateLastProcessed(ctx context.Context, sourceID uint, inversion int64, opts ...utils.DBOption) error
	CreateRule(ctx context.Context, rule *model.EventRule, opts ...utils.DBOption) error
	// FindRules returns the enabled rules of a source, highest priority first.
	FindRules(ctx context.Context, sourceID uint, opts ...utils.DBOption) ([]model.EventRule, error)
	DeleteRulesByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreateSource(ctx context.Context, src *model.EventSource, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(src).Error
}

func (r *eventRepository) FindEnabledSources(ctx context.Context, opts ...utils.DBOption) ([]model.EventSource, error) {
	var sources []model.EventSource
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *eventRepository) UpdateLastProcessed(ctx context.Context, sourceID uint, inversion int64, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.EventSource{}).
		Where("id = ?", sourceID).
		Update("last_processed_id", inversion).Error
}

func (r *eventRepository) CreateRule(ctx context.Context, rule *model.EventRule, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(rule).Error
}

func (r *eventRepository) FindRules(ctx context.Context, sourceID uint, opts ...utils.DBOption) ([]model.EventRule, error) {
	var rules []model.EventRule
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("event_source_id = ? AND enabled = ?", sourceID, true).
		Order("priority DESC").
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *eventRepository) DeleteRulesByRunTemplate(ctx context.Context, runTemplateID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("runtemplate_id = ?", runTemplateID).
		Delete(&model.EventRule{}).Error
}

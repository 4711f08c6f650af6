package repository

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepository interface {
	Create(ctx context.Context, cred *model.Credential, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Credential, error)
	SetValue(ctx context.Context, credentialID uint, name, value, typ string, opts ...utils.DBOption) error
	DeleteValues(ctx context.Context, credentialID uint, opts ...utils.DBOption) error
	// Delete removes the credential with its values and run template bindings.
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
	CreateType(ctx context.Context, ct *model.CredentialType, opts ...utils.DBOption) error
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *model.Credential, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("CredentialType").Create(cred).Error
}

func (r *credentialRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Credential, error) {
	var cred model.Credential
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("CredentialType").
		Preload("Values").
		First(&cred, id).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// SetValue stores one credential key, replacing an existing value.
func (r *credentialRepository) SetValue(ctx context.Context, credentialID uint, name, value, typ string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "credential_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "type"}),
		}).
		Create(&model.CredentialValue{CredentialID: credentialID, Name: name, Value: value, Type: typ}).Error
}

func (r *credentialRepository) DeleteValues(ctx context.Context, credentialID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("credential_id = ?", credentialID).
		Delete(&model.CredentialValue{}).Error
}

func (r *credentialRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("credentials_id = ?", id).
		Delete(&model.RunTemplateCredential{}).Error
	if err != nil {
		return err
	}
	if err := r.DeleteValues(ctx, id, opts...); err != nil {
		return err
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Credential{}, id).Error
}

func (r *credentialRepository) CreateType(ctx context.Context, ct *model.CredentialType, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(ct).Error
}

package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// ActionMap maps an action name to whether it is enabled.
type ActionMap map[string]bool

type RunTemplate struct {
	ID           uint                          `gorm:"primaryKey"`
	Name         string                        `gorm:"type:varchar(255)"`
	AppID        uint                          `gorm:"column:app_id;not null;index"`
	CompanyID    uint                          `gorm:"column:company_id;index"`
	Interv       string                        `gorm:"column:interv;type:varchar(1);not null;default:n"`
	Cron         string                        `gorm:"type:varchar(128)"`
	Executor     string                        `gorm:"type:varchar(64)"`
	Prepared     bool                          `gorm:"not null"`
	Note         string                        `gorm:"type:text"`
	Success      datatypes.JSONType[ActionMap] `gorm:"type:text"`
	Fail         datatypes.JSONType[ActionMap] `gorm:"type:text"`
	NextSchedule sql.NullTime
	LastSchedule sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time

	App     *Application `gorm:"foreignKey:AppID"`
	Company *Company     `gorm:"foreignKey:CompanyID"`
}

func (RunTemplate) TableName() string {
	return "runtemplate"
}

// Actions returns the success or fail map for an outcome.
func (r *RunTemplate) Actions(success bool) ActionMap {
	if success {
		return r.Success.Data()
	}
	return r.Fail.Data()
}

// RunTemplateConfig is a per-template environment override.
type RunTemplateConfig struct {
	ID            uint   `gorm:"primaryKey"`
	RunTemplateID uint   `gorm:"column:runtemplate_id;not null;uniqueIndex:idx_configuration_rt_name"`
	AppID         uint   `gorm:"column:app_id"`
	CompanyID     uint   `gorm:"column:company_id"`
	Name          string `gorm:"type:varchar(128);not null;uniqueIndex:idx_configuration_rt_name"`
	Value         string `gorm:"type:text"`
	ConfigType    string `gorm:"column:config_type;type:varchar(32)"`
}

func (RunTemplateConfig) TableName() string {
	return "configuration"
}

// RunTemplateCredential binds a credential to a run template.
type RunTemplateCredential struct {
	ID            uint `gorm:"primaryKey"`
	RunTemplateID uint `gorm:"column:runtemplate_id;not null;uniqueIndex:idx_runtplcreds_rt_cred"`
	CredentialsID uint `gorm:"column:credentials_id;not null;uniqueIndex:idx_runtplcreds_rt_cred"`

	Credential *Credential `gorm:"foreignKey:CredentialsID"`
}

func (RunTemplateCredential) TableName() string {
	return "runtplcreds"
}

const (
	ActionModeSuccess = "success"
	ActionModeFail    = "fail"
)

// ActionConfig holds the options of one action for one outcome.
type ActionConfig struct {
	ID            uint              `gorm:"primaryKey"`
	RunTemplateID uint              `gorm:"column:runtemplate_id;not null;uniqueIndex:idx_actionconfig_rt_module_mode"`
	Module        string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_actionconfig_rt_module_mode"`
	Mode          string            `gorm:"type:varchar(16);not null;uniqueIndex:idx_actionconfig_rt_module_mode"`
	Options       datatypes.JSONMap `gorm:"type:text"`
}

func (ActionConfig) TableName() string {
	return "actionconfig"
}

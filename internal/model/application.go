package model

import "time"

type Application struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"type:varchar(255);not null"`
	Code         string `gorm:"type:varchar(64);uniqueIndex"`
	Description  string `gorm:"type:text"`
	Executable   string `gorm:"type:varchar(255)"`
	CmdParams    string `gorm:"column:cmdparams;type:text"`
	Setup        string `gorm:"type:text"`
	OCIImage     string `gorm:"column:ociimage;type:varchar(255)"`
	Homepage     string `gorm:"type:varchar(255)"`
	Requirements string `gorm:"type:varchar(255)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Fields []AppConfigField `gorm:"foreignKey:AppID"`
}

func (Application) TableName() string {
	return "apps"
}

// AppConfigField declares one configuration key an application accepts.
type AppConfigField struct {
	ID          uint   `gorm:"primaryKey"`
	AppID       uint   `gorm:"column:app_id;not null;uniqueIndex:idx_conffield_app_key"`
	Keyname     string `gorm:"type:varchar(128);not null;uniqueIndex:idx_conffield_app_key"`
	Type        string `gorm:"type:varchar(32);not null;default:string"`
	Name        string `gorm:"type:varchar(255)"`
	Description string `gorm:"type:text"`
	Hint        string `gorm:"type:varchar(255)"`
	Note        string `gorm:"type:text"`
	Defval      string `gorm:"type:text"`
	Required    bool   `gorm:"default:false"`
	Secret      bool   `gorm:"default:false"`
	Multiline   bool   `gorm:"default:false"`
	Expiring    bool   `gorm:"default:false"`
}

func (AppConfigField) TableName() string {
	return "conffield"
}

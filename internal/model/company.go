package model

import "time"

// Company is the tenant owning run templates and credentials.
type Company struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(255);not null"`
	Code       string `gorm:"type:varchar(64);uniqueIndex"`
	ZabbixHost string `gorm:"type:varchar(255)"`
	Email      string `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Company) TableName() string {
	return "company"
}

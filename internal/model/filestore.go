package model

import "time"

// StoredFile is the content of a file-typed field, kept for a run template
// or, when JobID is set, for one job only.
type StoredFile struct {
	ID            uint   `gorm:"primaryKey"`
	Field         string `gorm:"type:varchar(128);not null;uniqueIndex:idx_file_store_field_owner"`
	FileName      string `gorm:"column:file_name;type:varchar(255);not null"`
	Data          []byte `gorm:"column:file_data"`
	RunTemplateID uint   `gorm:"column:runtemplate_id;not null;uniqueIndex:idx_file_store_field_owner"`
	JobID         uint   `gorm:"column:job_id;not null;uniqueIndex:idx_file_store_field_owner"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (StoredFile) TableName() string {
	return "file_store"
}

package model

import "time"

// CredentialType is a tenant-visible instance of a credential plugin.
type CredentialType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Class     string `gorm:"type:varchar(64);not null"`
	UUID      string `gorm:"column:uuid;type:varchar(36)"`
	Logo      string `gorm:"type:varchar(255)"`
	CompanyID uint   `gorm:"column:company_id"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CredentialType) TableName() string {
	return "credential_type"
}

type Credential struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"type:varchar(255);not null"`
	CompanyID        uint   `gorm:"column:company_id;index"`
	CredentialTypeID uint   `gorm:"column:credential_type_id"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	CredentialType *CredentialType   `gorm:"foreignKey:CredentialTypeID"`
	Values         []CredentialValue `gorm:"foreignKey:CredentialID"`
}

func (Credential) TableName() string {
	return "credentials"
}

// ValueMap returns the stored values keyed by name.
func (c *Credential) ValueMap() map[string]string {
	out := make(map[string]string, len(c.Values))
	for _, v := range c.Values {
		out[v.Name] = v.Value
	}
	return out
}

// CredentialValue is one stored key of a credential.
type CredentialValue struct {
	ID           uint   `gorm:"primaryKey"`
	CredentialID uint   `gorm:"column:credential_id;not null;uniqueIndex:idx_credata_cred_name"`
	Name         string `gorm:"type:varchar(128);not null;uniqueIndex:idx_credata_cred_name"`
	Value        string `gorm:"type:text"`
	Type         string `gorm:"type:varchar(32)"`
}

func (CredentialValue) TableName() string {
	return "credata"
}

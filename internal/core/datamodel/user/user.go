package user

import "time"

// User is a row of the typed user directory table.
type User struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Email       string    `gorm:"column:email;not null"`
	Name        string    `gorm:"column:name;not null"`
	Role        string    `gorm:"column:role;not null"`
	TenantID    string    `gorm:"column:tenant_id;not null;index"`
	ReportingTo *string   `gorm:"column:reporting_to;index"`
	IsDeleted   bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

package model

import (
	"errors"
	"time"
)

// PropertyModel 房源数据模型(引擎只读写状态字段)
type PropertyModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Reference string    `gorm:"type:varchar(64);index" json:"reference"`
	Status    string    `gorm:"type:varchar(32);not null;index" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (PropertyModel) TableName() string {
	return "properties"
}

// Validate 验证房源模型
func (pm *PropertyModel) Validate() error {
	if pm.ID == "" {
		return errors.New("property ID is required")
	}
	if pm.Status == "" {
		return errors.New("property status is required")
	}
	return nil
}

// PropertyOwnerModel 房源与业主关联
type PropertyOwnerModel struct {
	PropertyID string    `gorm:"primaryKey;type:varchar(64)" json:"property_id"`
	OwnerID    string    `gorm:"primaryKey;type:varchar(64);index" json:"owner_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (PropertyOwnerModel) TableName() string {
	return "property_owners"
}

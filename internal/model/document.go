package model

import (
	"errors"
	"time"
)

// DocumentModel 文档登记数据模型
// PropertyID、OwnerID、ConsultantID 至多设置一个; PropertyID 为空的业主文档可跨房源复用
type DocumentModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DocTypeID    string     `gorm:"type:varchar(64);not null;index" json:"doc_type_id"`
	PropertyID   *string    `gorm:"type:varchar(64);index" json:"property_id"`
	OwnerID      *string    `gorm:"type:varchar(64);index" json:"owner_id"`
	ConsultantID *string    `gorm:"type:varchar(64);index" json:"consultant_id"`
	FileName     string     `gorm:"type:varchar(255)" json:"file_name"`
	ValidUntil   *time.Time `json:"valid_until"`                                                    // 为空表示永不过期
	Status       string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"` // active/archived/expired
	CreatedAt    time.Time  `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (DocumentModel) TableName() string {
	return "documents"
}

// Validate 验证文档模型
func (dm *DocumentModel) Validate() error {
	if dm.ID == "" {
		return errors.New("document ID is required")
	}
	if dm.DocTypeID == "" {
		return errors.New("document type is required")
	}
	scopes := 0
	for _, ref := range []*string{dm.PropertyID, dm.OwnerID, dm.ConsultantID} {
		if ref != nil && *ref != "" {
			scopes++
		}
	}
	if scopes > 1 {
		return errors.New("document can belong to at most one of property, owner, consultant")
	}
	return nil
}

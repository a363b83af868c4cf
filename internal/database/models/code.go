// Package models 数据模型 - 兑换码
package models

import (
	"time"

	"gorm.io/datatypes"
)

// CodeMetadata 兑换码元数据（创建时写入，之后不再计算）
type CodeMetadata struct {
	Generator string `json:"generator"`
	Version   string `json:"version"`
	Signature string `json:"signature"` // 兑换码的 sha256 摘要
}

// Code 兑换码表
type Code struct {
	ID        uint64                           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code      string                           `gorm:"column:code;size:64;not null;uniqueIndex" json:"code"`
	CreatedAt time.Time                        `gorm:"column:created_at;not null" json:"created_at"`
	Used      bool                             `gorm:"column:used;not null;default:false;index" json:"used"`
	UsedAt    *time.Time                       `gorm:"column:used_at" json:"used_at,omitempty"`
	Category  string                           `gorm:"column:category;size:100;index" json:"category"`
	Metadata  datatypes.JSONType[CodeMetadata] `gorm:"column:metadata" json:"metadata"`
}

// TableName 表名
func (Code) TableName() string {
	return "codes"
}

// IsUsed 是否已使用
func (c *Code) IsUsed() bool {
	return c.Used && c.UsedAt != nil
}

// Meta 元数据
func (c *Code) Meta() CodeMetadata {
	return c.Metadata.Data()
}

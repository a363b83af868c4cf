// Package repository 兑换码数据仓库
package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smysle/huzz-rng/internal/database/models"
)

// ErrCodeNotFound 兑换码不存在
var ErrCodeNotFound = errors.New("兑换码不存在")

// ConflictError 兑换码重复
type ConflictError struct {
	Code string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("兑换码已存在: %s", e.Code)
}

// CodeRepository 兑换码仓库，每次读写都直接访问数据库
type CodeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCodeRepository 创建兑换码仓库
func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db, now: time.Now}
}

// Insert 创建兑换码，code 已存在（无论是否使用）时返回 *ConflictError
func (r *CodeRepository) Insert(code, category string, meta models.CodeMetadata) (*models.Code, error) {
	record := &models.Code{
		Code:      code,
		CreatedAt: r.now().UTC(),
		Category:  category,
		Metadata:  datatypes.NewJSONType(meta),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Code{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Code: code}
		}
		return tx.Create(record).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, &ConflictError{Code: code}
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Exists 兑换码是否存在
func (r *CodeRepository) Exists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Code{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// GetByCode 根据兑换码获取
func (r *CodeRepository) GetByCode(code string) (*models.Code, error) {
	var c models.Code
	err := r.db.Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed 标记兑换码已使用，只有未使用的兑换码会被更新
func (r *CodeRepository) MarkUsed(code string) (bool, error) {
	result := r.db.Model(&models.Code{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": r.now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete 删除兑换码
func (r *CodeRepository) Delete(code string) (bool, error) {
	result := r.db.Where("code = ?", code).Delete(&models.Code{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll 删除所有兑换码，返回删除数量
func (r *CodeRepository) DeleteAll() (int64, error) {
	result := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Code{})
	return result.RowsAffected, result.Error
}

// CodeInfo 兑换码信息（用于显示和导出）
type CodeInfo struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Used     bool   `json:"used"`
}

// List 按创建时间倒序列出兑换码（同一时间按 id），includeUsed 为 false 时只返回未使用的
func (r *CodeRepository) List(includeUsed bool) ([]CodeInfo, error) {
	query := r.db.Model(&models.Code{})
	if !includeUsed {
		query = query.Where("used = ?", false)
	}

	infos := make([]CodeInfo, 0)
	err := query.Select("code", "category", "used").Order("created_at DESC").Order("id DESC").Scan(&infos).Error
	return infos, err
}

// ListRecords 获取完整记录，按 id 升序
func (r *CodeRepository) ListRecords() ([]models.Code, error) {
	var codes []models.Code
	err := r.db.Order("id ASC").Find(&codes).Error
	return codes, err
}

// Restore 写回备份记录，已存在的兑换码跳过；原 id 被占用时重新分配，
// 创建时间保持不变，所以恢复的记录在 List 中仍按原来的先后排列。返回写入数量
func (r *CodeRepository) Restore(records []models.Code) (int, error) {
	restored := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := records[i]

			var count int64
			if err := tx.Model(&models.Code{}).Where("code = ?", rec.Code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			if err := tx.Model(&models.Code{}).Where("id = ?", rec.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				rec.ID = 0
			}
			// 统一存 UTC，保证 created_at 排序和时区无关
			rec.CreatedAt = rec.CreatedAt.UTC()

			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			restored++
		}
		return nil
	})
	return restored, err
}

// CodeStats 兑换码统计
type CodeStats struct {
	Total      int64            `json:"total"`
	Used       int64            `json:"used"`
	Unused     int64            `json:"unused"`
	ByCategory map[string]int64 `json:"by_category"` // 各分类未使用数量
}

// CountStats 统计兑换码
func (r *CodeRepository) CountStats() (*CodeStats, error) {
	stats := &CodeStats{ByCategory: make(map[string]int64)}

	if err := r.db.Model(&models.Code{}).Where("used = ?", true).Count(&stats.Used).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Code{}).Where("used = ?", false).Count(&stats.Unused).Error; err != nil {
		return nil, err
	}
	stats.Total = stats.Used + stats.Unused

	var rows []struct {
		Category string
		Count    int64
	}
	err := r.db.Model(&models.Code{}).
		Select("category, COUNT(*) AS count").
		Where("used = ?", false).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByCategory[row.Category] = row.Count
	}

	return stats, nil
}

package service

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/internal/export"
)

// ExportService 兑换码导出服务，只读取数据
type ExportService struct {
	codeRepo *repository.CodeRepository
	cfg      *config.ExportConfig
}

// NewExportService 创建导出服务
func NewExportService(codeRepo *repository.CodeRepository, cfg *config.ExportConfig) *ExportService {
	return &ExportService{codeRepo: codeRepo, cfg: cfg}
}

// DefaultPath 默认导出路径: <dir>/codes_<时间>.<格式>
func (s *ExportService) DefaultPath(format export.Format, now time.Time) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("codes_%s.%s", now.Format("20060102_150405"), format))
}

// ExportFile 导出全部兑换码（含已使用）到文件，path 为空时使用默认路径
func (s *ExportService) ExportFile(format export.Format, path string) ([]string, error) {
	rows, err := s.codeRepo.List(true)
	if err != nil {
		return nil, fmt.Errorf("读取兑换码失败: %w", err)
	}

	now := time.Now()
	if path == "" {
		path = s.DefaultPath(format, now)
	}
	return export.WriteFile(path, format, rows, export.Options{Title: s.cfg.Title, GeneratedAt: now})
}

// ExportTo 导出到 w，PNG 只输出指定页
func (s *ExportService) ExportTo(w io.Writer, format export.Format, page int) error {
	rows, err := s.codeRepo.List(true)
	if err != nil {
		return fmt.Errorf("读取兑换码失败: %w", err)
	}
	return export.Write(w, format, rows, export.Options{Title: s.cfg.Title, GeneratedAt: time.Now(), Page: page})
}

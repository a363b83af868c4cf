// Package export 兑换码导出（CSV / PDF / XLSX / PNG）
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/pkg/logger"
)

var (
	ErrUnknownFormat  = errors.New("不支持的导出格式")
	ErrPageOutOfRange = errors.New("页码超出范围")
)

// Format 导出格式
type Format string

const (
	CSV  Format = "csv"
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
	PNG  Format = "png"
)

// ParseFormat 解析导出格式
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case CSV, PDF, XLSX, PNG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath 根据文件扩展名推断格式
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType HTTP 响应类型
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Options 导出选项
type Options struct {
	Title       string
	GeneratedAt time.Time
	Page        int // PNG 写入 io.Writer 时输出的页码，从 1 开始
	PerPage     int // PNG 每页条目数
}

// Write 把兑换码写入 w
func Write(w io.Writer, format Format, rows []repository.CodeInfo, opts Options) error {
	switch format {
	case CSV:
		return WriteCSV(w, rows)
	case PDF:
		return WritePDF(w, rows, opts.Title)
	case XLSX:
		return WriteXLSX(w, rows, opts.Title)
	case PNG:
		return WritePNG(w, rows, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile 导出到文件，返回写入的文件列表（PNG 多页时每页一个文件）
func WriteFile(path string, format Format, rows []repository.CodeInfo, opts Options) ([]string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建导出目录失败: %w", err)
		}
	}

	var files []string
	var err error
	if format == PNG {
		files, err = writePNGFiles(path, rows, opts)
	} else {
		err = writeSingleFile(path, func(w io.Writer) error {
			return Write(w, format, rows, opts)
		})
		files = []string{path}
	}
	if err != nil {
		logger.Error().Err(err).Str("path", path).Str("format", string(format)).Msg("导出兑换码失败")
		return nil, err
	}

	logger.Info().
		Str("path", path).
		Str("format", string(format)).
		Int("records", len(rows)).
		Int("files", len(files)).
		Msg("兑换码导出完成")
	return files, nil
}

// writeSingleFile 写入失败时删除不完整的文件
func writeSingleFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建导出文件失败: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("写入导出文件失败: %w", err)
	}
	return nil
}

// usedLabel CSV / XLSX 中的使用状态
func usedLabel(used bool) string {
	if used {
		return "Yes"
	}
	return "No"
}

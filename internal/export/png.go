package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/pkg/imggen"
)

func sheetConfig(rows []repository.CodeInfo, opts Options) imggen.CodeSheetConfig {
	sheetRows := make([]imggen.SheetRow, 0, len(rows))
	for _, row := range rows {
		sheetRows = append(sheetRows, imggen.SheetRow{Code: row.Code, Category: row.Category, Used: row.Used})
	}
	return imggen.CodeSheetConfig{
		Title:       opts.Title,
		Rows:        sheetRows,
		PerPage:     opts.PerPage,
		GeneratedAt: opts.GeneratedAt,
	}
}

// WritePNG 输出 opts.Page 指定的一页（默认第一页）
func WritePNG(w io.Writer, rows []repository.CodeInfo, opts Options) error {
	page := opts.Page
	if page <= 0 {
		page = 1
	}

	total := imggen.PageCount(len(rows), opts.PerPage)
	if page > total {
		return fmt.Errorf("%w: 第 %d 页 (共 %d 页)", ErrPageOutOfRange, page, total)
	}

	pages, err := imggen.GenerateCodeSheets(sheetConfig(rows, opts))
	if err != nil {
		return err
	}
	if _, err := w.Write(pages[page-1]); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return nil
}

// writePNGFiles 第一页写入 path，其余页写入 name_2.png、name_3.png ...
func writePNGFiles(path string, rows []repository.CodeInfo, opts Options) ([]string, error) {
	pages, err := imggen.GenerateCodeSheets(sheetConfig(rows, opts))
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".png"
	}

	files := make([]string, 0, len(pages))
	for i, data := range pages {
		name := path
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i+1, ext)
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			return files, fmt.Errorf("写入 PNG 失败: %w", err)
		}
		files = append(files, name)
	}
	return files, nil
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/smysle/huzz-rng/internal/database/repository"
)

// csvHeader 表头
var csvHeader = []string{"Code", "Category", "Used"}

// WriteCSV 每条兑换码一行：code, category, Yes/No
func WriteCSV(w io.Writer, rows []repository.CodeInfo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("写入 CSV 失败: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Code, row.Category, usedLabel(row.Used)}); err != nil {
			return fmt.Errorf("写入 CSV 失败: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("写入 CSV 失败: %w", err)
	}
	return nil
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/smysle/huzz-rng/internal/database/repository"
)

// XLSXSheet 工作表名称
const XLSXSheet = "Codes"

// WriteXLSX 生成单工作表的 Excel 文件，第一行为标题，第二行为表头
func WriteXLSX(w io.Writer, rows []repository.CodeInfo, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(XLSXSheet)
	if err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(XLSXSheet, "A", "A", 56)
	f.SetColWidth(XLSXSheet, "B", "B", 20)
	f.SetColWidth(XLSXSheet, "C", "C", 10)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(XLSXSheet, "A1", title)
	f.SetCellStyle(XLSXSheet, "A1", "A1", titleStyle)

	for i, h := range csvHeader {
		c, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(XLSXSheet, c, h)
	}
	f.SetCellStyle(XLSXSheet, "A2", "C2", headerStyle)

	for i, row := range rows {
		r := i + 3
		f.SetCellStr(XLSXSheet, cell("A", r), row.Code)
		f.SetCellStr(XLSXSheet, cell("B", r), row.Category)
		f.SetCellStr(XLSXSheet, cell("C", r), usedLabel(row.Used))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("生成 XLSX 失败: %w", err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/smysle/huzz-rng/internal/database/repository"
)

// PDF 版式（单位 pt，坐标从页面左上角算起）
const (
	pdfMarginX    = 30.0
	pdfMarginY    = 40.0
	pdfTitleGap   = 30.0
	pdfLineHeight = 20.0
	pdfFontSize   = 12.0
)

// pdfLine 单条兑换码的文本
func pdfLine(row repository.CodeInfo) string {
	line := fmt.Sprintf("%s (%s)", row.Code, row.Category)
	if row.Used {
		line += " [USED]"
	}
	return line
}

// WritePDF 生成 Letter 纸张的兑换码列表，每行一条，写满一页后换页
func WritePDF(w io.Writer, rows []repository.CodeInfo, title string) error {
	if err := buildPDF(rows, title).Output(w); err != nil {
		return fmt.Errorf("生成 PDF 失败: %w", err)
	}
	return nil
}

func buildPDF(rows []repository.CodeInfo, title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("Stivion Huzz RNG", true)
	pdf.SetTitle(title, true)

	// 内置字体使用 cp1252 编码
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", pdfFontSize)

	y := pdfMarginY
	pdf.Text(pdfMarginX, y, tr(title))
	y += pdfTitleGap

	for i, row := range rows {
		pdf.Text(pdfMarginX, y, tr(pdfLine(row)))
		y += pdfLineHeight
		// 最后一行之后不再换页，避免末尾出现空白页
		if y > pageHeight-pdfMarginY && i < len(rows)-1 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", pdfFontSize)
			y = pdfMarginY
		}
	}

	return pdf
}

// Package imggen 图片生成模块
package imggen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultPerPage 每页默认条目数
const DefaultPerPage = 20

// SheetRow 兑换码条目
type SheetRow struct {
	Code     string
	Category string
	Used     bool
}

// CodeSheetConfig 兑换码清单图片配置
type CodeSheetConfig struct {
	Title       string
	Rows        []SheetRow
	PerPage     int
	GeneratedAt time.Time
}

// 颜色定义
var (
	bgColor      = color.RGBA{25, 25, 35, 255}    // 深色背景
	topBgColor   = color.RGBA{30, 60, 114, 255}   // 渐变起始
	cardColor    = color.RGBA{35, 35, 50, 200}    // 卡片背景
	codeColor    = color.RGBA{255, 215, 0, 255}   // 未使用的兑换码
	textColor    = color.RGBA{255, 255, 255, 255} // 白色文字
	subTextColor = color.RGBA{180, 180, 180, 255} // 灰色文字
	usedColor    = color.RGBA{205, 92, 92, 255}   // 已使用标记
	accentColor  = color.RGBA{138, 43, 226, 255}  // 紫色强调
)

// 布局
const (
	sheetWidth   = 720
	headerHeight = 110
	itemHeight   = 44
	footerHeight = 50
	padding      = 20
)

type fontSet struct {
	title  font.Face
	text   font.Face
	code   font.Face
	footer font.Face
}

var (
	fontsOnce sync.Once
	fonts     *fontSet
	fontsErr  error
)

// loadFonts 加载内置 Go 字体（只包含 Latin 字符）
func loadFonts() (*fontSet, error) {
	fontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("解析字体失败: %w", err)
			return
		}
		mono, err := truetype.Parse(gomono.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("解析字体失败: %w", err)
			return
		}
		fonts = &fontSet{
			title:  truetype.NewFace(regular, &truetype.Options{Size: 26}),
			text:   truetype.NewFace(regular, &truetype.Options{Size: 15}),
			code:   truetype.NewFace(mono, &truetype.Options{Size: 18}),
			footer: truetype.NewFace(regular, &truetype.Options{Size: 12}),
		}
	})
	return fonts, fontsErr
}

// PageCount 计算页数，没有条目时也会生成一页
func PageCount(rows, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if rows == 0 {
		return 1
	}
	return (rows + perPage - 1) / perPage
}

// GenerateCodeSheets 生成分页的兑换码清单 PNG，每页一张
func GenerateCodeSheets(cfg CodeSheetConfig) ([][]byte, error) {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if cfg.GeneratedAt.IsZero() {
		cfg.GeneratedAt = time.Now()
	}

	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}

	total := PageCount(len(cfg.Rows), perPage)
	pages := make([][]byte, 0, total)
	for page := 0; page < total; page++ {
		start := page * perPage
		end := start + perPage
		if end > len(cfg.Rows) {
			end = len(cfg.Rows)
		}

		data, err := drawPage(fs, cfg, cfg.Rows[start:end], page+1, total, perPage)
		if err != nil {
			return nil, err
		}
		pages = append(pages, data)
	}
	return pages, nil
}

// drawPage 绘制单页
func drawPage(fs *fontSet, cfg CodeSheetConfig, rows []SheetRow, page, total, perPage int) ([]byte, error) {
	itemCount := len(rows)
	if itemCount == 0 {
		itemCount = 1
	}
	height := headerHeight + itemCount*itemHeight + footerHeight + padding*2

	dc := gg.NewContext(sheetWidth, height)
	drawBackground(dc, sheetWidth, height)
	drawHeader(dc, fs, cfg.Title, page, total)

	startY := float64(headerHeight + padding)
	if len(rows) == 0 {
		dc.SetFontFace(fs.text)
		dc.SetColor(subTextColor)
		dc.DrawStringAnchored("No codes", float64(sheetWidth)/2, startY+itemHeight/2, 0.5, 0.5)
	}
	for i, row := range rows {
		index := (page-1)*perPage + i + 1
		drawRow(dc, fs, startY+float64(i*itemHeight), index, row)
	}

	drawFooter(dc, fs, height, cfg.GeneratedAt)
	return exportPNG(dc)
}

// drawBackground 绘制渐变背景
func drawBackground(dc *gg.Context, width, height int) {
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		r := uint8(float64(topBgColor.R)*(1-t) + float64(bgColor.R)*t)
		g := uint8(float64(topBgColor.G)*(1-t) + float64(bgColor.G)*t)
		b := uint8(float64(topBgColor.B)*(1-t) + float64(bgColor.B)*t)
		dc.SetColor(color.RGBA{r, g, b, 255})
		dc.DrawRectangle(0, float64(y), float64(width), 1)
		dc.Fill()
	}
}

// drawHeader 绘制标题和页码
func drawHeader(dc *gg.Context, fs *fontSet, title string, page, total int) {
	dc.SetFontFace(fs.title)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(sheetWidth)/2, 42, 0.5, 0.5)

	dc.SetFontFace(fs.text)
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored(fmt.Sprintf("Page %d / %d", page, total), float64(sheetWidth)/2, 76, 0.5, 0.5)

	dc.SetColor(accentColor)
	dc.SetLineWidth(2)
	dc.DrawLine(50, 100, float64(sheetWidth-50), 100)
	dc.Stroke()
}

// drawRow 绘制一条兑换码
func drawRow(dc *gg.Context, fs *fontSet, y float64, index int, row SheetRow) {
	cardX := float64(padding)
	cardW := float64(sheetWidth - padding*2)
	cardH := float64(itemHeight - 6)
	midY := y + cardH/2

	dc.SetColor(cardColor)
	dc.DrawRoundedRectangle(cardX, y, cardW, cardH, 8)
	dc.Fill()

	dc.SetFontFace(fs.text)
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored(fmt.Sprintf("%d", index), cardX+30, midY, 0.5, 0.5)

	dc.SetFontFace(fs.code)
	if row.Used {
		dc.SetColor(subTextColor)
	} else {
		dc.SetColor(codeColor)
	}
	dc.DrawStringAnchored(row.Code, cardX+65, midY, 0, 0.5)

	dc.SetFontFace(fs.text)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(row.Category, cardX+cardW-110, midY, 1, 0.5)

	if row.Used {
		dc.SetColor(usedColor)
		dc.DrawStringAnchored("USED", cardX+cardW-20, midY, 1, 0.5)
	} else {
		dc.SetColor(accentColor)
		dc.DrawCircle(cardX+cardW-40, midY, 5)
		dc.Fill()
	}
}

// drawFooter 绘制底部
func drawFooter(dc *gg.Context, fs *fontSet, height int, generatedAt time.Time) {
	dc.SetFontFace(fs.footer)
	dc.SetColor(subTextColor)
	footerText := fmt.Sprintf("Generated %s | Stivion Huzz RNG", generatedAt.Format("2006-01-02 15:04"))
	dc.DrawStringAnchored(footerText, float64(sheetWidth)/2, float64(height-25), 0.5, 0.5)
}

// exportPNG 导出为 PNG
func exportPNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

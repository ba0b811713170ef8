package render

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

const (
	margin      = 16.0
	titleBarH   = 56.0
	panelGap    = 12.0
	cellPadding = 10.0
)

// Config controls board geometry.
type Config struct {
	Width     int
	RowHeight int
	MaxRows   int
	Watermark string
}

// Renderer implements standings.Renderer on a gg raster canvas.
type Renderer struct {
	cfg    Config
	theme  Theme
	badges *BadgeCache
	logger *zap.Logger

	titleFace     font.Face
	subtitleFace  font.Face
	headerFace    font.Face
	rowFace       font.Face
	rowBoldFace   font.Face
	watermarkFace font.Face
}

// New builds a Renderer with the Go font family. badges may be nil; boards
// then render without badge images.
func New(cfg Config, theme Theme, badges *BadgeCache, logger *zap.Logger) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.RowHeight <= 0 {
		return nil, fmt.Errorf("render width and row height must be > 0")
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 40
	}

	r := &Renderer{cfg: cfg, theme: theme, badges: badges, logger: logger}
	var err error
	if r.titleFace, err = loadFace(gobold.TTF, 22); err != nil {
		return nil, err
	}
	if r.subtitleFace, err = loadFace(goregular.TTF, 13); err != nil {
		return nil, err
	}
	if r.headerFace, err = loadFace(gobold.TTF, 14); err != nil {
		return nil, err
	}
	if r.rowFace, err = loadFace(goregular.TTF, 15); err != nil {
		return nil, err
	}
	if r.rowBoldFace, err = loadFace(gobold.TTF, 15); err != nil {
		return nil, err
	}
	if r.watermarkFace, err = loadFace(gobold.TTF, 48); err != nil {
		return nil, err
	}
	return r, nil
}

func loadFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	return face, nil
}

// Render draws one table as a single-panel board and returns PNG bytes.
func (r *Renderer) Render(ctx context.Context, table standings.Table) ([]byte, error) {
	return r.Composite(ctx, []standings.Table{table})
}

// Composite stacks one panel per table vertically into one PNG.
func (r *Renderer) Composite(ctx context.Context, tables []standings.Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to render")
	}

	height := margin
	for _, table := range tables {
		height += r.panelHeight(table) + panelGap
	}
	height += margin - panelGap

	dc := gg.NewContext(r.cfg.Width, int(height))
	dc.SetColor(r.theme.Background)
	dc.Clear()

	y := margin
	for _, table := range tables {
		r.drawPanel(ctx, dc, table, y)
		y += r.panelHeight(table) + panelGap
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) visibleRows(table standings.Table) []standings.Row {
	rows := table.Rows
	if len(rows) > r.cfg.MaxRows {
		rows = rows[:r.cfg.MaxRows]
	}
	return rows
}

func (r *Renderer) panelHeight(table standings.Table) float64 {
	rowH := float64(r.cfg.RowHeight)
	return titleBarH + rowH + float64(len(r.visibleRows(table)))*rowH
}

func (r *Renderer) drawPanel(ctx context.Context, dc *gg.Context, table standings.Table, top float64) {
	rows := r.visibleRows(table)
	cols := activeColumns(rows)
	panelW := float64(r.cfg.Width) - 2*margin
	widths := columnWidths(cols, panelW-2*cellPadding)
	rowH := float64(r.cfg.RowHeight)
	panelH := r.panelHeight(table)

	dc.SetColor(r.theme.PanelBG)
	dc.DrawRoundedRectangle(margin, top, panelW, panelH, 8)
	dc.Fill()

	r.drawTitleBar(dc, table, top, panelW)
	headerTop := top + titleBarH
	r.drawHeaderRow(dc, cols, widths, headerTop)

	y := headerTop + rowH
	for i, row := range rows {
		r.drawRow(ctx, dc, table, cols, widths, row, i, y)
		y += rowH
	}

	if r.cfg.Watermark != "" {
		r.drawWatermark(dc, top, panelW, panelH)
	}
}

func (r *Renderer) drawTitleBar(dc *gg.Context, table standings.Table, top, panelW float64) {
	dc.SetColor(r.theme.TitleBG)
	dc.DrawRoundedRectangle(margin, top, panelW, titleBarH, 8)
	dc.Fill()
	// Square off the bottom corners so the bar joins the header row.
	dc.SetColor(r.theme.TitleBG)
	dc.DrawRectangle(margin, top+titleBarH/2, panelW, titleBarH/2)
	dc.Fill()

	dc.SetColor(r.theme.Accent)
	dc.DrawRectangle(margin, top, 4, titleBarH)
	dc.Fill()

	dc.SetFontFace(r.titleFace)
	dc.SetColor(r.theme.Text)
	title := truncate(dc, table.Title, panelW*0.6)
	dc.DrawStringAnchored(title, margin+cellPadding+6, top+titleBarH/2, 0, 0.35)

	dc.SetFontFace(r.subtitleFace)
	dc.SetColor(r.theme.Muted)
	sub := fmt.Sprintf("updated %s", table.FetchedAt.UTC().Format("02 Jan 2006 15:04 UTC"))
	dc.DrawStringAnchored(sub, margin+panelW-cellPadding, top+titleBarH/2, 1, 0.35)
}

func (r *Renderer) drawHeaderRow(dc *gg.Context, cols []column, widths []float64, top float64) {
	panelW := float64(r.cfg.Width) - 2*margin
	rowH := float64(r.cfg.RowHeight)

	dc.SetColor(r.theme.HeaderBG)
	dc.DrawRectangle(margin, top, panelW, rowH)
	dc.Fill()

	dc.SetFontFace(r.headerFace)
	dc.SetColor(r.theme.Muted)
	x := margin + cellPadding
	for i, col := range cols {
		drawAligned(dc, col.title, x, top+rowH/2, widths[i], col.align)
		x += widths[i]
	}
}

func (r *Renderer) drawRow(
	ctx context.Context,
	dc *gg.Context,
	table standings.Table,
	cols []column,
	widths []float64,
	row standings.Row,
	index int,
	top float64,
) {
	panelW := float64(r.cfg.Width) - 2*margin
	rowH := float64(r.cfg.RowHeight)

	bg := r.theme.RowBG
	if index%2 == 1 {
		bg = r.theme.RowAltBG
	}
	dc.SetColor(bg)
	dc.DrawRectangle(margin, top, panelW, rowH)
	dc.Fill()

	x := margin + cellPadding
	for i, col := range cols {
		switch col.title {
		case "P":
			r.drawPosition(dc, row, x, top, widths[i], rowH)
		case "Class":
			r.drawClassChip(dc, table, row, x, top, widths[i], rowH)
		case "Driver":
			r.drawDriver(ctx, dc, row, x, top, widths[i], rowH)
		default:
			dc.SetFontFace(r.rowFace)
			dc.SetColor(r.theme.Text)
			drawAligned(dc, truncate(dc, col.value(row), widths[i]-cellPadding), x, top+rowH/2, widths[i], col.align)
		}
		x += widths[i]
	}
}

// drawPosition renders the position number, with a podium circle behind
// P1-P3.
func (r *Renderer) drawPosition(dc *gg.Context, row standings.Row, x, top, width, rowH float64) {
	cx := x + width/2
	cy := top + rowH/2
	face := r.rowFace
	if row.Position >= 1 && row.Position <= 3 {
		dc.SetColor(r.theme.Podium[row.Position-1])
		dc.DrawCircle(cx, cy, rowH*0.36)
		dc.Fill()
		dc.SetColor(r.theme.Background)
		face = r.rowBoldFace
	} else {
		dc.SetColor(r.theme.Text)
	}
	dc.SetFontFace(face)
	dc.DrawStringAnchored(fmt.Sprintf("%d", row.Position), cx, cy, 0.5, 0.35)
}

func (r *Renderer) drawDriver(ctx context.Context, dc *gg.Context, row standings.Row, x, top, width, rowH float64) {
	textX := x
	if r.badges != nil && row.BadgeURL != "" {
		if img := r.badges.Get(ctx, row.BadgeURL); img != nil {
			badge := scaleToHeight(img, int(rowH)-10)
			dc.DrawImageAnchored(badge, int(x)+badgeSlot(badge)/2, int(top+rowH/2), 0.5, 0.5)
			textX += float64(badgeSlot(badge)) + 6
			width -= float64(badgeSlot(badge)) + 6
		}
	}
	dc.SetFontFace(r.rowFace)
	dc.SetColor(r.theme.Text)
	dc.DrawStringAnchored(truncate(dc, row.Driver, width-cellPadding), textX, top+rowH/2, 0, 0.35)
}

func badgeSlot(img image.Image) int {
	return img.Bounds().Dx()
}

// drawClassChip renders the class name inside a tinted rounded chip.
func (r *Renderer) drawClassChip(dc *gg.Context, table standings.Table, row standings.Row, x, top, width, rowH float64) {
	if row.Class == "" {
		return
	}
	dc.SetFontFace(r.rowFace)
	label := truncate(dc, row.Class, width-2*cellPadding)
	labelW, _ := dc.MeasureString(label)
	chipW := labelW + 14
	chipH := rowH * 0.62
	chipY := top + (rowH-chipH)/2

	tint := r.theme.classTint(row.Class, table.Tints)
	tint.A = 0x59
	dc.SetColor(tint)
	dc.DrawRoundedRectangle(x, chipY, chipW, chipH, chipH/2)
	dc.Fill()

	dc.SetColor(r.theme.Text)
	dc.DrawStringAnchored(label, x+chipW/2, top+rowH/2, 0.5, 0.35)
}

func (r *Renderer) drawWatermark(dc *gg.Context, top, panelW, panelH float64) {
	cx := margin + panelW/2
	cy := top + panelH/2
	dc.Push()
	dc.RotateAbout(gg.Radians(-28), cx, cy)
	dc.SetFontFace(r.watermarkFace)
	dc.SetColor(r.theme.Watermark)
	dc.DrawStringAnchored(r.cfg.Watermark, cx, cy, 0.5, 0.5)
	dc.Pop()
}

func drawAligned(dc *gg.Context, text string, x, y, width float64, align alignment) {
	switch align {
	case alignRight:
		dc.DrawStringAnchored(text, x+width-cellPadding, y, 1, 0.35)
	case alignCenter:
		dc.DrawStringAnchored(text, x+width/2, y, 0.5, 0.35)
	default:
		dc.DrawStringAnchored(text, x, y, 0, 0.35)
	}
}

// truncate shortens text with an ellipsis until it fits max width under the
// currently set font face.
func truncate(dc *gg.Context, text string, max float64) string {
	if max <= 0 {
		return ""
	}
	if w, _ := dc.MeasureString(text); w <= max {
		return text
	}
	runes := []rune(text)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := dc.MeasureString(candidate); w <= max {
			return candidate
		}
	}
	return "…"
}

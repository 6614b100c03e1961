package schedule

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Размеры сетки календаря
const (
	imageWidth    = 1120
	headerHeight  = 70
	cellHeight    = 120
	cellPadding   = 6.0
	columnsPerRow = 7
	cellRadius    = 8.0
	shadowOffset  = 3.0
)

// Цветовая схема
var (
	bgColor         = color.RGBA{245, 246, 248, 255}
	textColor       = color.RGBA{80, 85, 90, 220}
	slotShadowColor = color.RGBA{0, 0, 0, 20}

	densityColors = map[Density]color.RGBA{
		DensityNone:   {220, 220, 220, 200},
		DensityLow:    {198, 229, 172, 230},
		DensityMedium: {133, 193, 85, 230},
		DensityHigh:   {76, 140, 43, 240},
	}
)

// RenderCalendarPNG рисует половину месяца сеткой 7 колонок, цвет ячейки по загрузке
func RenderCalendarPNG(view View) ([]byte, error) {
	rows := (len(view.Days) + columnsPerRow - 1) / columnsPerRow
	if rows == 0 {
		rows = 1
	}
	height := headerHeight + rows*cellHeight

	dc := gg.NewContext(imageWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	drawTitle(dc, view)

	cellWidth := float64(imageWidth) / columnsPerRow
	for i, day := range view.Days {
		x := float64(i%columnsPerRow) * cellWidth
		y := float64(headerHeight + (i/columnsPerRow)*cellHeight)
		drawDay(dc, day, x, y, cellWidth)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode calendar png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTitle рисует месяц и половину
func drawTitle(dc *gg.Context, view View) {
	title := fmt.Sprintf("%s %d, days %d-%d", view.Month, view.Year, firstDay(view), lastDay(view))
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(imageWidth)/2, float64(headerHeight)/2, 0.5, 0.5)
}

// drawDay рисует одну ячейку дня с тенью
func drawDay(dc *gg.Context, day Day, x, y, width float64) {
	w := width - cellPadding*2
	h := float64(cellHeight) - cellPadding*2

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+cellPadding+shadowOffset, y+cellPadding+shadowOffset, w, h, cellRadius)
	dc.Fill()

	fill := densityColors[day.Density]
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+cellPadding, y+cellPadding, w, h, cellRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+cellPadding, y+cellPadding, w, h, cellRadius)
	dc.Stroke()

	dc.SetColor(textColor)
	dc.DrawString(fmt.Sprintf("%s %d", day.DayName[:3], day.DayNumber), x+cellPadding+8, y+cellPadding+18)
	dc.DrawString(fmt.Sprintf("%d free", day.AvailableSlotCount), x+cellPadding+8, y+cellPadding+38)

	lineY := y + cellPadding + 58
	for i, slot := range day.Slots {
		if i == 3 {
			dc.DrawString(fmt.Sprintf("+%d more", len(day.Slots)-i), x+cellPadding+8, lineY)
			break
		}
		label := slot.StartTime.String() + "-" + slot.EndTime.String()
		if slot.IsBooked {
			label += " *"
		}
		dc.DrawString(label, x+cellPadding+8, lineY)
		lineY += 16
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func firstDay(view View) int {
	if len(view.Days) == 0 {
		return 0
	}
	return view.Days[0].DayNumber
}

func lastDay(view View) int {
	if len(view.Days) == 0 {
		return 0
	}
	return view.Days[len(view.Days)-1].DayNumber
}

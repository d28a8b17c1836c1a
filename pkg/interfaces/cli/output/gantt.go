package output

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// GanttChart lays planned orders out as release-to-need bars, one row per part
type GanttChart struct {
	Width        int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar is one planned order on the chart
type GanttBar struct {
	PartNumber  entities.PartNumber
	OrderType   entities.OrderType
	Quantity    decimal.Decimal
	ReleaseDate time.Time
	NeedDate    time.Time
	PastDue     bool
	X           int
	Width       int
}

// NewGanttChart sizes the chart to span every order's release and need dates
func NewGanttChart(orders []*entities.PlannedOrder) *GanttChart {
	gc := &GanttChart{
		Width:        1200,
		MarginLeft:   180,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 60,
		RowHeight:    26,
	}
	for i, o := range orders {
		if i == 0 || o.ReleaseDate.Before(gc.StartTime) {
			gc.StartTime = o.ReleaseDate
		}
		if i == 0 || o.NeedDate.After(gc.EndTime) {
			gc.EndTime = o.NeedDate
		}
	}
	// one day of padding on either side keeps zero-length orders visible
	gc.StartTime = gc.StartTime.AddDate(0, 0, -1)
	gc.EndTime = gc.EndTime.AddDate(0, 0, 1)
	return gc
}

func (gc *GanttChart) height(rows int) int {
	return gc.MarginTop + rows*gc.RowHeight + gc.MarginBottom
}

func (gc *GanttChart) xFor(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	if total <= 0 {
		return gc.MarginLeft
	}
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

// GenerateSVG renders the chart
func (gc *GanttChart) GenerateSVG(orders []*entities.PlannedOrder) string {
	var svg strings.Builder
	rows := gc.groupByPart(orders)
	parts := make([]entities.PartNumber, 0, len(rows))
	for pn := range rows {
		parts = append(parts, pn)
	}
	sort.Slice(parts, func(i, j int) bool {
		a, b := rows[parts[i]][0].ReleaseDate, rows[parts[j]][0].ReleaseDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return parts[i] < parts[j]
	})

	height := gc.height(max(len(parts), 1))
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, height)
	svg.WriteString(`<style>`)
	svg.WriteString(`.part-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`</style>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, gc.Width, height)
	fmt.Fprintf(&svg, `<text x="%d" y="30" class="title">Planned Orders</text>`, gc.MarginLeft)

	if len(parts) == 0 {
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="part-label">No planned orders</text>`, gc.MarginLeft, gc.MarginTop+16)
		svg.WriteString(`</svg>`)
		return svg.String()
	}

	gc.drawWeekGrid(&svg, height)
	for i, pn := range parts {
		y := gc.MarginTop + i*gc.RowHeight
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="part-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-10, y+gc.RowHeight/2+4, html.EscapeString(string(pn)))
		for _, bar := range rows[pn] {
			gc.drawBar(&svg, bar, y)
		}
	}
	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) groupByPart(orders []*entities.PlannedOrder) map[entities.PartNumber][]GanttBar {
	rows := make(map[entities.PartNumber][]GanttBar)
	for _, o := range orders {
		x := gc.xFor(o.ReleaseDate)
		rows[o.PartNumber] = append(rows[o.PartNumber], GanttBar{
			PartNumber:  o.PartNumber,
			OrderType:   o.Type,
			Quantity:    o.Quantity,
			ReleaseDate: o.ReleaseDate,
			NeedDate:    o.NeedDate,
			PastDue:     o.PastDue,
			X:           x,
			Width:       max(gc.xFor(o.NeedDate)-x, 3),
		})
	}
	for pn := range rows {
		bars := rows[pn]
		sort.Slice(bars, func(i, j int) bool { return bars[i].ReleaseDate.Before(bars[j].ReleaseDate) })
	}
	return rows
}

func (gc *GanttChart) drawWeekGrid(svg *strings.Builder, height int) {
	bottom := height - gc.MarginBottom
	for t := gc.StartTime; t.Before(gc.EndTime); t = t.AddDate(0, 0, 7) {
		x := gc.xFor(t)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`, x, gc.MarginTop, x, bottom)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			x, bottom+15, t.Format("Jan 2"))
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#333">`,
		bar.X, rowY+3, bar.Width, gc.RowHeight-6, barColor(bar))
	fmt.Fprintf(svg, `<title>%s %s qty %s release %s need %s</title></rect>`,
		html.EscapeString(string(bar.PartNumber)), bar.OrderType, bar.Quantity.String(),
		bar.ReleaseDate.Format(dateLayout), bar.NeedDate.Format(dateLayout))
}

func barColor(bar GanttBar) string {
	if bar.PastDue {
		return "#E53935"
	}
	if bar.OrderType == entities.Production {
		return "#4CAF50"
	}
	return "#2196F3"
}

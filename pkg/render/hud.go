package render

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/netflow-map/pkg/arcs"
	"github.com/sudorandom/netflow-map/pkg/ingest"
)

var (
	colorHUDBox    = color.RGBA{0, 0, 0, 100}
	colorHUDBorder = color.RGBA{36, 42, 53, 255}
	colorHUDAccent = color.RGBA{0, 255, 0, 255}
	colorHUDError  = color.RGBA{255, 50, 50, 255}
)

type hudLine struct {
	label, value string
	alert        bool
}

func hudLines(stats arcs.Stats, status ingest.Status, loc *time.Location) []hudLine {
	watermark := "-"
	if status.Watermark > 0 {
		watermark = time.UnixMilli(status.Watermark).In(loc).Format("15:04:05")
	}
	source := hudLine{label: "SOURCE", value: "ok"}
	switch {
	case status.LastError != "":
		source.value, source.alert = "retrying", true
	case status.LastPoll.IsZero():
		source.value = "waiting"
	}
	return []hudLine{
		{label: "LIVE ARCS", value: fmt.Sprintf("%d", stats.Live)},
		{label: "QUEUED", value: fmt.Sprintf("%d", stats.Queued)},
		{label: "STEP", value: fmt.Sprintf("%.2f", stats.Step)},
		{label: "WATERMARK", value: watermark},
		source,
	}
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	if g.monoSource == nil {
		return
	}
	margin, fontSize := 20.0, 12.0
	if g.width > 2000 {
		margin, fontSize = 40.0, 24.0
	}
	var status ingest.Status
	if g.status != nil {
		status = g.status()
	}
	lines := hudLines(g.animator.Stats(), status, time.Local)

	face := &text.GoTextFace{Source: g.monoSource, Size: fontSize}
	lineH := fontSize * 1.5
	boxW, boxH := fontSize*16, lineH*float64(len(lines))+fontSize
	boxX, boxY := margin, float64(g.height)-margin-boxH

	vector.DrawFilledRect(screen, float32(boxX), float32(boxY), float32(boxW), float32(boxH), colorHUDBox, false)
	vector.StrokeRect(screen, float32(boxX), float32(boxY), float32(boxW), float32(boxH), 1, colorHUDBorder, false)
	vector.DrawFilledRect(screen, float32(boxX), float32(boxY), 3, float32(boxH), colorHUDAccent, false)

	for i, l := range lines {
		y := boxY + fontSize/2 + float64(i)*lineH

		labelOp := &text.DrawOptions{}
		labelOp.GeoM.Translate(boxX+10, y)
		labelOp.ColorScale.Scale(1, 1, 1, 0.5)
		text.Draw(screen, l.label, face, labelOp)

		valueOp := &text.DrawOptions{}
		valueOp.GeoM.Translate(boxX+boxW-10, y)
		valueOp.PrimaryAlign = text.AlignEnd
		if l.alert {
			valueOp.ColorScale.ScaleWithColor(colorHUDError)
		}
		text.Draw(screen, l.value, face, valueOp)
	}
}

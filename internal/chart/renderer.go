package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"chart_analyst/internal/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	colorPrice   = color.RGBA{R: 33, G: 33, B: 33, A: 255}
	colorMAShort = color.RGBA{R: 30, G: 136, B: 229, A: 255}
	colorMALong  = color.RGBA{R: 251, G: 140, B: 0, A: 255}
	colorEntry   = color.RGBA{R: 96, G: 125, B: 139, A: 255}
	colorStop    = color.RGBA{R: 229, G: 57, B: 53, A: 255}
	colorTake    = color.RGBA{R: 67, G: 160, B: 71, A: 255}
	colorRSI     = color.RGBA{R: 142, G: 36, B: 170, A: 255}
	colorGuide   = color.RGBA{R: 158, G: 158, B: 158, A: 255}
)

type Options struct {
	Width      vg.Length
	Height     vg.Length
	TimeFormat string
	Overbought float64
	Oversold   float64
}

func DefaultOptions() Options {
	return Options{
		Width:      10 * vg.Inch,
		Height:     7 * vg.Inch,
		TimeFormat: "01-02 15:04",
		Overbought: 70,
		Oversold:   30,
	}
}

// Renderer рисует цену, средние, уровни плана и панель RSI в PNG.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = def.TimeFormat
	}
	if opts.Overbought <= 0 || opts.Oversold <= 0 {
		opts.Overbought, opts.Oversold = def.Overbought, def.Oversold
	}
	return &Renderer{opts: opts}
}

func Title(label string) string {
	return fmt.Sprintf("%s — analysis chart", label)
}

// Render не меняет входы. Любая ошибка, RenderError и пустой артефакт.
func (r *Renderer) Render(
	series models.Series,
	set models.IndicatorSet,
	plan models.TradePlan,
	label string,
) (models.ChartArtifact, error) {
	return r.RenderWithBands(series, set, plan, label, r.opts.Overbought, r.opts.Oversold)
}

// RenderWithBands: как Render, но пороги RSI на панели берутся из запроса.
func (r *Renderer) RenderWithBands(
	series models.Series,
	set models.IndicatorSet,
	plan models.TradePlan,
	label string,
	overbought, oversold float64,
) (art models.ChartArtifact, err error) {
	if overbought <= 0 || oversold <= 0 || oversold >= overbought {
		overbought, oversold = r.opts.Overbought, r.opts.Oversold
	}
	if series.Len() <= 1 {
		return models.ChartArtifact{}, models.RenderError{
			Reason: fmt.Sprintf("series needs at least 2 bars, have %d", series.Len()),
		}
	}
	if set.Len() != series.Len() || len(set.MAShort) != series.Len() || len(set.RSI) != series.Len() {
		return models.ChartArtifact{}, models.RenderError{
			Reason: fmt.Sprintf("indicators are not aligned with series (%d bars)", series.Len()),
		}
	}
	if label == "" {
		label = series.Symbol()
	}

	// gonum может паниковать на вырожденных диапазонах
	defer func() {
		if p := recover(); p != nil {
			art, err = models.ChartArtifact{}, models.RenderError{Reason: fmt.Sprintf("draw panic: %v", p)}
		}
	}()

	xs := make([]float64, series.Len())
	for i, ts := range series.Times() {
		xs[i] = float64(ts.Unix())
	}

	price, err := r.pricePanel(series, set, plan, xs, label)
	if err != nil {
		return models.ChartArtifact{}, models.RenderError{Reason: "price panel", Err: err}
	}
	osc, err := r.oscillatorPanel(set, xs, overbought, oversold)
	if err != nil {
		return models.ChartArtifact{}, models.RenderError{Reason: "oscillator panel", Err: err}
	}

	img := vgimg.New(r.opts.Width, r.opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      2 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  4 * vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{{price}, {osc}}, tiles, dc)
	price.Draw(canvases[0][0])
	osc.Draw(canvases[1][0])

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return models.ChartArtifact{}, models.RenderError{Reason: "encode png", Err: err}
	}
	if buf.Len() == 0 {
		return models.ChartArtifact{}, models.RenderError{Reason: "encoder produced empty image"}
	}

	return models.ChartArtifact{
		Label: label,
		Title: Title(label),
		PNG:   buf.Bytes(),
	}, nil
}

func (r *Renderer) pricePanel(
	series models.Series,
	set models.IndicatorSet,
	plan models.TradePlan,
	xs []float64,
	label string,
) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = Title(label)
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: r.opts.TimeFormat}
	p.X.Min, p.X.Max = xs[0], xs[len(xs)-1]
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	closes := series.Closes()
	pricePts := make(plotter.XYs, len(closes))
	for i, c := range closes {
		pricePts[i] = plotter.XY{X: xs[i], Y: c}
	}
	line, err := plotter.NewLine(pricePts)
	if err != nil {
		return nil, fmt.Errorf("price line: %w", err)
	}
	line.LineStyle.Color = colorPrice
	line.LineStyle.Width = vg.Points(1.2)
	p.Add(line)
	p.Legend.Add("Close", line)

	for _, ma := range []struct {
		name   string
		values []*float64
		color  color.Color
	}{
		{"MA short", set.MAShort, colorMAShort},
		{"MA long", set.MALong, colorMALong},
	} {
		pts := defined(ma.values, xs)
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", ma.name, err)
		}
		l.LineStyle.Color = ma.color
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(ma.name, l)
	}

	levels := []struct {
		name  string
		value *float64
		color color.Color
	}{
		{"Entry", &plan.Entry, colorEntry},
		{"SL", plan.StopLoss, colorStop},
		{"TP", plan.TakeProfit, colorTake},
	}
	for _, lvl := range levels {
		if lvl.value == nil {
			continue
		}
		if err := addLevel(p, xs, lvl.name, *lvl.value, lvl.color); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// addLevel: горизонтальная линия и подпись у левого края.
func addLevel(p *plot.Plot, xs []float64, name string, value float64, c color.Color) error {
	l, err := plotter.NewLine(plotter.XYs{{X: xs[0], Y: value}, {X: xs[len(xs)-1], Y: value}})
	if err != nil {
		return fmt.Errorf("%s level: %w", name, err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	p.Add(l)

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: xs[0], Y: value}},
		Labels: []string{name + " " + strconv.FormatFloat(value, 'f', 5, 64)},
	})
	if err != nil {
		return fmt.Errorf("%s label: %w", name, err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = c
	}
	labels.Offset = vg.Point{X: vg.Points(3), Y: vg.Points(2)}
	p.Add(labels)
	return nil
}

func (r *Renderer) oscillatorPanel(set models.IndicatorSet, xs []float64, overbought, oversold float64) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "RSI"
	p.X.Tick.Marker = plot.TimeTicks{Format: r.opts.TimeFormat}
	p.X.Min, p.X.Max = xs[0], xs[len(xs)-1]
	p.Y.Min, p.Y.Max = 0, 100
	p.Add(plotter.NewGrid())

	for _, g := range []float64{oversold, overbought} {
		l, err := plotter.NewLine(plotter.XYs{{X: xs[0], Y: g}, {X: xs[len(xs)-1], Y: g}})
		if err != nil {
			return nil, fmt.Errorf("rsi guide: %w", err)
		}
		l.LineStyle.Color = colorGuide
		l.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(l)
	}

	if pts := defined(set.RSI, xs); len(pts) > 0 {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("rsi line: %w", err)
		}
		l.LineStyle.Color = colorRSI
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
	}
	return p, nil
}

func defined(values []*float64, xs []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: *v})
	}
	return pts
}

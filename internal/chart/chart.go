// Package chart lays out the income/expense bar chart as plain SVG
// coordinates for the templates to draw.
package chart

import (
	"math"

	"github.com/shopspring/decimal"

	"keuangan/internal/core"
)

const (
	IncomeColor  = "#10b981"
	ExpenseColor = "#ef4444"
)

type Options struct {
	Width, Height float64
	// Margins around the plot area; the left margin holds tick labels.
	Top, Right, Bottom, Left float64
	Ticks                    int
}

func DefaultOptions() Options {
	return Options{Width: 640, Height: 300, Top: 16, Right: 16, Bottom: 40, Left: 72, Ticks: 4}
}

type Bar struct {
	X, Y, Width, Height float64
	Color               string
	Value               decimal.Decimal
	Tooltip             string
}

type Group struct {
	Label   string
	LabelX  float64
	Income  Bar
	Expense Bar
}

type Tick struct {
	Y     float64
	Label string
}

type LegendItem struct {
	Label string
	Color string
}

type Chart struct {
	Width, Height         float64
	PlotLeft, PlotTop     float64
	PlotRight, PlotBottom float64
	Groups                []Group
	Ticks                 []Tick
	Legend                []LegendItem
	Empty                 bool
}

// Build lays out one group of two bars per row, income on the left.
// With no rows the chart is Empty and carries only its frame.
func Build(rows []core.ChartRow, opts Options) Chart {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = def
	}
	if opts.Ticks <= 0 {
		opts.Ticks = def.Ticks
	}

	c := Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		PlotLeft:   opts.Left,
		PlotTop:    opts.Top,
		PlotRight:  opts.Width - opts.Right,
		PlotBottom: opts.Height - opts.Bottom,
		Legend: []LegendItem{
			{Label: core.Income.Label(), Color: IncomeColor},
			{Label: core.Expense.Label(), Color: ExpenseColor},
		},
		Empty: len(rows) == 0,
	}
	if c.Empty {
		return c
	}

	max := 0.0
	for _, r := range rows {
		max = math.Max(max, math.Max(r.Income.InexactFloat64(), r.Expense.InexactFloat64()))
	}
	top, step := niceScale(max, opts.Ticks)

	plotH := c.PlotBottom - c.PlotTop
	scale := func(v float64) float64 {
		if top == 0 {
			return 0
		}
		return v / top * plotH
	}

	for v := 0.0; v <= top+step/2; v += step {
		c.Ticks = append(c.Ticks, Tick{
			Y:     c.PlotBottom - scale(v),
			Label: core.FormatMillions(decimal.NewFromFloat(v)),
		})
	}

	groupW := (c.PlotRight - c.PlotLeft) / float64(len(rows))
	barW := math.Min(groupW*0.35, 48)
	const gap = 4.0
	for i, r := range rows {
		center := c.PlotLeft + groupW*(float64(i)+0.5)
		inH := scale(r.Income.InexactFloat64())
		exH := scale(r.Expense.InexactFloat64())
		c.Groups = append(c.Groups, Group{
			Label:  r.Category,
			LabelX: center,
			Income: Bar{
				X: center - gap/2 - barW, Y: c.PlotBottom - inH, Width: barW, Height: inH,
				Color: IncomeColor, Value: r.Income,
				Tooltip: r.Category + " · Income: " + core.FormatRupiah(r.Income),
			},
			Expense: Bar{
				X: center + gap/2, Y: c.PlotBottom - exH, Width: barW, Height: exH,
				Color: ExpenseColor, Value: r.Expense,
				Tooltip: r.Category + " · Expense: " + core.FormatRupiah(r.Expense),
			},
		})
	}
	return c
}

// niceScale picks a round step so that ticks steps cover max.
// A max of zero still yields a unit scale.
func niceScale(max float64, ticks int) (top, step float64) {
	if max <= 0 {
		return 1, 1 / float64(ticks)
	}
	raw := max / float64(ticks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f <= 1:
		step = mag
	case f <= 2:
		step = 2 * mag
	case f <= 2.5:
		step = 2.5 * mag
	case f <= 5:
		step = 5 * mag
	default:
		step = 10 * mag
	}
	return math.Ceil(max/step) * step, step
}

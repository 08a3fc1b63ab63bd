package report

import (
	"bytes"
	"fmt"
	"io"

	"shopware_reports/internal/metrics"

	"github.com/google/uuid"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 900
	chartHeight = 450
)

// WeeklyRevenueChart plots total revenue per week, oldest week first.
func WeeklyRevenueChart(weeks []metrics.WeekSales) (ChartImage, error) {
	values := make([]float64, len(weeks))
	labels := make([]string, len(weeks))
	for i, w := range weeks {
		values[i] = w.Revenue.InexactFloat64()
		labels[i] = w.Label
	}
	return lineChart("Total Revenue Over the Past 8 Weeks", labels, values,
		"This plot shows the total revenue generated over the past 8 weeks, helping to identify trends and patterns in revenue.")
}

// WeeklyGrossProfitChart plots gross profit per week, oldest week first.
func WeeklyGrossProfitChart(weeks []metrics.WeekSales) (ChartImage, error) {
	values := make([]float64, len(weeks))
	labels := make([]string, len(weeks))
	for i, w := range weeks {
		values[i] = w.GrossProfit.InexactFloat64()
		labels[i] = w.Label
	}
	return lineChart("Gross Profit Over the Past 8 Weeks", labels, values,
		"This plot displays the gross profit for the past 8 weeks, offering insights into profitability trends.")
}

// WeeklyHoursChart plots total technician billable hours per week.
func WeeklyHoursChart(weeks []metrics.WeekHours) (ChartImage, error) {
	bars := make([]chart.Value, len(weeks))
	for i, w := range weeks {
		bars[i] = chart.Value{Label: w.Label, Value: w.TotalHours}
	}

	graph := chart.BarChart{
		Title:    "Weekly Tech Billable Hours (Last 8 Weeks)",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		Bars:     bars,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
	}

	return renderChart(&graph, graph.Title,
		"The bar chart represents the total billable hours recorded by technicians over the last 8 weeks.")
}

func lineChart(title string, labels []string, values []float64, caption string) (ChartImage, error) {
	xs := make([]float64, len(values))
	ticks := make([]chart.Tick, len(values))
	for i := range values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: labels[i]}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: values,
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					DotColor:    drawing.ColorBlue,
					DotWidth:    4,
				},
			},
		},
	}

	return renderChart(&graph, title, caption)
}

type pngRenderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderChart(graph pngRenderer, title, caption string) (ChartImage, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return ChartImage{}, fmt.Errorf("render chart %q: %w", title, err)
	}
	return ChartImage{
		Title:   title,
		Alt:     title,
		Caption: caption,
		CID:     uuid.NewString(),
		PNG:     buf.Bytes(),
	}, nil
}

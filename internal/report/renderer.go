package report

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded report templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatMoney":   formatMoney,
		"formatPercent": formatPercent,
		"formatHours":   formatHours,
		"formatDate":    formatDate,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) RenderDaily(w io.Writer, rep *DailyReport) error {
	return r.templates.ExecuteTemplate(w, "daily.html", rep)
}

func (r *Renderer) RenderWeekly(w io.Writer, rep *WeeklyReport) error {
	return r.templates.ExecuteTemplate(w, "weekly.html", rep)
}

// DataURI makes the chart renderable in a standalone HTML file.
func (c ChartImage) DataURI() template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG))
}

// CIDRef points the chart at its inline email attachment.
func (c ChartImage) CIDRef() template.URL {
	return template.URL("cid:" + c.CID)
}

func formatMoney(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	cents := amount.Abs().Round(2).Shift(2).IntPart()
	intPart := cents / 100
	decPart := cents % 100

	var grouped string
	if intPart == 0 {
		grouped = "0"
	} else {
		var parts []string
		for intPart > 0 {
			parts = append([]string{fmt.Sprintf("%03d", intPart%1000)}, parts...)
			intPart /= 1000
		}
		grouped = strings.TrimLeft(strings.Join(parts, ","), "0")
	}

	formatted := fmt.Sprintf("$%s.%02d", grouped, decPart)
	if negative {
		return "(" + formatted + ")"
	}
	return formatted
}

func formatPercent(pct decimal.Decimal) string {
	return pct.Round(1).StringFixed(1) + "%"
}

func formatHours(hours float64) string {
	return fmt.Sprintf("%.1f", hours)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

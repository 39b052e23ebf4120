package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/yumyai/ggenrich/pkg/model"
)

// calculateColorByCompleteness maps a completeness percentage to red (0%)
// through yellow (50%) to green (100%). NA cells are white.
func calculateColorByCompleteness(value float64) string {
	if math.IsNaN(value) {
		return "#FFFFFF"
	}
	if value >= 100 {
		return "#00FF00"
	}
	if value <= 0 {
		return "#FF0000"
	}

	normalized := value / 100
	var r, g int
	if normalized <= 0.5 {
		r = 255
		g = int(math.Round(lerp(0, 255, normalized*2)))
	} else {
		r = int(math.Round(lerp(255, 0, (normalized-0.5)*2)))
		g = 255
	}
	return fmt.Sprintf("#%02X%02X00", r, g)
}

// calculateColorByPresence is the binary palette of the heatmap image.
func calculateColorByPresence(value float64) string {
	switch {
	case math.IsNaN(value):
		return "#E0E0E0"
	case value >= 1:
		return "#9FD8C0"
	default:
		return "#C5B4E3"
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Cell is one genome column of a module row.
type Cell struct {
	Text  string
	Color string
}

type heatmapRow struct {
	Module string
	Name   string
	Cells  []Cell
}

var modulePageTemplate *template.Template

func init() {
	mainTmpl := `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	<style>
		body { font-family: sans-serif; margin: 1.5em; }
		table.genetable { border-collapse: collapse; font-size: 0.85rem; }
		table.genetable th, table.genetable td { border: 1px solid #999; padding: 2px 6px; }
		td.value { text-align: right; min-width: 3.5em; }
		.legend-swatch { display: inline-block; width: 1.2em; height: 1em; vertical-align: middle; margin-right: 4px; }
		.legend-item { margin-right: 1.5em; }
	</style>
</head>
<body>
	<h1>{{.Title}}</h1>
	{{template "legend" .}}
	{{template "table" .}}
</body>
</html>`

	legendTmpl := `{{define "legend"}}
	<p class="legend">
	{{if .Binary}}
		<span class="legend-item"><span class="legend-swatch" style="background:#C5B4E3"></span>incomplete</span>
		<span class="legend-item"><span class="legend-swatch" style="background:#9FD8C0"></span>complete</span>
	{{else}}
		<span class="legend-item"><span class="legend-swatch" style="width:8em; background: linear-gradient(90deg,#FF0000,#FFFF00,#00FF00);"></span>0% to 100% of steps present</span>
	{{end}}
		<span class="legend-item"><span class="legend-swatch" style="background:#FFFFFF; border:1px solid #999"></span>NA (undefined module)</span>
	</p>
{{end}}`

	tableTmpl := `{{define "table"}}
	<table class="genetable">
		<tr>
			<th>Module</th>
			<th>Name</th>
			{{range .Genomes}}<th>{{.}}</th>{{end}}
		</tr>
		{{range .Rows}}
		<tr>
			<td>{{.Module}}</td>
			<td>{{.Name}}</td>
			{{range .Cells}}<td class="value" style="background:{{.Color | css}}">{{.Text}}</td>{{end}}
		</tr>
		{{end}}
	</table>
{{end}}`

	modulePageTemplate = template.New("module-heatmap").Funcs(template.FuncMap{
		"css": func(s string) template.CSS { return template.CSS(s) },
	})
	modulePageTemplate = template.Must(modulePageTemplate.Parse(mainTmpl))
	modulePageTemplate = template.Must(modulePageTemplate.Parse(legendTmpl))
	modulePageTemplate = template.Must(modulePageTemplate.Parse(tableTmpl))
}

// ModuleHeatmapPage renders a module table as a coloured HTML table. binary
// selects the presence palette; otherwise values are completeness percentages.
func ModuleHeatmapPage(t *model.ModuleTable, title string, binary bool) ([]byte, error) {
	colorFn := calculateColorByCompleteness
	if binary {
		colorFn = calculateColorByPresence
	}

	rows := make([]heatmapRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]Cell, len(r.Values))
		for i, v := range r.Values {
			cells[i] = Cell{Text: model.FormatModuleValue(v), Color: colorFn(v)}
		}
		rows = append(rows, heatmapRow{Module: r.Module, Name: r.Name, Cells: cells})
	}

	data := struct {
		Title   string
		Binary  bool
		Genomes []string
		Rows    []heatmapRow
	}{
		Title:   title,
		Binary:  binary,
		Genomes: t.Genomes,
		Rows:    rows,
	}

	var buf bytes.Buffer
	if err := modulePageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpSetPage is an interactive bar chart of the intersections.
func UpSetPage(xs []model.Intersection, target, title string) ([]byte, error) {
	labels := make([]string, len(xs))
	data := make([]opts.BarData, len(xs))
	for i, x := range xs {
		labels[i] = x.Label()
		color := "#4D4D4D"
		if x.Contains(target) {
			color = "#D62728"
		}
		data[i] = opts.BarData{
			Name:      x.Label(),
			Value:     x.Count,
			ItemStyle: &opts.ItemStyle{Color: color},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			ChartID:   "upset",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "highlighted: intersections containing " + target,
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Gene families"}),
	)
	bar.SetXAxis(labels).AddSeries("families", data)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

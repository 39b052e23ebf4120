package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yumyai/ggenrich/pkg/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	absentColor    = mustHex("#C5B4E3") // lavender
	presentColor   = mustHex("#9FD8C0") // sea-foam
	missingColor   = mustHex("#E0E0E0")
	barColor       = mustHex("#4D4D4D")
	highlightColor = mustHex("#D62728")
	dotOffColor    = mustHex("#D9D9D9")
)

func mustHex(s string) color.RGBA {
	var c color.RGBA
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		panic(err)
	}
	c.A = 0xff
	return c
}

// ImageFormat maps an output file name to a gonum canvas format.
func ImageFormat(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "png", "jpg", "jpeg", "svg", "pdf", "tif", "tiff":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported image format %q (png, jpeg, svg, pdf, tiff)", filepath.Ext(path))
}

// binaryGrid puts modules on X and genomes on Y, matching the transposed table.
type binaryGrid struct{ t *model.ModuleTable }

func (g binaryGrid) Dims() (c, r int)   { return len(g.t.Rows), len(g.t.Genomes) }
func (g binaryGrid) Z(c, r int) float64 { return g.t.Rows[c].Values[r] }
func (g binaryGrid) X(c int) float64    { return float64(c) }
func (g binaryGrid) Y(r int) float64    { return float64(r) }

type twoColors []color.Color

func (p twoColors) Colors() []color.Color { return p }

// swatch is a legend thumbnail filled with one colour.
type swatch struct{ c color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	r := c.Rectangle
	c.FillPolygon(s.c, []vg.Point{
		r.Min,
		{X: r.Min.X, Y: r.Max.Y},
		r.Max,
		{X: r.Max.X, Y: r.Min.Y},
	})
}

// BinaryHeatmap draws genomes x modules, 0 lavender and 1 sea-foam.
func BinaryHeatmap(t *model.ModuleTable, format string) ([]byte, error) {
	if len(t.Rows) == 0 || len(t.Genomes) == 0 {
		return nil, fmt.Errorf("%w: nothing to plot", model.ErrEmptyInput)
	}

	p := plot.New()
	p.Title.Text = "Differentially present KEGG modules"

	hm := plotter.NewHeatMap(binaryGrid{t}, twoColors{absentColor, presentColor})
	hm.Min, hm.Max = 0, 1
	hm.NaN = missingColor
	p.Add(hm)

	labels := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row.Module
	}
	p.NominalX(labels...)
	p.NominalY(t.Genomes...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	p.Legend.Add("incomplete", swatch{absentColor})
	p.Legend.Add("complete", swatch{presentColor})
	p.Legend.Top = true
	p.Legend.XOffs = vg.Inch

	width := vg.Length(math.Max(6, 0.3*float64(len(t.Rows))+3)) * vg.Inch
	height := vg.Length(math.Max(4, 0.4*float64(len(t.Genomes))+2.5)) * vg.Inch
	return writePlot(p, width, height, format)
}

func writePlot(p *plot.Plot, w, h vg.Length, format string) ([]byte, error) {
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpSet draws the intersection sizes as bars above a genome x intersection dot
// matrix. Bars whose member set contains target are highlighted.
func UpSet(xs []model.Intersection, genomes []string, target, title string, format string) ([]byte, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no intersections to plot", model.ErrEmptyInput)
	}
	n := len(xs)

	bars, err := upsetBars(xs, target, title)
	if err != nil {
		return nil, err
	}
	dots, err := upsetMatrix(xs, genomes)
	if err != nil {
		return nil, err
	}
	for _, p := range []*plot.Plot{bars, dots} {
		p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	}

	width := vg.Length(math.Max(6, 0.55*float64(n)+3)) * vg.Inch
	height := vg.Length(4+0.3*float64(len(genomes))) * vg.Inch

	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return nil, err
	}
	dc := draw.New(c)

	aligned := plot.Align([][]*plot.Plot{{bars}, {dots}}, draw.Tiles{Rows: 2, Cols: 1}, dc)
	// Align splits the height evenly; the bar panel takes the top 60%.
	split := dc.Min.Y + (dc.Max.Y-dc.Min.Y)*0.4
	gap := vg.Points(6)
	barsCanvas, dotsCanvas := aligned[0][0], aligned[1][0]
	barsCanvas.Min.Y, barsCanvas.Max.Y = split+gap, dc.Max.Y
	dotsCanvas.Min.Y, dotsCanvas.Max.Y = dc.Min.Y, split
	bars.Draw(barsCanvas)
	dots.Draw(dotsCanvas)

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func upsetBars(xs []model.Intersection, target, title string) (*plot.Plot, error) {
	plain := make(plotter.Values, len(xs))
	marked := make(plotter.Values, len(xs))
	labels := plotter.XYLabels{XYs: make(plotter.XYs, len(xs)), Labels: make([]string, len(xs))}
	maxCount := 0
	for i, x := range xs {
		if x.Contains(target) {
			marked[i] = float64(x.Count)
		} else {
			plain[i] = float64(x.Count)
		}
		labels.XYs[i] = plotter.XY{X: float64(i), Y: float64(x.Count)}
		labels.Labels[i] = strconv.Itoa(x.Count)
		if x.Count > maxCount {
			maxCount = x.Count
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Gene families"
	p.HideX()

	w := vg.Points(14)
	for _, set := range []struct {
		values plotter.Values
		color  color.Color
		name   string
	}{
		{plain, barColor, "other"},
		{marked, highlightColor, "contains " + target},
	} {
		b, err := plotter.NewBarChart(set.values, w)
		if err != nil {
			return nil, err
		}
		b.Color = set.color
		b.LineStyle.Width = 0
		p.Add(b)
		p.Legend.Add(set.name, b)
	}
	p.Legend.Top = true

	l, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].Font.Size = vg.Points(8)
	}
	l.Offset = vg.Point{Y: vg.Points(2)}
	p.Add(l)

	p.Y.Min = 0
	p.Y.Max = float64(maxCount) * 1.15
	return p, nil
}

func upsetMatrix(xs []model.Intersection, genomes []string) (*plot.Plot, error) {
	row := make(map[string]int, len(genomes))
	for i, g := range genomes {
		row[g] = i
	}

	var off, on plotter.XYs
	p := plot.New()
	for i, x := range xs {
		in := make(map[int]bool, len(x.Members))
		lo, hi := len(genomes), -1
		for _, m := range x.Members {
			r, ok := row[m]
			if !ok {
				continue
			}
			in[r] = true
			lo, hi = min(lo, r), max(hi, r)
		}
		for r := range genomes {
			pt := plotter.XY{X: float64(i), Y: float64(r)}
			if in[r] {
				on = append(on, pt)
			} else {
				off = append(off, pt)
			}
		}
		if hi > lo {
			line, err := plotter.NewLine(plotter.XYs{{X: float64(i), Y: float64(lo)}, {X: float64(i), Y: float64(hi)}})
			if err != nil {
				return nil, err
			}
			line.LineStyle.Width = vg.Points(2)
			line.LineStyle.Color = color.Black
			p.Add(line)
		}
	}

	for _, set := range []struct {
		pts   plotter.XYs
		color color.Color
	}{{off, dotOffColor}, {on, color.Black}} {
		if len(set.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(set.pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = set.color
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}

	p.HideX()
	p.NominalY(genomes...)
	p.Y.Min, p.Y.Max = -0.5, float64(len(genomes))-0.5
	return p, nil
}

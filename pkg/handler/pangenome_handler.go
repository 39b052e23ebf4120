package handler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/yumyai/ggenrich/pkg/db"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/model"
	"github.com/yumyai/ggenrich/pkg/render"
	"go.uber.org/zap"
)

const (
	DefaultUpSetMatrixOut = "upset_matrix.tsv"
	DefaultCoreGenesOut   = "core_genes.tsv"
	DefaultUpSetOut       = "upset_top10.png"
	DefaultUpSetTop       = 10
)

// ExtractPanaroo binarises a Panaroo gene_presence_absence table and lists the
// families unique to one genome and those shared by all.
func (app *AppContext) ExtractPanaroo(ctx context.Context, req request.PanarooRequest) ([]string, error) {
	metaCols := req.MetaCols
	if metaCols == 0 {
		metaCols = model.DefaultMetaColumns
	}

	t, err := db.LoadTable(req.Input, db.TableOptions{SkipEmpty: true})
	if err != nil {
		return nil, fmt.Errorf("load presence/absence table: %w", err)
	}
	p, err := model.ParsePangenome(t, metaCols)
	if err != nil {
		return nil, err
	}
	target, err := p.GenomeIndex(req.Genome)
	if err != nil {
		return nil, err
	}

	m := p.Presence()
	unique := m.Unique(target)
	core := m.Core()

	matrix, err := render.UpSetMatrix(m)
	if err != nil {
		return nil, err
	}
	uniqueData, err := render.PangenomeLoci(p, unique, []int{target})
	if err != nil {
		return nil, err
	}
	all := make([]int, len(p.Genomes))
	for i := range all {
		all[i] = i
	}
	coreData, err := render.PangenomeLoci(p, core, all)
	if err != nil {
		return nil, err
	}

	app.Log.Info("Presence/absence extracted",
		zap.String("genome", req.Genome),
		zap.Int("families", len(m.Families)),
		zap.Int("unique", len(unique)),
		zap.Int("core", len(core)))

	return app.writeOutputs(
		output{pathOr(req.MatrixOut, DefaultUpSetMatrixOut), matrix},
		output{filepath.Join(req.OutDir, req.Genome+"_unique_genes.tsv"), uniqueData},
		output{pathOr(req.CoreOut, DefaultCoreGenesOut), coreData},
	)
}

// PlotUpSet draws the largest exact intersections of an upset matrix,
// highlighting those that contain the chosen genome.
func (app *AppContext) PlotUpSet(ctx context.Context, req request.UpSetRequest) ([]string, error) {
	out := pathOr(req.Out, DefaultUpSetOut)
	format, err := render.ImageFormat(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	top := req.Top
	if top == 0 {
		top = DefaultUpSetTop
	}

	t, err := db.LoadTable(req.Matrix, db.TableOptions{Comma: '\t', SkipEmpty: true})
	if err != nil {
		return nil, fmt.Errorf("load upset matrix: %w", err)
	}
	m, err := model.PresenceFromTable(t)
	if err != nil {
		return nil, err
	}
	if _, err := m.GenomeIndex(req.Genome); err != nil {
		return nil, err
	}

	xs := model.TopIntersections(m.Intersections(), top)
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Top %d intersections (%s highlighted)", len(xs), req.Genome)
	}

	img, err := render.UpSet(xs, m.Genomes, req.Genome, title, format)
	if err != nil {
		return nil, err
	}
	outs := []output{{out, img}}
	if req.HTMLOut != "" {
		page, err := render.UpSetPage(xs, req.Genome, title)
		if err != nil {
			return nil, err
		}
		outs = append(outs, output{req.HTMLOut, page})
	}

	app.Log.Info("UpSet intersections", zap.Int("shown", len(xs)), zap.String("genome", req.Genome))
	return app.writeOutputs(outs...)
}

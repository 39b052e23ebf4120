package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yumyai/ggenrich/internal/util"
	"github.com/yumyai/ggenrich/pkg/db"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/model"
	"github.com/yumyai/ggenrich/pkg/render"
	"go.uber.org/zap"
)

const (
	DefaultCOGInput       = "cog_genes_input.txt"
	DefaultCOGCountsOut   = "cog_enrichment_results.csv"
	DefaultCOGGroupedOut  = "grouped_genes_by_cog.csv"
	DefaultCOGMatrixOut   = "cog_counts_matrix.csv"
	DefaultCOGFisherOut   = "cog_enrichment_fisher.csv"
	DefaultGOFisherOut    = "enriched_GO.csv"
	DefaultGOTermCountOut = "go_counts_output.csv"

	cogKeyColumn   = "COG Category"
	maxExampleGene = 20
)

// COGAnalysis counts COG categories in one or more annotation files.
func (app *AppContext) COGAnalysis(ctx context.Context, req request.COGAnalysisRequest) ([]string, error) {
	inputs := req.Inputs
	if len(inputs) == 0 {
		inputs = []string{DefaultCOGInput}
	}

	all := make([]*model.CategoryCounts, 0, len(inputs))
	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		genes, err := readCOGAnnotations(path)
		if err != nil {
			return nil, err
		}
		cc := model.CountCategories(util.BaseName(path), genes)
		app.Log.Info("Counted COG categories",
			zap.String("input", path), zap.Int("genes", len(genes)))
		all = append(all, cc)
	}

	combined := combineCounts(all)
	counts, err := render.COGCounts(combined)
	if err != nil {
		return nil, err
	}
	grouped, err := render.COGGroupedGenes(combined)
	if err != nil {
		return nil, err
	}
	outs := []output{
		{pathOr(req.CountsOut, DefaultCOGCountsOut), counts},
		{pathOr(req.GroupedOut, DefaultCOGGroupedOut), grouped},
	}

	if len(all) > 1 {
		m, err := model.MergeCategoryCounts(all)
		if err != nil {
			return nil, err
		}
		data, err := render.CountMatrix(m, cogKeyColumn)
		if err != nil {
			return nil, err
		}
		outs = append(outs, output{pathOr(req.MatrixOut, DefaultCOGMatrixOut), data})
	}
	return app.writeOutputs(outs...)
}

func readCOGAnnotations(path string) ([]model.GeneAnnotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open COG annotations: %w", err)
	}
	defer f.Close()

	t, err := db.ReadDelimited(f, '\t', db.TableOptions{NoHeader: true, SkipEmpty: true, Comment: "##"})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedInput, path, err)
	}
	genes, err := model.ParseCOGAnnotations(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return genes, nil
}

// combineCounts sums several genomes into one table; a single input is returned
// as is.
func combineCounts(all []*model.CategoryCounts) *model.CategoryCounts {
	if len(all) == 1 {
		return all[0]
	}
	out := &model.CategoryCounts{
		Genome: "combined",
		Counts: make(map[string]int),
		Groups: make(map[string][]model.GroupedGene),
	}
	for _, cc := range all {
		for letter, n := range cc.Counts {
			out.Counts[letter] += n
		}
		for _, letter := range cc.Order {
			if _, seen := out.Groups[letter]; !seen {
				out.Order = append(out.Order, letter)
			}
			out.Groups[letter] = append(out.Groups[letter], cc.Groups[letter]...)
		}
	}
	return out
}

// COGEnrichment runs the COG Fisher tests for every requested comparison.
func (app *AppContext) COGEnrichment(ctx context.Context, req request.EnrichmentRequest) ([]string, error) {
	alt, comparisons, err := resolveComparisons(req)
	if err != nil {
		return nil, err
	}

	t, err := db.LoadTable(req.Input, db.TableOptions{Sheet: req.Sheet, SkipEmpty: true})
	if err != nil {
		return nil, fmt.Errorf("load count table: %w", err)
	}
	m, err := model.CountMatrixFromTable(t, cogKeyColumn)
	if err != nil {
		return nil, err
	}

	out := pathOr(req.Out, DefaultCOGFisherOut)
	var outs []output
	for _, c := range comparisons {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := model.Enrich(m, c, alt)
		if err != nil {
			return nil, fmt.Errorf("comparison %s: %w", c.Name, err)
		}
		data, err := render.COGEnrichment(results)
		if err != nil {
			return nil, err
		}
		app.logEnrichment(c, alt, results)
		outs = append(outs, output{comparisonPath(out, c, req.GroupsFile != ""), data})
	}
	return app.writeOutputs(outs...)
}

// resolveComparisons turns positional genomes or a groups file into comparisons.
func resolveComparisons(req request.EnrichmentRequest) (model.Alternative, []model.Comparison, error) {
	alt, err := model.ParseAlternative(req.Alternative)
	if err != nil {
		return alt, nil, err
	}

	if req.GroupsFile != "" {
		if len(req.Interest) > 0 {
			return alt, nil, fmt.Errorf("%w: give either genomes or --groups, not both", model.ErrInvalidInput)
		}
		if len(req.Reference) > 0 {
			return alt, nil, fmt.Errorf("%w: --reference does not apply with --groups; set reference per comparison", model.ErrInvalidInput)
		}
		cs, err := model.LoadComparisons(req.GroupsFile)
		return alt, cs, err
	}

	if len(req.Interest) == 0 {
		return alt, nil, fmt.Errorf("%w: name at least one genome of interest", model.ErrInvalidInput)
	}
	c := model.ComparisonFromArgs(req.Interest)
	if len(req.Reference) > 0 {
		c.Reference = req.Reference
	}
	return alt, []model.Comparison{c}, nil
}

// comparisonPath is out itself for a single positional comparison and
// <stem>_<name><ext> for named ones.
func comparisonPath(out string, c model.Comparison, named bool) string {
	if !named {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "_" + c.Name + ext
}

func (app *AppContext) logEnrichment(c model.Comparison, alt model.Alternative, results []*model.EnrichmentResult) {
	significant := 0
	for _, r := range results {
		if r.QValue < 0.05 {
			significant++
		}
	}
	app.Log.Info("Enrichment done",
		zap.String("comparison", c.Name),
		zap.Strings("interest", c.Interest),
		zap.String("alternative", alt.String()),
		zap.Int("categories", len(results)),
		zap.Int("q_below_0.05", significant))
}

func pathOr(p, def string) string {
	if p == "" {
		return def
	}
	return p
}

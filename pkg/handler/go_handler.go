package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/yumyai/ggenrich/pkg/db"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/model"
	"github.com/yumyai/ggenrich/pkg/render"
	"go.uber.org/zap"
)

// GOEnrichment runs the GO Fisher tests; the universe of a genome is its set of
// GO-annotated genes.
func (app *AppContext) GOEnrichment(ctx context.Context, req request.EnrichmentRequest) ([]string, error) {
	alt, comparisons, err := resolveComparisons(req)
	if err != nil {
		return nil, err
	}

	t, err := db.LoadTable(req.Input, db.TableOptions{Sheet: req.Sheet, SkipEmpty: true})
	if err != nil {
		return nil, fmt.Errorf("load GO table: %w", err)
	}
	anns, err := model.ParseGOTable(t)
	if err != nil {
		return nil, err
	}
	m := model.BuildGOMatrix(anns)
	app.Log.Debug("GO matrix built",
		zap.Int("terms", len(m.Categories)), zap.Strings("genomes", m.Genomes))

	out := pathOr(req.Out, DefaultGOFisherOut)
	var outs []output
	for _, c := range comparisons {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := model.Enrich(m, c, alt)
		if err != nil {
			return nil, fmt.Errorf("comparison %s: %w", c.Name, err)
		}
		model.AttachGOSupport(results, anns, c.Interest, maxExampleGene)
		data, err := render.GOEnrichment(results)
		if err != nil {
			return nil, err
		}
		app.logEnrichment(c, alt, results)
		outs = append(outs, output{comparisonPath(out, c, req.GroupsFile != ""), data})
	}
	return app.writeOutputs(outs...)
}

// GOTermCounts counts exact matches of each listed GO description per input file.
func (app *AppContext) GOTermCounts(ctx context.Context, req request.GOTermCountRequest) ([]string, error) {
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no annotation files given", model.ErrInvalidInput)
	}
	comma, err := delimiter(req.Sep)
	if err != nil {
		return nil, err
	}
	opts := model.TermCountOptions{
		Column:         req.Column,
		IgnoreCase:     req.IgnoreCase,
		CollapseSpaces: !req.NoCollapse,
	}
	if req.SplitRegex != "" {
		if opts.Split, err = regexp.Compile(req.SplitRegex); err != nil {
			return nil, fmt.Errorf("%w: --split-regex: %v", model.ErrInvalidInput, err)
		}
	}

	f, err := os.Open(req.TermList)
	if err != nil {
		return nil, fmt.Errorf("open term list: %w", err)
	}
	terms, err := model.ReadTermList(f, opts)
	f.Close()
	if err != nil {
		return nil, err
	}

	tableOpts := db.TableOptions{NoHeader: req.Header == request.HeaderNone}
	columns := make([]string, 0, len(req.Inputs))
	counts := make([][]int, 0, len(req.Inputs))
	for _, path := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := countTermsInFile(path, comma, tableOpts, terms, opts)
		if err != nil {
			return nil, err
		}
		columns = append(columns, filepath.Base(path))
		counts = append(counts, n)
	}

	data, err := render.GOTermCounts(terms, columns, counts)
	if err != nil {
		return nil, err
	}
	app.Log.Info("Counted GO descriptions",
		zap.Int("files", len(columns)), zap.Int("terms", len(terms)), zap.String("split_regex", req.SplitRegex))
	return app.writeOutputs(output{pathOr(req.Out, DefaultGOTermCountOut), data})
}

func countTermsInFile(path string, comma rune, tableOpts db.TableOptions, terms []string, opts model.TermCountOptions) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation table: %w", err)
	}
	defer f.Close()

	t, err := db.ReadDelimited(f, comma, tableOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMalformedInput, path, err)
	}
	n, err := model.CountExactTerms(terms, t, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// delimiter accepts a single character or the escapes \t and tab.
func delimiter(sep string) (rune, error) {
	switch sep {
	case "", `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(sep) != 1 {
		return 0, fmt.Errorf("%w: --sep must be one character, got %q", model.ErrInvalidInput, sep)
	}
	r, _ := utf8.DecodeRuneInString(sep)
	return r, nil
}

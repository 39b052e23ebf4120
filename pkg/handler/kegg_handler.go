package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yumyai/ggenrich/internal/util"
	"github.com/yumyai/ggenrich/pkg/db"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/kegg"
	"github.com/yumyai/ggenrich/pkg/model"
	"github.com/yumyai/ggenrich/pkg/render"
	"go.uber.org/zap"
)

const (
	DefaultModuleTermsOut      = "kegg_module_ko_terms.csv"
	DefaultModuleBinaryOut     = "kegg_module_completeness_binary.csv"
	DefaultModulePercentageOut = "kegg_module_completeness_percentage.csv"
	DefaultDiffBinaryOut       = "differentially_present_binary.csv"
	DefaultDiffPercentageOut   = "differentially_present_percentage.csv"
	DefaultHeatmapOut          = "differentially_present_binary.jpeg"
)

// ModuleCompleteness scores every KEGG module against every KO list.
func (app *AppContext) ModuleCompleteness(ctx context.Context, req request.ModuleCompletenessRequest) ([]string, error) {
	if len(req.KOFiles) == 0 {
		return nil, fmt.Errorf("%w: no KO list files given", model.ErrInvalidInput)
	}

	// Inputs are checked before any network traffic.
	genomes := make([]string, 0, len(req.KOFiles))
	kosets := make([]model.KOSet, 0, len(req.KOFiles))
	for _, path := range req.KOFiles {
		ko, err := readKOSet(path)
		if err != nil {
			return nil, err
		}
		if len(ko) == 0 {
			app.Log.Warn("No KO identifiers found", zap.String("file", path))
		}
		genomes = append(genomes, util.BaseName(path))
		kosets = append(kosets, ko)
	}

	res := &moduleResolver{app: app, policy: req.OnLookupFailure}
	if !req.NoCache {
		cache, err := db.OpenGGDB(ctx, app.Config.ModuleCachePath())
		if err != nil {
			app.Log.Warn("KEGG cache unavailable, fetching everything", zap.Error(err))
		} else {
			defer cache.Close()
			res.cache = cache
		}
	}
	if res.cache != nil {
		rel, err := app.KEGG.Release(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			app.Log.Warn("KEGG release unknown, using cached definitions by age",
				zap.Duration("max_age", app.Config.KEGGCacheMaxAge), zap.Error(err))
		}
		res.release = rel
	}

	defs, err := res.definitions(ctx)
	if err != nil {
		return nil, err
	}

	scores, err := model.ScoreModules(defs, genomes, kosets)
	if err != nil {
		return nil, err
	}

	terms, err := render.ModuleTerms(defs)
	if err != nil {
		return nil, err
	}
	binary, err := render.ModuleTable(scores.Binary())
	if err != nil {
		return nil, err
	}
	percentage, err := render.ModuleTable(scores.Percentage())
	if err != nil {
		return nil, err
	}

	counts := app.Lookups.Counts()
	app.Log.Info("Module lookups done",
		zap.String("release", res.release),
		zap.Int("modules", len(defs)),
		zap.Int("fetched", counts[LookupJobCompleted]),
		zap.Int("cached", counts[LookupJobCached]),
		zap.Int("failed", counts[LookupJobFailed]))

	return app.writeOutputs(
		output{pathOr(req.TermsOut, DefaultModuleTermsOut), terms},
		output{pathOr(req.BinaryOut, DefaultModuleBinaryOut), binary},
		output{pathOr(req.PercentageOut, DefaultModulePercentageOut), percentage},
	)
}

func readKOSet(path string) (model.KOSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open KO list: %w", err)
	}
	defer f.Close()
	ko, err := model.ParseKOSet(f)
	if err != nil {
		return nil, fmt.Errorf("read KO list %s: %w", path, err)
	}
	return ko, nil
}

// moduleResolver finds module definitions in the cache first and KEGG second.
// cache is nil with --no-cache; release is empty when KEGG could not say.
type moduleResolver struct {
	app     *AppContext
	cache   *db.GGDB
	release string
	policy  request.LookupFailurePolicy
}

func (r *moduleResolver) since() time.Time {
	return r.app.Now().Add(-r.app.Config.KEGGCacheMaxAge)
}

func (r *moduleResolver) canStore() bool {
	return r.cache != nil && r.release != ""
}

func (r *moduleResolver) definitions(ctx context.Context) ([]*model.ModuleDefinition, error) {
	entries, err := r.universe(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := names[e.ID]; dup {
			continue
		}
		names[e.ID] = e.Name
		ids = append(ids, e.ID)
	}
	model.SortModuleIDs(ids)

	defs := make([]*model.ModuleDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := r.module(ctx, id, names[id])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// universe lists every module. A failed listing has nothing to mark, so it is
// fatal unless the cache can stand in.
func (r *moduleResolver) universe(ctx context.Context) ([]db.UniverseEntry, error) {
	if r.cache != nil {
		entries, err := r.cachedUniverse(ctx)
		if err != nil {
			r.app.Log.Warn("Reading cached module list failed", zap.Error(err))
		} else if len(entries) > 0 {
			r.app.Log.Debug("Module list from cache", zap.String("release", r.release), zap.Int("modules", len(entries)))
			return entries, nil
		}
	}

	list, err := r.app.KEGG.ListModules(ctx)
	if err != nil {
		if ctx.Err() == nil && r.cache != nil && r.release != "" {
			if rel, entries, cerr := r.cache.RecentUniverse(ctx, r.since()); cerr == nil && len(entries) > 0 {
				r.app.Log.Warn("KEGG module list failed, using cached list",
					zap.String("cached_release", rel), zap.Error(err))
				return entries, nil
			}
		}
		return nil, fmt.Errorf("%w: module list: %w", model.ErrExternalLookup, err)
	}

	entries := make([]db.UniverseEntry, len(list))
	for i, m := range list {
		entries[i] = db.UniverseEntry{ID: m.ID, Name: m.Name}
	}
	if r.canStore() {
		if err := r.cache.PutUniverse(ctx, r.release, entries, r.app.Now(), r.app.RunID); err != nil {
			r.app.Log.Warn("Caching module list failed", zap.Error(err))
		}
	}
	return entries, nil
}

func (r *moduleResolver) cachedUniverse(ctx context.Context) ([]db.UniverseEntry, error) {
	if r.release != "" {
		return r.cache.Universe(ctx, r.release)
	}
	_, entries, err := r.cache.RecentUniverse(ctx, r.since())
	return entries, err
}

// module resolves one definition. Under the mark policy a failed lookup yields
// an undefined module; under fail it aborts the run. Cancellation always aborts.
func (r *moduleResolver) module(ctx context.Context, id, name string) (*model.ModuleDefinition, error) {
	jobs := r.app.Lookups
	job := jobs.NewJob(id)

	if def, ok := r.cachedModule(ctx, id); ok {
		jobs.CompleteJob(job.ID, true)
		return def, nil
	}

	jobs.SetRunning(job.ID)
	def, raw, err := r.fetch(ctx, id, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		jobs.FailJob(job.ID, err)
		if r.policy == request.LookupFailureFail {
			return nil, fmt.Errorf("%w: module %s: %w", model.ErrExternalLookup, id, err)
		}
		r.app.Log.Warn("Module lookup failed, marking undefined", zap.String("module", id), zap.Error(err))
		return model.UndefinedModule(id, name, err.Error()), nil
	}

	if r.canStore() {
		cm := db.CachedModule{
			ID:         id,
			Name:       raw.Name,
			Definition: raw.Definition,
			Release:    r.release,
			FetchedAt:  r.app.Now(),
			FetchID:    r.app.RunID,
		}
		if err := r.cache.PutModule(ctx, cm); err != nil {
			r.app.Log.Warn("Caching module failed", zap.String("module", id), zap.Error(err))
		}
	}
	jobs.CompleteJob(job.ID, false)
	return def, nil
}

func (r *moduleResolver) cachedModule(ctx context.Context, id string) (*model.ModuleDefinition, bool) {
	if r.cache == nil {
		return nil, false
	}
	var (
		cm  *db.CachedModule
		ok  bool
		err error
	)
	if r.release != "" {
		cm, ok, err = r.cache.GetModule(ctx, r.release, id)
	} else {
		cm, ok, err = r.cache.GetRecentModule(ctx, id, r.since())
	}
	if err != nil {
		r.app.Log.Warn("Reading cached module failed", zap.String("module", id), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	def, err := model.ParseModuleDefinition(cm.ID, cm.Name, cm.Definition)
	if err != nil {
		r.app.Log.Warn("Cached definition unusable, refetching", zap.String("module", id), zap.Error(err))
		return nil, false
	}
	return def, true
}

func (r *moduleResolver) fetch(ctx context.Context, id, name string) (*model.ModuleDefinition, *kegg.Module, error) {
	m, err := r.app.KEGG.GetModule(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if m.Name == "" {
		m.Name = name
	}
	def, err := model.ParseModuleDefinition(id, m.Name, m.Definition)
	if err != nil {
		return nil, nil, err
	}
	return def, m, nil
}

// KeepDifferentialModules drops modules that are complete in every genome or in
// none, and restricts the percentage table to the survivors.
func (app *AppContext) KeepDifferentialModules(ctx context.Context, req request.DifferentialRequest) ([]string, error) {
	binary, err := loadModuleTable(pathOr(req.BinaryIn, DefaultModuleBinaryOut))
	if err != nil {
		return nil, err
	}
	percent, err := loadModuleTable(pathOr(req.PercentageIn, DefaultModulePercentageOut))
	if err != nil {
		return nil, err
	}

	keptBin, keptPct, err := model.FilterDifferential(binary, percent)
	if err != nil {
		return nil, err
	}
	app.Log.Info("Differential modules kept",
		zap.Int("modules_in", len(binary.Rows)), zap.Int("modules_kept", len(keptBin.Rows)))

	binData, err := render.ModuleTable(keptBin)
	if err != nil {
		return nil, err
	}
	pctData, err := render.ModuleTable(keptPct)
	if err != nil {
		return nil, err
	}
	return app.writeOutputs(
		output{pathOr(req.BinaryOut, DefaultDiffBinaryOut), binData},
		output{pathOr(req.PercentageOut, DefaultDiffPercentageOut), pctData},
	)
}

// HeatmapBinary draws the differential binary table; with HTMLOut set it also
// writes a coloured HTML table, from the percentage table when one exists.
func (app *AppContext) HeatmapBinary(ctx context.Context, req request.HeatmapRequest) ([]string, error) {
	out := pathOr(req.Out, DefaultHeatmapOut)
	format, err := render.ImageFormat(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	binary, err := loadModuleTable(pathOr(req.BinaryIn, DefaultDiffBinaryOut))
	if err != nil {
		return nil, err
	}
	img, err := render.BinaryHeatmap(binary, format)
	if err != nil {
		return nil, err
	}
	outs := []output{{out, img}}

	if req.HTMLOut != "" {
		page, err := app.heatmapPage(binary, pathOr(req.PercentageIn, DefaultDiffPercentageOut))
		if err != nil {
			return nil, err
		}
		outs = append(outs, output{req.HTMLOut, page})
	}
	return app.writeOutputs(outs...)
}

func (app *AppContext) heatmapPage(binary *model.ModuleTable, percentPath string) ([]byte, error) {
	title := "KEGG module completeness"
	if !util.FileExists(percentPath) {
		app.Log.Warn("Percentage table not found, HTML uses the binary palette", zap.String("file", percentPath))
		return render.ModuleHeatmapPage(binary, title, true)
	}
	percent, err := loadModuleTable(percentPath)
	if err != nil {
		return nil, err
	}
	_, keptPct, err := model.FilterDifferential(binary, percent)
	if err != nil {
		return nil, err
	}
	// Same rows as the image.
	return render.ModuleHeatmapPage(keptPct, title, false)
}

func loadModuleTable(path string) (*model.ModuleTable, error) {
	t, err := db.LoadTable(path, db.TableOptions{SkipEmpty: true})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	mt, err := model.ModuleTableFromTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mt, nil
}

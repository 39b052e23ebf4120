package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/yumyai/ggenrich/pkg/handler"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/model"
)

func addCommands(root *cobra.Command) {
	root.AddCommand(
		cogAnalysisCmd(),
		cogEnrichmentCmd(),
		goEnrichmentCmd(),
		differentialGOTermsCmd(),
		moduleCompletenessCmd(),
		keepDifferentialCmd(),
		heatmapBinaryCmd(),
		extractPanarooCmd(),
		plotUpSetCmd(),
		cacheStatusCmd(),
	)
}

func cogAnalysisCmd() *cobra.Command {
	var req request.COGAnalysisRequest
	cmd := &cobra.Command{
		Use:   "cog_analysis [annotations...]",
		Short: "Count genes per COG category",
		Long: "Count genes per COG category from three-column exports (COG letters, description, KO terms)\n" +
			"or eggNOG-mapper tables. Without arguments reads " + handler.DefaultCOGInput + ".",
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.Inputs = args
			_, err := app.COGAnalysis(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.CountsOut, "counts-out", handler.DefaultCOGCountsOut, "category count table")
	f.StringVar(&req.GroupedOut, "grouped-out", handler.DefaultCOGGroupedOut, "genes grouped by category")
	f.StringVar(&req.MatrixOut, "matrix-out", handler.DefaultCOGMatrixOut, "category x genome matrix, written with several inputs")
	return cmd
}

func enrichmentFlags(cmd *cobra.Command, req *request.EnrichmentRequest, out string) {
	f := cmd.Flags()
	f.StringVar(&req.GroupsFile, "groups", "", "YAML file of named comparisons, instead of positional genomes")
	f.StringSliceVar(&req.Reference, "reference", nil, "reference genomes (default: every genome not of interest)")
	f.StringVar(&req.Sheet, "sheet", "", "spreadsheet sheet (default: first)")
	f.StringVar(&req.Alternative, "alternative", model.TwoSided.String(), "two-sided, greater or less")
	f.StringVar(&req.Out, "out", out, "output CSV; with --groups one file per comparison (<stem>_<name>.csv)")
}

func cogEnrichmentCmd() *cobra.Command {
	var req request.EnrichmentRequest
	cmd := &cobra.Command{
		Use:   "cog_enrichment_fisher <counts.xlsx|csv> [genome...]",
		Short: "Fisher's exact test per COG category, genomes of interest vs the rest",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.Input, req.Interest = args[0], args[1:]
			_, err := app.COGEnrichment(ctx, req)
			return err
		}),
	}
	enrichmentFlags(cmd, &req, handler.DefaultCOGFisherOut)
	return cmd
}

func goEnrichmentCmd() *cobra.Command {
	var req request.EnrichmentRequest
	cmd := &cobra.Command{
		Use:   "go_enrichment_fisher <go.xlsx|csv> [genome...]",
		Short: "Fisher's exact test per GO term, genomes of interest vs the rest",
		Long: "Input is long (genome, gene_id, go_id) or wide paired columns (<genome>, GO term, ...).\n" +
			"The universe of a genome is its set of GO-annotated genes.",
		Args: cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.Input, req.Interest = args[0], args[1:]
			_, err := app.GOEnrichment(ctx, req)
			return err
		}),
	}
	enrichmentFlags(cmd, &req, handler.DefaultGOFisherOut)
	return cmd
}

func differentialGOTermsCmd() *cobra.Command {
	var (
		req    request.GOTermCountRequest
		header int
	)
	cmd := &cobra.Command{
		Use:   "differential_go_terms <term_list.txt> <annotations...>",
		Short: "Count exact GO description matches per annotation file",
		Args:  cobra.MinimumNArgs(2),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			h, err := request.NewTableHeader(header)
			if err != nil {
				return err
			}
			req.Header = h
			req.TermList, req.Inputs = args[0], args[1:]
			_, err = app.GOTermCounts(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.Sep, "sep", `\t`, "input delimiter")
	f.IntVar(&header, "header", int(request.HeaderNone), "-1: no header row, 0: first row is a header")
	f.IntVar(&req.Column, "col", 3, "zero-based index of the GO column")
	f.StringVar(&req.SplitRegex, "split-regex", "", "regex splitting several terms per cell")
	f.BoolVar(&req.IgnoreCase, "ignore-case", false, "case-insensitive matching")
	f.BoolVar(&req.NoCollapse, "no-collapse-spaces", false, "keep internal whitespace as is")
	f.StringVar(&req.Out, "out", handler.DefaultGOTermCountOut, "output CSV")
	return cmd
}

func moduleCompletenessCmd() *cobra.Command {
	var req request.ModuleCompletenessRequest
	cmd := &cobra.Command{
		Use:   "module_completeness <ko_list...>",
		Short: "Score KEGG module completeness per genome",
		Long: "Every K number in a file counts as present. The genome name is the file name without\n" +
			"extension. Definitions come from the KEGG REST API, cached per KEGG release.",
		Args: cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.KOFiles = args
			_, err := app.ModuleCompleteness(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.BoolVar(&req.NoCache, "no-cache", false, "always fetch definitions from KEGG")
	f.Var(&req.OnLookupFailure, "on-lookup-failure", "mark: record failed modules as undefined (NA); fail: abort")
	f.StringVar(&req.TermsOut, "terms-out", handler.DefaultModuleTermsOut, "module definition table")
	f.StringVar(&req.BinaryOut, "binary-out", handler.DefaultModuleBinaryOut, "1/0 completeness table")
	f.StringVar(&req.PercentageOut, "percentage-out", handler.DefaultModulePercentageOut, "percentage completeness table")
	return cmd
}

func keepDifferentialCmd() *cobra.Command {
	var req request.DifferentialRequest
	cmd := &cobra.Command{
		Use:   "keep_differentially_abundant_modules",
		Short: "Drop modules complete in all genomes or in none",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			_, err := app.KeepDifferentialModules(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.BinaryIn, "binary-in", handler.DefaultModuleBinaryOut, "binary completeness table")
	f.StringVar(&req.PercentageIn, "percentage-in", handler.DefaultModulePercentageOut, "percentage completeness table")
	f.StringVar(&req.BinaryOut, "binary-out", handler.DefaultDiffBinaryOut, "filtered binary table")
	f.StringVar(&req.PercentageOut, "percentage-out", handler.DefaultDiffPercentageOut, "filtered percentage table")
	return cmd
}

func heatmapBinaryCmd() *cobra.Command {
	var req request.HeatmapRequest
	cmd := &cobra.Command{
		Use:   "heatmap_binary",
		Short: "Draw the differential module table as a genome x module heatmap",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			_, err := app.HeatmapBinary(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.BinaryIn, "in", handler.DefaultDiffBinaryOut, "binary module table")
	f.StringVar(&req.PercentageIn, "percentage-in", handler.DefaultDiffPercentageOut, "percentage table colouring the HTML page")
	f.StringVar(&req.Out, "out", handler.DefaultHeatmapOut, "image; format from the extension (png, jpeg, svg, pdf, tiff)")
	f.StringVar(&req.HTMLOut, "html", "", "also write an HTML table to this path")
	return cmd
}

func extractPanarooCmd() *cobra.Command {
	var req request.PanarooRequest
	cmd := &cobra.Command{
		Use:   "extract_panaroo <gene_presence_absence.csv> <genome>",
		Short: "Binary presence matrix plus unique and core gene families",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.Input, req.Genome = args[0], args[1]
			_, err := app.ExtractPanaroo(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.IntVar(&req.MetaCols, "meta-cols", model.DefaultMetaColumns, "leading metadata columns before the genomes")
	f.StringVar(&req.MatrixOut, "matrix-out", handler.DefaultUpSetMatrixOut, "0/1 presence matrix")
	f.StringVar(&req.CoreOut, "core-out", handler.DefaultCoreGenesOut, "families present in every genome")
	f.StringVar(&req.OutDir, "out-dir", ".", "directory for <genome>_unique_genes.tsv")
	return cmd
}

func plotUpSetCmd() *cobra.Command {
	var req request.UpSetRequest
	cmd := &cobra.Command{
		Use:   "plot_upset <upset_matrix.tsv> <genome>",
		Short: "UpSet plot of the largest exact intersections",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			req.Matrix, req.Genome = args[0], args[1]
			_, err := app.PlotUpSet(ctx, req)
			return err
		}),
	}
	f := cmd.Flags()
	f.IntVar(&req.Top, "top", handler.DefaultUpSetTop, "number of intersections shown")
	f.StringVar(&req.Title, "title", "", "plot title")
	f.StringVar(&req.Out, "out", handler.DefaultUpSetOut, "image; format from the extension")
	f.StringVar(&req.HTMLOut, "html", "", "also write an interactive bar chart to this path")
	return cmd
}

func cacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache_status",
		Short: "Summarise the KEGG definition cache",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error {
			return app.CacheStatus(ctx, cmd.OutOrStdout())
		}),
	}
}

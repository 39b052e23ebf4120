package handler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"github.com/yumyai/ggenrich/pkg/model"
)

func TestCOGAnalysis(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	g1 := writeFile(t, dir, "g1.txt", "C\tcytochrome oxidase\tK02274\n"+
		"CE\tpermease\tK03293\n"+
		"X\tunknown letter\t\n"+
		"short row\n")
	g2 := writeFile(t, dir, "g2.txt", "E\tglutamate synthase\tK00265\n")

	req := request.COGAnalysisRequest{
		Inputs:     []string{g1},
		CountsOut:  filepath.Join(dir, "counts.csv"),
		GroupedOut: filepath.Join(dir, "grouped.csv"),
		MatrixOut:  filepath.Join(dir, "matrix.csv"),
	}
	written, err := app.COGAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, written, 2, "no matrix for a single input")

	counts := readFile(t, req.CountsOut)
	assert.Contains(t, counts, "C,Energy production and conversion,2\n")
	assert.Contains(t, counts, "E,Amino acid transport and metabolism,1\n")
	assert.Equal(t, len(model.COG_LETTERS)+1, strings.Count(counts, "\n"))

	grouped := readFile(t, req.GroupedOut)
	assert.True(t, strings.HasPrefix(grouped, "COG Identifier,Gene Description,KO Terms\n\nCategory: Energy production and conversion,,\nC,cytochrome oxidase,K02274\n"))
	assertMissing(t, req.MatrixOut)

	// Same input, same bytes.
	_, err = app.COGAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, counts, readFile(t, req.CountsOut))

	req.Inputs = []string{g1, g2}
	written, err = app.COGAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, written, 3)
	matrix := readFile(t, req.MatrixOut)
	assert.True(t, strings.HasPrefix(matrix, "COG Category,g1,g2\n"))
	assert.Contains(t, matrix, "\nE,1,1\n")
	assert.Contains(t, readFile(t, req.CountsOut), "E,Amino acid transport and metabolism,2\n")
}

const cogMatrix = "COG Category,G1,G2,G3,G4\n" +
	"C,30,28,5,4\n" +
	"E,10,12,20,22\n" +
	"J,5,5,5,5\n"

func TestCOGEnrichment(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	req := request.EnrichmentRequest{
		Input:    writeFile(t, dir, "cog_counts_matrix.csv", cogMatrix),
		Interest: []string{"G1", "G2"},
		Out:      filepath.Join(dir, "fisher.csv"),
	}

	_, err := app.COGEnrichment(context.Background(), req)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(readFile(t, req.Out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "COG_Category,a_in_set,b_in_set_not,c_out_has,d_out_not,total_in_set,total_out,"+
		"prop_in_set,prop_out,odds_ratio,p_value,q_BH,n_favored,n_others", lines[0])
	var rowC string
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "C,") {
			rowC = l
		}
	}
	assert.True(t, strings.HasPrefix(rowC, "C,58,32,9,52,90,61,"), rowC)
	assert.True(t, strings.HasSuffix(rowC, ",2,2"), rowC)
}

func TestCOGEnrichmentMissingGenome(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	req := request.EnrichmentRequest{
		Input:    writeFile(t, dir, "m.csv", cogMatrix),
		Interest: []string{"G1", "G9"},
		Out:      filepath.Join(dir, "fisher.csv"),
	}
	_, err := app.COGEnrichment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMissingGenome))
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
	var mg *model.MissingGenomeError
	require.True(t, errors.As(err, &mg))
	assert.Equal(t, []string{"G9"}, mg.Missing)
	assertMissing(t, req.Out)

	req.Interest = nil
	_, err = app.COGEnrichment(context.Background(), req)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestCOGEnrichmentGroups(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	groups := writeFile(t, dir, "groups.yaml", "comparisons:\n"+
		"  - name: pair_vs_rest\n    interest: [G1, G2]\n"+
		"  - name: g1_vs_g3\n    interest: [G1]\n    reference: [G3]\n")
	req := request.EnrichmentRequest{
		Input:       writeFile(t, dir, "m.csv", cogMatrix),
		GroupsFile:  groups,
		Alternative: "greater",
		Out:         filepath.Join(dir, "fisher.csv"),
	}

	written, err := app.COGEnrichment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "fisher_pair_vs_rest.csv"),
		filepath.Join(dir, "fisher_g1_vs_g3.csv"),
	}, written)
	assert.Contains(t, readFile(t, written[1]), "\nC,30,15,5,25,45,30,")

	req.Interest = []string{"G1"}
	_, err = app.COGEnrichment(context.Background(), req)
	assert.True(t, errors.Is(err, model.ErrInvalidInput), "genomes and --groups together")

	req.Interest = nil
	req.Reference = []string{"G3"}
	req.Out = filepath.Join(dir, "ref.csv")
	_, err = app.COGEnrichment(context.Background(), req)
	assert.True(t, errors.Is(err, model.ErrInvalidInput), "--reference and --groups together")
	assertMissing(t, filepath.Join(dir, "ref_pair_vs_rest.csv"), filepath.Join(dir, "ref_g1_vs_g3.csv"))
}

func TestGOEnrichment(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	input := writeFile(t, dir, "go.csv", "genome,gene_id,go_id\n"+
		"A,a1,GO:0000001\nA,a2,GO:0000001\nA,a2,GO:0000001\nA,a3,GO:0000002\n"+
		"B,b1,GO:0000002\nB,b2,GO:0000002\n"+
		"C,c1,GO:0000002\nC,c2,GO:0000001\n")
	req := request.EnrichmentRequest{
		Input:    input,
		Interest: []string{"A"},
		Out:      filepath.Join(dir, "enriched_GO.csv"),
	}

	_, err := app.GOEnrichment(context.Background(), req)
	require.NoError(t, err)
	out := readFile(t, req.Out)
	assert.True(t, strings.HasPrefix(out, "go_term,a_in_set_has,b_in_set_not,c_out_has,d_out_not,"+
		"odds_ratio,p_value,q_BH,genes_in_set_with_GO,example_genes\n"))
	assert.Contains(t, out, "GO:0000001,2,1,1,3,")
	assert.Contains(t, out, ",2,A:a1;A:a2\n")
}

func TestGOTermCounts(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	terms := writeFile(t, dir, "terms.txt", "DNA  binding\nATP binding\n\nkinase activity\n")
	a := writeFile(t, dir, "a.tsv", "g1\tx\ty\tDNA binding; ATP binding\n"+
		"g2\tx\ty\tatp binding\n"+
		"g3\tx\ty\tDNA binding\n")
	b := writeFile(t, dir, "b.tsv", "g1\tx\ty\tkinase activity\n")

	req := request.GOTermCountRequest{
		TermList:   terms,
		Inputs:     []string{a, b},
		Header:     request.HeaderNone,
		Column:     3,
		SplitRegex: `\s*;\s*`,
		IgnoreCase: true,
		Out:        filepath.Join(dir, "go_counts_output.csv"),
	}
	_, err := app.GOTermCounts(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "GO Description,a.tsv,b.tsv\n"+
		"dna binding,2,0\n"+
		"atp binding,2,0\n"+
		"kinase activity,0,1\n", readFile(t, req.Out))

	req.Column = 9
	req.Out = filepath.Join(dir, "bad.csv")
	_, err = app.GOTermCounts(context.Background(), req)
	assert.True(t, errors.Is(err, model.ErrMalformedInput))
	assertMissing(t, req.Out)
}

package model

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGOLong(t *testing.T) {
	text := "genome\tgene_id\tgo_id\n" +
		"A\tg1\tGO:0000001;GO:0000002\n" +
		"A\tg1\tGO:0000001\n" +
		"A\tg2\tGO:0000002\n" +
		"B\tg9\tGO:0000003\n" +
		"\tg0\tGO:0000003\n"
	anns, err := ParseGOTable(tsv(t, text, noOpts))
	require.NoError(t, err)
	assert.Len(t, anns, 4)
	assert.Equal(t, []string{"A", "B"}, GOGenomes(anns))

	m := BuildGOMatrix(anns)
	assert.Equal(t, []string{"GO:0000001", "GO:0000002", "GO:0000003"}, m.Categories)
	assert.Equal(t, 2, m.Totals["A"], "A has two unique annotated genes")
	assert.Equal(t, 1, m.Totals["B"])
	assert.Equal(t, []int{2, 0}, m.Counts[1])
}

func TestParseGOWide(t *testing.T) {
	text := "A\tGO term\tB\tGO term.1\n" +
		"g1\tcatalytic activity, metal binding\tg7\tcatalytic activity, metal binding\n" +
		"g2\tcatalytic activity, metal binding\t\t\n" +
		"g3\ttransport\tg8\ttransport\n"
	anns, err := ParseGOTable(tsv(t, text, noOpts))
	require.NoError(t, err)
	assert.Len(t, anns, 5)

	m := BuildGOMatrix(anns)
	require.Equal(t, []string{"catalytic activity, metal binding", "transport"}, m.Categories)
	assert.Equal(t, []int{2, 1}, m.Counts[0], "free-text terms are not split on commas")

	results, err := Enrich(m, ComparisonFromArgs([]string{"A"}), TwoSided)
	require.NoError(t, err)
	AttachGOSupport(results, anns, []string{"A"}, 1)
	for _, r := range results {
		if r.Category == "catalytic activity, metal binding" {
			assert.Equal(t, 2, r.SupportIn)
			assert.Equal(t, "A:g1", r.ExampleGene)
		}
	}

	_, err = ParseGOTable(tsv(t, "A\tB\nx\ty\n", noOpts))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCountExactTerms(t *testing.T) {
	opts := TermCountOptions{Column: 1, IgnoreCase: true, CollapseSpaces: true}
	terms, err := ReadTermList(strings.NewReader("ATP binding\n\nDNA  binding\nmembrane\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"atp binding", "dna binding", "membrane"}, terms)

	table := tsv(t, "g1\tATP binding\ng2\tatp  binding\ng3\tDNA binding\ng4\tATP binding protein\n", headerless)
	counts, err := CountExactTerms(terms, table, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, counts, "matching is exact, not substring")

	opts.Split = regexp.MustCompile(`;`)
	table = tsv(t, "g1\tmembrane; ATP binding\n", headerless)
	counts, err = CountExactTerms(terms, table, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, counts)

	opts.Column = 5
	_, err = CountExactTerms(terms, table, opts)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = ReadTermList(strings.NewReader("\n\n"), opts)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

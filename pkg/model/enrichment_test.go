package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cogMatrixCSV = `COG Category,G1,G2,G3,G4
C,30,28,5,4
E,10,12,11,9
J,2,3,20,22
K,0,0,0,0
`

func TestCountMatrixFromTable(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "G2", "G3", "G4"}, m.Genomes)
	assert.Equal(t, []string{"C", "E", "J", "K"}, m.Categories)
	assert.Equal(t, 28, m.Counts[0][1])
}

func TestCountMatrixRejectsBadCells(t *testing.T) {
	cases := map[string]string{
		"negative":   "COG Category,G1,G2\nC,-1,2\n",
		"nonNumeric": "COG Category,G1,G2\nC,abc,2\n",
		"nonInteger": "COG Category,G1,G2\nC,1.5,2\n",
		"missingKey": "Category,G1,G2\nC,1,2\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := CountMatrixFromTable(csvTable(t, text), "COG Category")
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected malformed input, got %v", err)
			}
		})
	}

	_, err := CountMatrixFromTable(csvTable(t, "COG Category,G1,G2\n"), "COG Category")
	assert.ErrorIs(t, err, ErrEmptyInput)

	m, err := CountMatrixFromTable(csvTable(t, "COG Category,G1,G2\nC,,3\n"), "COG Category")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Counts[0][0], "blank cell counts as zero")
}

func TestEnrichContingency(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)

	results, err := Enrich(m, ComparisonFromArgs([]string{"G1", "G2"}), TwoSided)
	require.NoError(t, err)
	require.Len(t, results, 4)

	byCat := make(map[string]*EnrichmentResult)
	for _, r := range results {
		byCat[r.Category] = r
	}

	// interest totals: 42 + 43 = 85, reference: 36 + 35 = 71
	c := byCat["C"]
	assert.Equal(t, ContingencyTable{A: 58, B: 27, C: 9, D: 62}, c.Table)
	assert.Equal(t, 85, c.TotalIn)
	assert.Equal(t, 71, c.TotalOut)
	assert.Equal(t, 2, c.NInterest)
	assert.Equal(t, 2, c.NReference)
	assert.InDelta(t, 58.0/85.0, c.PropIn, 1e-12)
	assert.Less(t, c.PValue, 1e-6)

	k := byCat["K"]
	assert.Equal(t, 1.0, k.PValue, "all-zero category has nothing to test")
	assert.True(t, math.IsNaN(k.OddsRatio))
}

func TestEnrichOrderingAndFDR(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)

	for _, alt := range []Alternative{TwoSided, Greater, Less} {
		results, err := Enrich(m, ComparisonFromArgs([]string{"G1", "G2"}), alt)
		require.NoError(t, err)

		n := float64(len(results))
		for i, r := range results {
			assert.GreaterOrEqual(t, r.PValue, 0.0)
			assert.LessOrEqual(t, r.PValue, 1.0)
			assert.GreaterOrEqual(t, r.QValue, r.PValue, "q >= p for %s", r.Category)
			assert.LessOrEqual(t, r.QValue, math.Min(1, r.PValue*n/float64(i+1))+1e-12)
			if i > 0 {
				assert.LessOrEqual(t, results[i-1].PValue, r.PValue, "ascending p")
				assert.LessOrEqual(t, results[i-1].QValue, r.QValue, "q non-decreasing")
			}
		}
	}
}

func TestEnrichOneSided(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)

	greater, err := Enrich(m, ComparisonFromArgs([]string{"G1", "G2"}), Greater)
	require.NoError(t, err)
	less, err := Enrich(m, ComparisonFromArgs([]string{"G1", "G2"}), Less)
	require.NoError(t, err)

	find := func(rs []*EnrichmentResult, cat string) *EnrichmentResult {
		for _, r := range rs {
			if r.Category == cat {
				return r
			}
		}
		t.Fatalf("category %s missing", cat)
		return nil
	}
	assert.Less(t, find(greater, "C").PValue, 0.001, "C is over-represented in the interest group")
	assert.Greater(t, find(less, "C").PValue, 0.99)
	assert.Less(t, find(less, "J").PValue, 0.001, "J is under-represented in the interest group")
}

func TestEnrichErrors(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)

	_, err = Enrich(m, ComparisonFromArgs([]string{"G1", "NOPE"}), TwoSided)
	var mg *MissingGenomeError
	require.ErrorAs(t, err, &mg)
	assert.Equal(t, []string{"NOPE"}, mg.Missing)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrMissingGenome)

	_, err = Enrich(m, ComparisonFromArgs([]string{"G1", "G2", "G3", "G4"}), TwoSided)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Enrich(m, Comparison{Name: "x", Interest: []string{"G1"}, Reference: []string{"G1"}}, TwoSided)
	assert.ErrorIs(t, err, ErrInvalidInput)

	one, err := CountMatrixFromTable(csvTable(t, "COG Category,G1\nC,3\n"), "COG Category")
	require.NoError(t, err)
	_, err = Enrich(one, ComparisonFromArgs([]string{"G1"}), TwoSided)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEnrichExplicitReference(t *testing.T) {
	m, err := CountMatrixFromTable(csvTable(t, cogMatrixCSV), "COG Category")
	require.NoError(t, err)

	results, err := Enrich(m, Comparison{Name: "g1_vs_g3", Interest: []string{"G1"}, Reference: []string{"G3"}}, TwoSided)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, 1, r.NReference)
		assert.Equal(t, 36, r.TotalOut)
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.005}
	q := BenjaminiHochberg(p)
	want := []float64{0.02, 0.04, 0.04, 0.02}
	for i := range want {
		assert.InDelta(t, want[i], q[i], 1e-12, "q[%d]", i)
	}
	assert.Empty(t, BenjaminiHochberg(nil))
	assert.Equal(t, []float64{1}, BenjaminiHochberg([]float64{1}))
}

// The running minimum from the largest p down can pull q below p*m/rank:
// p=0.03 sits at rank 2 of 3 (p*m/rank = 0.045) but takes the 0.04 of rank 3.
func TestBenjaminiHochbergRunningMinimum(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03}
	q := BenjaminiHochberg(p)
	want := []float64{0.03, 0.04, 0.04}
	for i := range want {
		assert.InDelta(t, want[i], q[i], 1e-12, "q[%d]", i)
	}
	assert.Less(t, q[2], p[2]*3/2)
	assert.GreaterOrEqual(t, q[2], p[2])
}

func TestFisherPKnownTable(t *testing.T) {
	// scipy.stats.fisher_exact([[8, 2], [1, 5]])
	tbl := ContingencyTable{A: 8, B: 2, C: 1, D: 5}
	assert.InDelta(t, 0.034965034965, tbl.FisherP(TwoSided), 1e-6)
	assert.InDelta(t, 0.024475524476, tbl.FisherP(Greater), 1e-6)
	assert.InDelta(t, 0.999125874126, tbl.FisherP(Less), 1e-6)

	empty := ContingencyTable{A: 0, B: 0, C: 3, D: 4}
	assert.Equal(t, 1.0, empty.FisherP(TwoSided))
}

func TestOddsRatio(t *testing.T) {
	assert.InDelta(t, 6.0, ContingencyTable{A: 3, B: 1, C: 1, D: 2}.OddsRatio(), 1e-12)
	assert.True(t, math.IsInf(ContingencyTable{A: 3, B: 0, C: 1, D: 2}.OddsRatio(), 1))
	assert.True(t, math.IsNaN(ContingencyTable{A: 0, B: 0, C: 1, D: 2}.OddsRatio()))
}

func TestParseAlternative(t *testing.T) {
	for in, want := range map[string]Alternative{"": TwoSided, "two-sided": TwoSided, "Greater": Greater, "less": Less} {
		got, err := ParseAlternative(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlternative("sideways")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseComparisons(t *testing.T) {
	data := []byte(`
comparisons:
  - name: favored_vs_rest
    interest: [NGB244, NGB245, NGB244]
  - name: ngb244_vs_ngb241
    interest: [NGB244]
    reference: [NGB241]
`)
	cs, err := ParseComparisons(data)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, []string{"NGB244", "NGB245"}, cs[0].Interest)
	assert.Empty(t, cs[0].Reference)
	assert.Equal(t, []string{"NGB241"}, cs[1].Reference)

	bad := map[string]string{
		"empty":      "comparisons: []\n",
		"noName":     "comparisons:\n  - interest: [A]\n",
		"badName":    "comparisons:\n  - name: a/b\n    interest: [A]\n",
		"dupName":    "comparisons:\n  - name: a\n    interest: [A]\n  - name: a\n    interest: [B]\n",
		"noInterest": "comparisons:\n  - name: a\n",
	}
	for name, text := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseComparisons([]byte(text))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	_, err = ParseComparisons([]byte("comparisons: [\n"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

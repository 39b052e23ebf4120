package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/yumyai/ggenrich/logger"
	"github.com/yumyai/ggenrich/pkg/db"
	"go.uber.org/zap"
)

type Alternative int

const (
	TwoSided Alternative = iota
	Greater
	Less
)

func (a Alternative) String() string {
	switch a {
	case Greater:
		return "greater"
	case Less:
		return "less"
	default:
		return "two-sided"
	}
}

func ParseAlternative(s string) (Alternative, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "two-sided", "two_sided", "twosided":
		return TwoSided, nil
	case "greater":
		return Greater, nil
	case "less":
		return Less, nil
	}
	return TwoSided, fmt.Errorf("%w: unknown alternative %q (two-sided, greater, less)", ErrInvalidInput, s)
}

// CountMatrixFromTable reads a wide count table: keyColumn holds the category,
// every other column is a genome with non-negative integer counts.
func CountMatrixFromTable(t *db.Table, keyColumn string) (*CountMatrix, error) {
	ki := t.ColumnIndex(keyColumn)
	if ki < 0 {
		return nil, malformed("expected a %q column followed by genome columns, got %v", keyColumn, t.Header)
	}

	m := &CountMatrix{}
	var cols []int
	for i, h := range t.Header {
		if i == ki || h == "" {
			continue
		}
		m.Genomes = append(m.Genomes, h)
		cols = append(cols, i)
	}

	for r, row := range t.Rows {
		key := strings.TrimSpace(row[ki])
		if key == "" {
			continue
		}
		counts := make([]int, len(cols))
		for j, c := range cols {
			n, err := parseCount(row[c])
			if err != nil {
				return nil, malformed("row %d (%s), column %q: %v", r+2, key, t.Header[c], err)
			}
			counts[j] = n
		}
		m.Categories = append(m.Categories, key)
		m.Counts = append(m.Counts, counts)
	}

	if len(m.Categories) == 0 {
		return nil, fmt.Errorf("%w: no category rows in count table", ErrEmptyInput)
	}
	return m, nil
}

// Blank cells count as zero; anything else must be a non-negative whole number.
func parseCount(cell string) (int, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric count %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer count %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %q", s)
	}
	return int(f), nil
}

// Resolve returns the column indices of the interest and reference groups.
func (m *CountMatrix) Resolve(c Comparison) (interest, reference []int, err error) {
	if len(m.Genomes) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 genomes, got %d", ErrInvalidInput, len(m.Genomes))
	}
	if len(c.Interest) == 0 {
		return nil, nil, fmt.Errorf("%w: comparison %q has no genomes of interest", ErrInvalidInput, c.Name)
	}

	wanted := append(append([]string(nil), c.Interest...), c.Reference...)
	if err := missingGenomes(wanted, m.Genomes, ErrInvalidInput); err != nil {
		return nil, nil, err
	}

	inSet := make(map[string]bool, len(c.Interest))
	for _, g := range c.Interest {
		inSet[g] = true
	}
	refSet := make(map[string]bool, len(c.Reference))
	for _, g := range c.Reference {
		if inSet[g] {
			return nil, nil, fmt.Errorf("%w: genome %q is in both groups of %q", ErrInvalidInput, g, c.Name)
		}
		refSet[g] = true
	}

	for i, g := range m.Genomes {
		switch {
		case inSet[g]:
			interest = append(interest, i)
		case len(c.Reference) == 0 || refSet[g]:
			reference = append(reference, i)
		}
	}

	if len(reference) == 0 {
		return nil, nil, fmt.Errorf("%w: every genome is in the interest group of %q", ErrInvalidInput, c.Name)
	}
	return interest, reference, nil
}

// Enrich runs one Fisher exact test per category and BH-corrects the p-values.
// Results are ordered by p, then q, then category.
func Enrich(m *CountMatrix, c Comparison, alt Alternative) ([]*EnrichmentResult, error) {
	if len(m.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories to test", ErrEmptyInput)
	}
	interest, reference, err := m.Resolve(c)
	if err != nil {
		return nil, err
	}

	totalIn := m.groupTotal(interest)
	totalOut := m.groupTotal(reference)

	results := make([]*EnrichmentResult, 0, len(m.Categories))
	for i, cat := range m.Categories {
		a := sumCols(m.Counts[i], interest)
		cc := sumCols(m.Counts[i], reference)
		if a > totalIn || cc > totalOut {
			return nil, malformed("category %q counts exceed the group totals", cat)
		}
		tbl := ContingencyTable{A: a, B: totalIn - a, C: cc, D: totalOut - cc}

		results = append(results, &EnrichmentResult{
			Category:   cat,
			Table:      tbl,
			TotalIn:    totalIn,
			TotalOut:   totalOut,
			PropIn:     ratio(a, totalIn),
			PropOut:    ratio(cc, totalOut),
			OddsRatio:  tbl.OddsRatio(),
			PValue:     tbl.FisherP(alt),
			NInterest:  len(interest),
			NReference: len(reference),
		})
	}

	pvals := make([]float64, len(results))
	for i, r := range results {
		pvals[i] = r.PValue
	}
	for i, q := range BenjaminiHochberg(pvals) {
		results[i].QValue = q
	}

	SortEnrichment(results)

	logger.Debug("Enrichment finished",
		zap.String("comparison", c.Name),
		zap.Int("categories", len(results)),
		zap.Int("total_in", totalIn),
		zap.Int("total_out", totalOut))
	return results, nil
}

func (m *CountMatrix) groupTotal(cols []int) int {
	total := 0
	if m.Totals != nil {
		for _, c := range cols {
			total += m.Totals[m.Genomes[c]]
		}
		return total
	}
	for _, row := range m.Counts {
		total += sumCols(row, cols)
	}
	return total
}

func sumCols(row []int, cols []int) int {
	s := 0
	for _, c := range cols {
		s += row[c]
	}
	return s
}

func ratio(a, b int) float64 {
	if b == 0 {
		return math.NaN()
	}
	return float64(a) / float64(b)
}

// FisherP is the exact-test p-value for the requested alternative. Tables with an
// empty margin have a single possible arrangement, so p is 1.
func (t ContingencyTable) FisherP(alt Alternative) float64 {
	if t.A+t.B == 0 || t.C+t.D == 0 || t.A+t.C == 0 || t.B+t.D == 0 {
		return 1
	}
	_, left, right, two := fet.FisherExactTest(t.A, t.B, t.C, t.D)
	var p float64
	switch alt {
	case Greater:
		p = right
	case Less:
		p = left
	default:
		p = two
	}
	return clamp01(p)
}

// OddsRatio is the sample odds ratio ad/bc; +Inf when only bc is zero, NaN when both are.
func (t ContingencyTable) OddsRatio() float64 {
	num := float64(t.A) * float64(t.D)
	den := float64(t.B) * float64(t.C)
	if den == 0 {
		if num == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return num / den
}

// BenjaminiHochberg returns q-values in the input order:
// q(i) = min over j >= i of p(j)*m/j on the ascending ranks, clipped to 1.
func BenjaminiHochberg(pvals []float64) []float64 {
	m := len(pvals)
	q := make([]float64, m)
	if m == 0 {
		return q
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })

	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		v := pvals[idx] * float64(m) / float64(rank)
		if v < running {
			running = v
		}
		q[idx] = clamp01(running)
	}
	return q
}

func SortEnrichment(results []*EnrichmentResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.PValue != b.PValue {
			return a.PValue < b.PValue
		}
		if a.QValue != b.QValue {
			return a.QValue < b.QValue
		}
		return a.Category < b.Category
	})
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 1
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

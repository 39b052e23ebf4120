package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yumyai/ggenrich/pkg/db"
)

const (
	ModuleStatusDefined   = "defined"
	ModuleStatusUndefined = "undefined"
	MissingValue          = "NA"
)

// ModuleTable is modules as rows, genomes as columns. Values holds 0/1 for the
// binary table and percentages for the percentage table; NaN means NA.
type ModuleTable struct {
	Genomes []string
	Rows    []ModuleRow
}

type ModuleRow struct {
	Module string
	Name   string
	Values []float64
}

// ModuleScores is the result of scoring every module against every genome.
type ModuleScores struct {
	Modules []*ModuleDefinition
	Genomes []string
	Scores  [][]Completeness // [module][genome]
}

// ScoreModules scores every (module, genome) pair. kosets is aligned with genomes.
func ScoreModules(defs []*ModuleDefinition, genomes []string, kosets []KOSet) (*ModuleScores, error) {
	if len(genomes) != len(kosets) {
		return nil, fmt.Errorf("%w: %d genomes but %d KO sets", ErrInvalidInput, len(genomes), len(kosets))
	}
	if len(genomes) == 0 {
		return nil, fmt.Errorf("%w: no KO files given", ErrEmptyInput)
	}
	seen := make(map[string]bool, len(genomes))
	for _, g := range genomes {
		if seen[g] {
			return nil, fmt.Errorf("%w: genome %q given twice", ErrInvalidInput, g)
		}
		seen[g] = true
	}

	s := &ModuleScores{Modules: defs, Genomes: genomes, Scores: make([][]Completeness, len(defs))}
	for i, d := range defs {
		s.Scores[i] = make([]Completeness, len(genomes))
		for j, g := range genomes {
			s.Scores[i][j] = d.Score(g, kosets[j])
		}
	}
	return s, nil
}

// Binary is the 1/0 completeness table.
func (s *ModuleScores) Binary() *ModuleTable {
	return s.table(func(c Completeness) float64 {
		if c.Complete {
			return 1
		}
		return 0
	})
}

// Percentage is fraction*100 rounded to two decimals.
func (s *ModuleScores) Percentage() *ModuleTable {
	return s.table(func(c Completeness) float64 {
		return math.Round(c.Fraction*100*100) / 100
	})
}

func (s *ModuleScores) table(value func(Completeness) float64) *ModuleTable {
	t := &ModuleTable{Genomes: s.Genomes, Rows: make([]ModuleRow, len(s.Modules))}
	for i, d := range s.Modules {
		row := ModuleRow{Module: d.ID, Name: d.Name, Values: make([]float64, len(s.Genomes))}
		for j, c := range s.Scores[i] {
			if !c.Defined {
				row.Values[j] = math.NaN()
				continue
			}
			row.Values[j] = value(c)
		}
		t.Rows[i] = row
	}
	return t
}

// Status is "defined" or "undefined".
func (d *ModuleDefinition) Status() string {
	if d.Undefined {
		return ModuleStatusUndefined
	}
	return ModuleStatusDefined
}

// ModuleTableFromTable reads a table written by the completeness scorer.
func ModuleTableFromTable(t *db.Table) (*ModuleTable, error) {
	mi := t.ColumnIndex("Module")
	if mi < 0 {
		return nil, malformed("expected a Module column, got %v", t.Header)
	}
	ni := t.ColumnIndex("Name")

	var cols []int
	out := &ModuleTable{}
	for i, h := range t.Header {
		if i == mi || i == ni {
			continue
		}
		out.Genomes = append(out.Genomes, h)
		cols = append(cols, i)
	}
	if len(cols) == 0 {
		return nil, malformed("module table has no genome columns")
	}

	seen := make(map[string]bool)
	for r, raw := range t.Rows {
		id := strings.TrimSpace(raw[mi])
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, malformed("module %s appears twice", id)
		}
		seen[id] = true

		row := ModuleRow{Module: id, Values: make([]float64, len(cols))}
		if ni >= 0 {
			row.Name = raw[ni]
		}
		for j, c := range cols {
			v, err := parseModuleValue(raw[c])
			if err != nil {
				return nil, malformed("row %d (%s), column %q: %v", r+2, id, t.Header[c], err)
			}
			row.Values[j] = v
		}
		out.Rows = append(out.Rows, row)
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("%w: module table has no rows", ErrEmptyInput)
	}
	return out, nil
}

func parseModuleValue(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, MissingValue) || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	return v, nil
}

func (r ModuleRow) hasNA() bool {
	for _, v := range r.Values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Differential reports whether the row has at least two distinct values.
func (r ModuleRow) Differential() bool {
	if len(r.Values) == 0 || r.hasNA() {
		return false
	}
	for _, v := range r.Values[1:] {
		if v != r.Values[0] {
			return true
		}
	}
	return false
}

// FilterDifferential keeps the binary rows that are neither all 1 nor all 0 and
// restricts percent (which may be nil) to the same modules. Values are never changed.
func FilterDifferential(binary, percent *ModuleTable) (*ModuleTable, *ModuleTable, error) {
	keptBin := &ModuleTable{Genomes: binary.Genomes}
	for _, row := range binary.Rows {
		if row.Differential() {
			keptBin.Rows = append(keptBin.Rows, row)
		}
	}
	if percent == nil {
		return keptBin, nil, nil
	}

	byID := make(map[string]ModuleRow, len(percent.Rows))
	for _, row := range percent.Rows {
		byID[row.Module] = row
	}
	keptPct := &ModuleTable{Genomes: percent.Genomes}
	for _, row := range keptBin.Rows {
		p, ok := byID[row.Module]
		if !ok {
			return nil, nil, malformed("module %s is in the binary table but not in the percentage table", row.Module)
		}
		keptPct.Rows = append(keptPct.Rows, p)
	}
	return keptBin, keptPct, nil
}

// FormatModuleValue renders NaN as NA and drops needless decimals.
func FormatModuleValue(v float64) string {
	if math.IsNaN(v) {
		return MissingValue
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

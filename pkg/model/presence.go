package model

import (
	"fmt"
	"strings"

	"github.com/yumyai/ggenrich/pkg/db"
)

// DefaultMetaColumns is Panaroo's Gene, Non-unique Gene name, Annotation.
const DefaultMetaColumns = 3

// PangenomeTable is a Panaroo gene_presence_absence table split into metadata
// columns and per-genome locus columns.
type PangenomeTable struct {
	MetaHeader []string
	Genomes    []string
	Meta       [][]string // [family][meta column]
	Loci       [][]string // [family][genome]
}

// ParsePangenome splits t after metaCols metadata columns. The first metadata
// column is the gene family name.
func ParsePangenome(t *db.Table, metaCols int) (*PangenomeTable, error) {
	if metaCols < 1 {
		return nil, fmt.Errorf("%w: need at least one metadata column, got %d", ErrInvalidInput, metaCols)
	}
	if len(t.Header) <= metaCols {
		return nil, malformed("presence/absence table has %d columns; expected %d metadata columns followed by genomes", len(t.Header), metaCols)
	}

	p := &PangenomeTable{
		MetaHeader: t.Header[:metaCols],
		Genomes:    t.Header[metaCols:],
	}
	seen := make(map[string]bool, len(p.Genomes))
	for _, g := range p.Genomes {
		if seen[g] {
			return nil, malformed("genome column %q appears twice", g)
		}
		seen[g] = true
	}
	for _, row := range t.Rows {
		if strings.TrimSpace(row[0]) == "" {
			continue
		}
		p.Meta = append(p.Meta, row[:metaCols])
		p.Loci = append(p.Loci, row[metaCols:])
	}
	if len(p.Meta) == 0 {
		return nil, fmt.Errorf("%w: presence/absence table has no gene rows", ErrEmptyInput)
	}
	return p, nil
}

// GenomeIndex fails with a not-found MissingGenomeError when genome is absent.
func (p *PangenomeTable) GenomeIndex(genome string) (int, error) {
	if err := missingGenomes([]string{genome}, p.Genomes, ErrNotFound); err != nil {
		return -1, err
	}
	return indexOf(p.Genomes, genome), nil
}

// Presence binarises the table: a non-empty locus cell is present.
func (p *PangenomeTable) Presence() *PresenceMatrix {
	m := &PresenceMatrix{
		Families: make([]string, len(p.Meta)),
		Genomes:  p.Genomes,
		Present:  make([][]bool, len(p.Meta)),
	}
	for i := range p.Meta {
		m.Families[i] = p.Meta[i][0]
		m.Present[i] = make([]bool, len(p.Genomes))
		for j, cell := range p.Loci[i] {
			m.Present[i][j] = strings.TrimSpace(cell) != ""
		}
	}
	return m
}

// Unique returns the row indices of families present in genome g only.
func (m *PresenceMatrix) Unique(g int) []int {
	var out []int
	for i, row := range m.Present {
		if !row[g] {
			continue
		}
		only := true
		for j, present := range row {
			if j != g && present {
				only = false
				break
			}
		}
		if only {
			out = append(out, i)
		}
	}
	return out
}

// Core returns the row indices of families present in every genome.
func (m *PresenceMatrix) Core() []int {
	var out []int
	for i, row := range m.Present {
		all := true
		for _, present := range row {
			if !present {
				all = false
				break
			}
		}
		if all {
			out = append(out, i)
		}
	}
	return out
}

// PresenceFromTable reads an upset matrix: a family column followed by 0/1
// genome columns.
func PresenceFromTable(t *db.Table) (*PresenceMatrix, error) {
	if len(t.Header) < 2 {
		return nil, malformed("presence matrix needs a family column and at least one genome column")
	}
	m := &PresenceMatrix{Genomes: t.Header[1:]}
	for r, row := range t.Rows {
		fam := strings.TrimSpace(row[0])
		if fam == "" {
			continue
		}
		present := make([]bool, len(m.Genomes))
		for j := range m.Genomes {
			switch strings.TrimSpace(row[j+1]) {
			case "1":
				present[j] = true
			case "0", "":
			default:
				return nil, malformed("row %d (%s), column %q: expected 0 or 1, got %q", r+2, fam, m.Genomes[j], row[j+1])
			}
		}
		m.Families = append(m.Families, fam)
		m.Present = append(m.Present, present)
	}
	if len(m.Families) == 0 {
		return nil, fmt.Errorf("%w: presence matrix has no rows", ErrEmptyInput)
	}
	return m, nil
}

// GenomeIndex fails with a not-found MissingGenomeError when genome is absent.
func (m *PresenceMatrix) GenomeIndex(genome string) (int, error) {
	if err := missingGenomes([]string{genome}, m.Genomes, ErrNotFound); err != nil {
		return -1, err
	}
	return indexOf(m.Genomes, genome), nil
}

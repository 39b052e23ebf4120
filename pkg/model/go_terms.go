package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yumyai/ggenrich/pkg/db"
)

// GOAnnotation is one (genome, gene, term) triplet of the long format.
type GOAnnotation struct {
	Genome string
	GeneID string
	Term   string
}

type goGeneKey struct{ genome, gene string }

// Cells that hold only GO identifiers are split; free-text descriptions are not,
// because they may contain commas.
var (
	goIDListRe  = regexp.MustCompile(`^GO:\d{7}(\s*[;,|]\s*GO:\d{7})+$`)
	goIDSplitRe = regexp.MustCompile(`\s*[;,|]\s*`)
)

// ParseGOTable accepts the long format (genome, gene_id, go_id or "GO term")
// or wide paired columns (<genome>, "GO term", <genome>, "GO term.1", ...).
// Duplicate triplets are collapsed; first-seen order is kept.
func ParseGOTable(t *db.Table) ([]GOAnnotation, error) {
	var (
		anns []GOAnnotation
		err  error
	)
	if gi, ni, ti := longColumns(t); gi >= 0 && ni >= 0 && ti >= 0 {
		anns = parseLongGO(t, gi, ni, ti)
	} else {
		anns, err = parseWideGO(t)
		if err != nil {
			return nil, err
		}
	}
	if len(anns) == 0 {
		return nil, fmt.Errorf("%w: no GO annotations found", ErrEmptyInput)
	}
	return dedupeGO(anns), nil
}

func longColumns(t *db.Table) (genome, gene, term int) {
	genome = t.ColumnIndexFold("genome")
	gene = t.ColumnIndexFold("gene_id")
	term = t.ColumnIndexFold("go_id")
	if term < 0 {
		term = t.ColumnIndexFold("go term")
	}
	return
}

func parseLongGO(t *db.Table, gi, ni, ti int) []GOAnnotation {
	var out []GOAnnotation
	for _, row := range t.Rows {
		genome, gene := strings.TrimSpace(row[gi]), strings.TrimSpace(row[ni])
		if genome == "" || gene == "" {
			continue
		}
		for _, term := range splitGOCell(row[ti]) {
			out = append(out, GOAnnotation{Genome: genome, GeneID: gene, Term: term})
		}
	}
	return out
}

func parseWideGO(t *db.Table) ([]GOAnnotation, error) {
	var out []GOAnnotation
	paired := false
	for i := 0; i < len(t.Header)-1; {
		geneCol, goCol := t.Header[i], t.Header[i+1]
		if !isGOColumn(goCol) || isGOColumn(geneCol) {
			i++
			continue
		}
		paired = true
		for _, row := range t.Rows {
			gene := strings.TrimSpace(row[i])
			if gene == "" {
				continue
			}
			for _, term := range splitGOCell(row[i+1]) {
				out = append(out, GOAnnotation{Genome: geneCol, GeneID: gene, Term: term})
			}
		}
		i += 2
	}
	if !paired {
		return nil, malformed("could not parse paired GO columns; alternate <genome>, 'GO term' columns or use genome/gene_id/go_id")
	}
	return out, nil
}

func isGOColumn(h string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(h)), "go term")
}

func splitGOCell(cell string) []string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if goIDListRe.MatchString(s) {
		return goIDSplitRe.Split(s, -1)
	}
	return []string{s}
}

func dedupeGO(anns []GOAnnotation) []GOAnnotation {
	seen := make(map[GOAnnotation]struct{}, len(anns))
	out := anns[:0:0]
	for _, a := range anns {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// GOGenomes lists genomes in first-seen order.
func GOGenomes(anns []GOAnnotation) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range anns {
		if !seen[a.Genome] {
			seen[a.Genome] = true
			out = append(out, a.Genome)
		}
	}
	return out
}

// BuildGOMatrix counts unique genes per (term, genome). The universe of a genome
// is its set of genes carrying any GO term.
func BuildGOMatrix(anns []GOAnnotation) *CountMatrix {
	genomes := GOGenomes(anns)
	col := make(map[string]int, len(genomes))
	for i, g := range genomes {
		col[g] = i
	}

	termGenes := make(map[string]map[goGeneKey]struct{})
	universe := make(map[goGeneKey]struct{})
	for _, a := range anns {
		k := goGeneKey{a.Genome, a.GeneID}
		universe[k] = struct{}{}
		if termGenes[a.Term] == nil {
			termGenes[a.Term] = make(map[goGeneKey]struct{})
		}
		termGenes[a.Term][k] = struct{}{}
	}

	terms := make([]string, 0, len(termGenes))
	for term := range termGenes {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	m := &CountMatrix{
		Categories: terms,
		Genomes:    genomes,
		Counts:     make([][]int, len(terms)),
		Totals:     make(map[string]int, len(genomes)),
	}
	for i, term := range terms {
		m.Counts[i] = make([]int, len(genomes))
		for k := range termGenes[term] {
			m.Counts[i][col[k.genome]]++
		}
	}
	for k := range universe {
		m.Totals[k.genome]++
	}
	return m
}

// AttachGOSupport fills SupportIn and ExampleGene from the interest genomes.
func AttachGOSupport(results []*EnrichmentResult, anns []GOAnnotation, interest []string, maxList int) {
	in := make(map[string]bool, len(interest))
	for _, g := range interest {
		in[g] = true
	}

	examples := make(map[string][]string)
	for _, a := range anns {
		if !in[a.Genome] {
			continue
		}
		examples[a.Term] = append(examples[a.Term], a.Genome+":"+a.GeneID)
	}

	for _, r := range results {
		genes := examples[r.Category]
		r.SupportIn = len(genes)
		if len(genes) > maxList {
			genes = genes[:maxList]
		}
		r.ExampleGene = strings.Join(genes, ";")
	}
}

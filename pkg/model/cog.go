package model

import (
	"fmt"
	"strings"

	"github.com/yumyai/ggenrich/logger"
	"github.com/yumyai/ggenrich/pkg/db"
	"go.uber.org/zap"
)

// COG functional categories, in the canonical letter order used for output.
var (
	COG_LETTERS = []string{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
		"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "Y", "Z",
	}

	COG_CATEGORY_MAP = map[string]string{
		"A": "RNA processing and modification",
		"B": "Chromatin structure and dynamics",
		"C": "Energy production and conversion",
		"D": "Cell cycle control, cell division, chromosome partitioning",
		"E": "Amino acid transport and metabolism",
		"F": "Nucleotide transport and metabolism",
		"G": "Carbohydrate transport and metabolism",
		"H": "Coenzyme transport and metabolism",
		"I": "Lipid transport and metabolism",
		"J": "Translation, ribosomal structure, and biogenesis",
		"K": "Transcription",
		"L": "Replication, recombination, and repair",
		"M": "Cell wall/membrane/envelope biogenesis",
		"N": "Cell motility",
		"O": "Post-translational modification, protein turnover, chaperones",
		"P": "Inorganic ion transport and metabolism",
		"Q": "Secondary metabolites biosynthesis, transport, and catabolism",
		"R": "General function prediction only",
		"S": "Function unknown",
		"T": "Signal transduction mechanisms",
		"U": "Intracellular trafficking, secretion, and vesicular transport",
		"V": "Defense mechanisms",
		"W": "Extracellular structures",
		"Y": "Nuclear structure",
		"Z": "Cytoskeleton",
	}
)

// CategoryCounts is the per-genome output of the category counter.
type CategoryCounts struct {
	Genome string
	Counts map[string]int
	// Genes per category in first-seen category order, for manual inspection.
	Order  []string
	Groups map[string][]GroupedGene
	// Letters that are not COG categories, counted once per occurrence.
	Unknown map[string]int
}

type GroupedGene struct {
	Letter      string
	Description string
	KOTerms     string
}

// ParseCOGAnnotations reads either the three-column tab export
// (COG letters, description, KO terms) or an eggNOG-mapper annotation table.
// Neither format is guaranteed a header row, so t must be loaded with NoHeader
// and "##" comments stripped; an emapper "#query" row is detected here.
func ParseCOGAnnotations(t *db.Table) ([]GeneAnnotation, error) {
	if len(t.Rows) > 0 && isEmapperHeader(t.Rows[0]) {
		return parseEmapperAnnotations(t)
	}
	return parseThreeColumn(t), nil
}

// Rows with any column count other than three are skipped with a warning.
func parseThreeColumn(t *db.Table) []GeneAnnotation {
	var out []GeneAnnotation
	for i, row := range t.Rows {
		if t.Widths[i] != 3 {
			logger.Warn("Skipping malformed row", zap.Int("row", i+1), zap.Strings("cells", trimTrailingEmpty(row)))
			continue
		}
		out = append(out, GeneAnnotation{
			GeneID:      row[1],
			Categories:  splitLetters(row[0]),
			Description: row[1],
			KOTerms:     row[2],
		})
	}
	return out
}

func isEmapperHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	return strings.HasPrefix(row[0], "#query") || (row[0] == "query" && indexOf(row, "COG_category") >= 0)
}

func parseEmapperAnnotations(t *db.Table) ([]GeneAnnotation, error) {
	header := t.Rows[0]
	ci := indexOf(header, "COG_category")
	di := indexOf(header, "Description")
	ki := indexOf(header, "KEGG_ko")
	if ci < 0 {
		return nil, malformed("eggNOG-mapper table has no COG_category column")
	}

	var out []GeneAnnotation
	for _, row := range t.Rows[1:] {
		if row[0] == "" || strings.HasPrefix(row[0], "#") {
			continue
		}
		ann := GeneAnnotation{GeneID: row[0]}
		if cog := row[ci]; cog != "-" {
			ann.Categories = splitLetters(cog)
		}
		if di >= 0 && row[di] != "-" {
			ann.Description = row[di]
		}
		if ki >= 0 && row[ki] != "-" {
			ann.KOTerms = row[ki]
		}
		if ann.Description == "" {
			ann.Description = ann.GeneID
		}
		out = append(out, ann)
	}
	return out, nil
}

func splitLetters(s string) []string {
	var out []string
	for _, r := range strings.TrimSpace(s) {
		if r == ' ' || r == ',' || r == ';' {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

// CountCategories increments every COG category each gene carries. Multi-letter
// genes count once in each of their categories; genes with no letters count nowhere.
func CountCategories(genome string, genes []GeneAnnotation) *CategoryCounts {
	cc := &CategoryCounts{
		Genome:  genome,
		Counts:  make(map[string]int),
		Groups:  make(map[string][]GroupedGene),
		Unknown: make(map[string]int),
	}

	for _, g := range genes {
		for _, letter := range g.Categories {
			if _, ok := COG_CATEGORY_MAP[letter]; !ok {
				cc.Unknown[letter]++
				continue
			}
			cc.Counts[letter]++
			if _, seen := cc.Groups[letter]; !seen {
				cc.Order = append(cc.Order, letter)
			}
			cc.Groups[letter] = append(cc.Groups[letter], GroupedGene{
				Letter:      letter,
				Description: g.Description,
				KOTerms:     g.KOTerms,
			})
		}
	}

	for letter, n := range cc.Unknown {
		logger.Warn("COG identifier not found in category map",
			zap.String("genome", genome), zap.String("letter", letter), zap.Int("occurrences", n))
	}
	return cc
}

// MergeCategoryCounts builds the COG x genome matrix consumed by enrichment.
func MergeCategoryCounts(all []*CategoryCounts) (*CountMatrix, error) {
	m := &CountMatrix{Categories: append([]string(nil), COG_LETTERS...)}
	seen := make(map[string]struct{})
	for _, cc := range all {
		if _, dup := seen[cc.Genome]; dup {
			return nil, fmt.Errorf("%w: genome %q given twice", ErrInvalidInput, cc.Genome)
		}
		seen[cc.Genome] = struct{}{}
		m.Genomes = append(m.Genomes, cc.Genome)
	}

	m.Counts = make([][]int, len(m.Categories))
	for i, letter := range m.Categories {
		m.Counts[i] = make([]int, len(all))
		for j, cc := range all {
			m.Counts[i][j] = cc.Counts[letter]
		}
	}
	return m, nil
}

func indexOf(xs []string, want string) int {
	for i, x := range xs {
		if x == want {
			return i
		}
	}
	return -1
}

func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}

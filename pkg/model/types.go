package model

// One gene and the category codes (COG letters or GO terms) it was annotated with.
type GeneAnnotation struct {
	GeneID      string   `json:"gene_id"`
	Categories  []string `json:"categories"`
	Description string   `json:"description"`
	KOTerms     string   `json:"ko_terms"`
}

// CountMatrix holds categories as rows and genomes as columns.
// Totals, when set, is the per-genome universe used for the "not in category"
// cells (GO: unique annotated genes). When nil, column sums are used (COG).
type CountMatrix struct {
	Categories []string
	Genomes    []string
	Counts     [][]int // [category][genome]
	Totals     map[string]int
}

// Comparison splits the genomes into an interest group and a reference group.
// An empty Reference means "every genome not in Interest".
type Comparison struct {
	Name      string   `yaml:"name"`
	Interest  []string `yaml:"interest"`
	Reference []string `yaml:"reference"`
}

// ContingencyTable is the 2x2 table of one category:
//
//	           in category   not in category
//	interest        A               B
//	reference       C               D
type ContingencyTable struct {
	A, B, C, D int
}

type EnrichmentResult struct {
	Category    string
	Table       ContingencyTable
	TotalIn     int
	TotalOut    int
	PropIn      float64
	PropOut     float64
	OddsRatio   float64
	PValue      float64
	QValue      float64
	NInterest   int
	NReference  int
	SupportIn   int    // GO: genes in the interest group carrying the term
	ExampleGene string // GO: up to 20 genome:gene pairs
}

// KOSet is the set of KO identifiers annotated in one genome.
type KOSet map[string]struct{}

func (s KOSet) Has(ko string) bool {
	_, ok := s[ko]
	return ok
}

// Completeness of one module in one genome.
type Completeness struct {
	ModuleID  string
	Genome    string
	Total     int
	Satisfied int
	Fraction  float64
	Complete  bool
	Defined   bool
}

// PresenceMatrix is the binarised orthogroup-by-genome table.
type PresenceMatrix struct {
	Families []string
	Genomes  []string
	Present  [][]bool // [family][genome]
}

// Intersection is one exclusive member set of an UpSet plot.
type Intersection struct {
	Members []string
	Count   int
}

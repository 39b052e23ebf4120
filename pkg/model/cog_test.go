package model

import (
	"errors"
	"testing"

	"github.com/yumyai/ggenrich/pkg/db"
)

func TestParseThreeColumn(t *testing.T) {
	text := "C\tcytochrome oxidase\tK02274\n" +
		"EG\tamino acid permease\tK03293\n" +
		"broken row\n" +
		"J\tribosomal protein L2\tK02886\textra\n" +
		"\thypothetical\t\n"

	genes, err := ParseCOGAnnotations(tsv(t, text, db.TableOptions{NoHeader: true, Comment: "##"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(genes) != 3 {
		t.Fatalf("expected 3 genes, got %d: %+v", len(genes), genes)
	}
	if got := genes[1].Categories; len(got) != 2 || got[0] != "E" || got[1] != "G" {
		t.Errorf("multi-letter split wrong: %v", got)
	}
	if len(genes[2].Categories) != 0 {
		t.Errorf("empty COG string should carry no categories: %v", genes[2].Categories)
	}
}

func TestParseEmapper(t *testing.T) {
	text := "## emapper-2.1.12\n" +
		"## command: emapper.py\n" +
		"#query\tseed_ortholog\tCOG_category\tDescription\tKEGG_ko\n" +
		"g1\tx\tC\tcytochrome oxidase\tko:K02274\n" +
		"g2\tx\t-\t-\t-\n" +
		"g3\tx\tKL\thelicase\tko:K03657,ko:K03658\n" +
		"## 3 queries scanned\n"

	genes, err := ParseCOGAnnotations(tsv(t, text, db.TableOptions{NoHeader: true, Comment: "##"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(genes) != 3 {
		t.Fatalf("expected 3 genes, got %d", len(genes))
	}
	if genes[0].GeneID != "g1" || genes[0].KOTerms != "ko:K02274" {
		t.Errorf("unexpected first gene: %+v", genes[0])
	}
	if len(genes[1].Categories) != 0 {
		t.Errorf("'-' should mean no category, got %v", genes[1].Categories)
	}
	if len(genes[2].Categories) != 2 {
		t.Errorf("expected K and L, got %v", genes[2].Categories)
	}
}

// Every gene contributes exactly one count per known letter it carries.
func TestCountConservation(t *testing.T) {
	genes := []GeneAnnotation{
		{GeneID: "a", Categories: []string{"C"}},
		{GeneID: "b", Categories: []string{"E", "G"}},
		{GeneID: "c", Categories: []string{"S", "X"}},
		{GeneID: "d"},
	}
	cc := CountCategories("G1", genes)

	total := 0
	for _, n := range cc.Counts {
		total += n
	}
	if total != 4 {
		t.Errorf("expected 4 known-letter contributions, got %d", total)
	}
	if cc.Counts["E"] != 1 || cc.Counts["G"] != 1 {
		t.Errorf("multi-letter gene should count in both categories: %v", cc.Counts)
	}
	if cc.Unknown["X"] != 1 {
		t.Errorf("X should be reported as unknown: %v", cc.Unknown)
	}
	if len(cc.Order) != 4 || cc.Order[0] != "C" || cc.Order[3] != "S" {
		t.Errorf("groups should keep first-seen order: %v", cc.Order)
	}
}

func TestMergeCategoryCounts(t *testing.T) {
	a := CountCategories("A", []GeneAnnotation{{Categories: []string{"C"}}})
	b := CountCategories("B", []GeneAnnotation{{Categories: []string{"C", "Z"}}})

	m, err := MergeCategoryCounts([]*CategoryCounts{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Categories) != len(COG_LETTERS) {
		t.Errorf("matrix should list every COG letter, got %d", len(m.Categories))
	}
	ci := indexOf(m.Categories, "C")
	if m.Counts[ci][0] != 1 || m.Counts[ci][1] != 1 {
		t.Errorf("unexpected C counts: %v", m.Counts[ci])
	}

	if _, err := MergeCategoryCounts([]*CategoryCounts{a, a}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate genome should be invalid input, got %v", err)
	}
}

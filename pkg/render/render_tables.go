package render

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/yumyai/ggenrich/pkg/model"
)

// Struct-shaped outputs go through gocsv; tables whose columns are genomes are
// built as records.

type cogCountRow struct {
	Category    string `csv:"COG Category"`
	Description string `csv:"Description"`
	GeneCount   int    `csv:"Gene Count"`
}

type cogEnrichmentRow struct {
	Category   string `csv:"COG_Category"`
	A          int    `csv:"a_in_set"`
	B          int    `csv:"b_in_set_not"`
	C          int    `csv:"c_out_has"`
	D          int    `csv:"d_out_not"`
	TotalIn    int    `csv:"total_in_set"`
	TotalOut   int    `csv:"total_out"`
	PropIn     string `csv:"prop_in_set"`
	PropOut    string `csv:"prop_out"`
	OddsRatio  string `csv:"odds_ratio"`
	PValue     string `csv:"p_value"`
	QValue     string `csv:"q_BH"`
	NInterest  int    `csv:"n_favored"`
	NReference int    `csv:"n_others"`
}

type goEnrichmentRow struct {
	Term         string `csv:"go_term"`
	A            int    `csv:"a_in_set_has"`
	B            int    `csv:"b_in_set_not"`
	C            int    `csv:"c_out_has"`
	D            int    `csv:"d_out_not"`
	OddsRatio    string `csv:"odds_ratio"`
	PValue       string `csv:"p_value"`
	QValue       string `csv:"q_BH"`
	SupportIn    int    `csv:"genes_in_set_with_GO"`
	ExampleGenes string `csv:"example_genes"`
}

type moduleTermRow struct {
	Module     string `csv:"Module"`
	Name       string `csv:"Name"`
	Status     string `csv:"Status"`
	Steps      int    `csv:"Steps"`
	Definition string `csv:"Definition"`
}

// FormatFloat writes the shortest round-tripping form; NaN and infinities use
// the spelling spreadsheet tools read back.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func marshalRows(rows any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeRecords writes records with the given delimiter.
func EncodeRecords(records [][]string, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// COGCounts lists all COG letters in canonical order, zeros included.
func COGCounts(cc *model.CategoryCounts) ([]byte, error) {
	rows := make([]cogCountRow, 0, len(model.COG_LETTERS))
	for _, letter := range model.COG_LETTERS {
		rows = append(rows, cogCountRow{
			Category:    letter,
			Description: model.COG_CATEGORY_MAP[letter],
			GeneCount:   cc.Counts[letter],
		})
	}
	return marshalRows(&rows)
}

// COGGroupedGenes writes a header, then per category in first-seen order a
// blank row, a "Category: <name>" row and one row per gene.
func COGGroupedGenes(cc *model.CategoryCounts) ([]byte, error) {
	records := [][]string{{"COG Identifier", "Gene Description", "KO Terms"}}
	for _, letter := range cc.Order {
		records = append(records, []string{""}, []string{"Category: " + model.COG_CATEGORY_MAP[letter], "", ""})
		for _, g := range cc.Groups[letter] {
			records = append(records, []string{g.Letter, g.Description, g.KOTerms})
		}
	}
	return EncodeRecords(records, ',')
}

// CountMatrix writes "<key>, <genome...>" rows.
func CountMatrix(m *model.CountMatrix, key string) ([]byte, error) {
	records := [][]string{append([]string{key}, m.Genomes...)}
	for i, cat := range m.Categories {
		rec := make([]string, 0, len(m.Genomes)+1)
		rec = append(rec, cat)
		for _, n := range m.Counts[i] {
			rec = append(rec, strconv.Itoa(n))
		}
		records = append(records, rec)
	}
	return EncodeRecords(records, ',')
}

func COGEnrichment(results []*model.EnrichmentResult) ([]byte, error) {
	rows := make([]cogEnrichmentRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, cogEnrichmentRow{
			Category:   r.Category,
			A:          r.Table.A,
			B:          r.Table.B,
			C:          r.Table.C,
			D:          r.Table.D,
			TotalIn:    r.TotalIn,
			TotalOut:   r.TotalOut,
			PropIn:     FormatFloat(r.PropIn),
			PropOut:    FormatFloat(r.PropOut),
			OddsRatio:  FormatFloat(r.OddsRatio),
			PValue:     FormatFloat(r.PValue),
			QValue:     FormatFloat(r.QValue),
			NInterest:  r.NInterest,
			NReference: r.NReference,
		})
	}
	return marshalRows(&rows)
}

func GOEnrichment(results []*model.EnrichmentResult) ([]byte, error) {
	rows := make([]goEnrichmentRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, goEnrichmentRow{
			Term:         r.Category,
			A:            r.Table.A,
			B:            r.Table.B,
			C:            r.Table.C,
			D:            r.Table.D,
			OddsRatio:    FormatFloat(r.OddsRatio),
			PValue:       FormatFloat(r.PValue),
			QValue:       FormatFloat(r.QValue),
			SupportIn:    r.SupportIn,
			ExampleGenes: r.ExampleGene,
		})
	}
	return marshalRows(&rows)
}

// GOTermCounts writes "GO Description, <column...>" in term-list order.
func GOTermCounts(terms, columns []string, counts [][]int) ([]byte, error) {
	records := [][]string{append([]string{"GO Description"}, columns...)}
	for i, term := range terms {
		rec := []string{term}
		for j := range columns {
			rec = append(rec, strconv.Itoa(counts[j][i]))
		}
		records = append(records, rec)
	}
	return EncodeRecords(records, ',')
}

func ModuleTerms(defs []*model.ModuleDefinition) ([]byte, error) {
	rows := make([]moduleTermRow, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, moduleTermRow{
			Module:     d.ID,
			Name:       d.Name,
			Status:     d.Status(),
			Steps:      d.CountedSteps(),
			Definition: d.Definition,
		})
	}
	return marshalRows(&rows)
}

// ModuleTable writes "Module, Name, <genome...>" with NA for undefined cells.
func ModuleTable(t *model.ModuleTable) ([]byte, error) {
	records := [][]string{append([]string{"Module", "Name"}, t.Genomes...)}
	for _, row := range t.Rows {
		rec := make([]string, 0, len(row.Values)+2)
		rec = append(rec, row.Module, row.Name)
		for _, v := range row.Values {
			rec = append(rec, model.FormatModuleValue(v))
		}
		records = append(records, rec)
	}
	return EncodeRecords(records, ',')
}

// UpSetMatrix writes the "Gene, <genome...>" 0/1 table.
func UpSetMatrix(m *model.PresenceMatrix) ([]byte, error) {
	records := [][]string{append([]string{"Gene"}, m.Genomes...)}
	for i, fam := range m.Families {
		rec := make([]string, 0, len(m.Genomes)+1)
		rec = append(rec, fam)
		for _, present := range m.Present[i] {
			if present {
				rec = append(rec, "1")
			} else {
				rec = append(rec, "0")
			}
		}
		records = append(records, rec)
	}
	return EncodeRecords(records, '\t')
}

// PangenomeLoci writes the metadata columns plus "Locus_in_<genome>" for the
// given genome columns, restricted to the given family rows.
func PangenomeLoci(p *model.PangenomeTable, rows []int, genomes []int) ([]byte, error) {
	header := append([]string(nil), p.MetaHeader...)
	for _, g := range genomes {
		header = append(header, "Locus_in_"+p.Genomes[g])
	}
	records := [][]string{header}
	for _, i := range rows {
		rec := append([]string(nil), p.Meta[i]...)
		for _, g := range genomes {
			rec = append(rec, p.Loci[i][g])
		}
		records = append(records, rec)
	}
	return EncodeRecords(records, '\t')
}

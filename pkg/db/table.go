// Flat-file tables: spreadsheets and delimited text loaded into memory.

package db

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedTable = errors.New("unsupported table file type")

// Table is a header plus rows; every row is padded to the header width.
// Widths keeps the cell count each row had before padding.
type Table struct {
	Header []string
	Rows   [][]string
	Widths []int
}

type TableOptions struct {
	Sheet     string // xlsx sheet name, first sheet when empty
	Comma     rune   // delimiter override for text files
	NoHeader  bool   // first row is data; header becomes column indices
	SkipEmpty bool   // drop rows whose cells are all blank
	Comment   string // text files: lines starting with this prefix are dropped
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ColumnIndexFold is ColumnIndex ignoring case and surrounding spaces.
func (t *Table) ColumnIndexFold(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// LoadTable reads .xlsx/.xlsm, .csv, or .tsv/.txt/.tab by extension.
func LoadTable(path string, opts TableOptions) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		records [][]string
		err     error
	)

	switch ext {
	case ".xlsx", ".xlsm":
		records, err = readSpreadsheet(path, opts.Sheet)
	case ".csv", ".tsv", ".txt", ".tab":
		comma := opts.Comma
		if comma == 0 {
			comma = ','
			if ext != ".csv" {
				comma = '\t'
			}
		}
		records, err = readDelimitedFile(path, comma, opts.Comment)
	default:
		return nil, fmt.Errorf("%w: %s (use .xlsx/.xlsm/.csv/.tsv)", ErrUnsupportedTable, path)
	}
	if err != nil {
		return nil, err
	}

	return newTable(records, opts), nil
}

// ReadDelimited parses an in-memory delimited stream.
func ReadDelimited(r io.Reader, comma rune, opts TableOptions) (*Table, error) {
	if opts.Comment != "" {
		var err error
		if r, err = dropCommentLines(r, opts.Comment); err != nil {
			return nil, err
		}
	}
	records, err := readDelimited(r, comma)
	if err != nil {
		return nil, err
	}
	return newTable(records, opts), nil
}

func newTable(records [][]string, opts TableOptions) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}

	body := records
	if opts.NoHeader {
		width := 0
		for _, r := range records {
			if len(r) > width {
				width = len(r)
			}
		}
		t.Header = make([]string, width)
		for i := range t.Header {
			t.Header[i] = fmt.Sprint(i)
		}
	} else {
		t.Header = trimAll(records[0])
		body = records[1:]
	}

	width := len(t.Header)
	for _, r := range body {
		if opts.SkipEmpty && isBlank(r) {
			continue
		}
		row := make([]string, width)
		copy(row, r)
		t.Rows = append(t.Rows, row)
		t.Widths = append(t.Widths, len(r))
	}
	return t
}

func readSpreadsheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

func readDelimitedFile(path string, comma rune, comment string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var r io.Reader = fh
	if comment != "" {
		r, err = dropCommentLines(fh, comment)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	records, err := readDelimited(r, comma)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	// Annotation exports carry stray quotes inside free-text descriptions.
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func dropCommentLines(r io.Reader, prefix string) (io.Reader, error) {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

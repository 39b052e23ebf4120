package model

import (
	"strings"
	"testing"

	"github.com/yumyai/ggenrich/pkg/db"
)

func tsv(t *testing.T, text string, opts db.TableOptions) *db.Table {
	t.Helper()
	tbl, err := db.ReadDelimited(strings.NewReader(text), '\t', opts)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return tbl
}

func csvTable(t *testing.T, text string) *db.Table {
	t.Helper()
	tbl, err := db.ReadDelimited(strings.NewReader(text), ',', db.TableOptions{})
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return tbl
}

var noOpts = db.TableOptions{}

var headerless = db.TableOptions{NoHeader: true}

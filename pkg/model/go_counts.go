package model

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yumyai/ggenrich/pkg/db"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TermCountOptions controls how cells are matched against the description list.
type TermCountOptions struct {
	Column         int
	Split          *regexp.Regexp
	IgnoreCase     bool
	CollapseSpaces bool
}

func (o TermCountOptions) normalize(s string) string {
	s = strings.TrimSpace(s)
	if o.CollapseSpaces {
		s = whitespaceRe.ReplaceAllString(s, " ")
	}
	if o.IgnoreCase {
		s = strings.ToLower(s)
	}
	return s
}

// ReadTermList reads one description per line; blank lines are ignored.
func ReadTermList(r io.Reader, opts TermCountOptions) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		t := opts.normalize(scanner.Text())
		if t == "" {
			continue
		}
		terms = append(terms, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: term list is empty", ErrEmptyInput)
	}
	return terms, nil
}

// CountExactTerms counts exact (normalized) matches of every listed term in one
// column of t. The result is aligned with terms; unlisted values are ignored.
func CountExactTerms(terms []string, t *db.Table, opts TermCountOptions) ([]int, error) {
	if opts.Column < 0 || opts.Column >= len(t.Header) {
		return nil, fmt.Errorf("%w: column index %d out of range (%d columns)", ErrMalformedInput, opts.Column, len(t.Header))
	}

	seen := make(map[string]int)
	for _, row := range t.Rows {
		cell := opts.normalize(row[opts.Column])
		if opts.Split == nil {
			seen[cell]++
			continue
		}
		for _, tok := range opts.Split.Split(cell, -1) {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			seen[tok]++
		}
	}

	out := make([]int, len(terms))
	for i, term := range terms {
		out[i] = seen[term]
	}
	return out, nil
}

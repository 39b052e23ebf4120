package model

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const DefaultComparisonName = "interest_vs_rest"

var comparisonNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type comparisonFile struct {
	Comparisons []Comparison `yaml:"comparisons"`
}

// ComparisonFromArgs is the positional form: the named genomes against all others.
func ComparisonFromArgs(interest []string) Comparison {
	return Comparison{Name: DefaultComparisonName, Interest: dedupe(interest)}
}

// LoadComparisons reads a YAML file such as
//
//	comparisons:
//	  - name: favored_vs_rest
//	    interest: [NGB244, NGB245]
//	  - name: ngb244_vs_ngb241
//	    interest: [NGB244]
//	    reference: [NGB241]
func LoadComparisons(path string) ([]Comparison, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read comparison config: %w", err)
	}
	return ParseComparisons(data)
}

func ParseComparisons(data []byte) ([]Comparison, error) {
	var f comparisonFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: comparison config: %v", ErrMalformedInput, err)
	}
	if len(f.Comparisons) == 0 {
		return nil, fmt.Errorf("%w: comparison config lists no comparisons", ErrInvalidInput)
	}

	seen := make(map[string]bool)
	for i := range f.Comparisons {
		c := &f.Comparisons[i]
		if !comparisonNameRe.MatchString(c.Name) {
			return nil, fmt.Errorf("%w: comparison %d needs a name made of letters, digits, '.', '_' or '-'", ErrInvalidInput, i+1)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: comparison name %q used twice", ErrInvalidInput, c.Name)
		}
		seen[c.Name] = true
		if len(c.Interest) == 0 {
			return nil, fmt.Errorf("%w: comparison %q has no interest genomes", ErrInvalidInput, c.Name)
		}
		c.Interest = dedupe(c.Interest)
		c.Reference = dedupe(c.Reference)
	}
	return f.Comparisons, nil
}

func dedupe(xs []string) []string {
	if len(xs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

package model

import (
	"errors"
	"fmt"
	"strings"
)

// Defining possible error
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrMissingGenome  = errors.New("genome not found in input header")
	ErrMalformedInput = errors.New("malformed input")
	ErrEmptyInput     = errors.New("no usable rows")
	ErrExternalLookup = errors.New("external lookup failed")
)

// MissingGenomeError names the genomes that were asked for but are not columns of
// the input. Kind is ErrInvalidInput for enrichment and ErrNotFound for the
// presence/absence tools; errors.Is matches both Kind and ErrMissingGenome.
type MissingGenomeError struct {
	Missing []string
	Present []string
	Kind    error
}

func (e *MissingGenomeError) Error() string {
	return fmt.Sprintf("genome(s) not found: %s. Present: %s",
		strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "))
}

func (e *MissingGenomeError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrMissingGenome}
	}
	return []error{ErrMissingGenome, e.Kind}
}

func missingGenomes(wanted, present []string, kind error) error {
	have := make(map[string]struct{}, len(present))
	for _, g := range present {
		have[g] = struct{}{}
	}
	var missing []string
	for _, g := range wanted {
		if _, ok := have[g]; !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingGenomeError{Missing: missing, Present: present, Kind: kind}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

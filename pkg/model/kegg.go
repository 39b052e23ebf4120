package model

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
)

var (
	koTermRe    = regexp.MustCompile(`\bK\d{5}\b`)
	moduleRefRe = regexp.MustCompile(`M\d{5}`)
)

// ModuleDefinition is a KEGG module with its DEFINITION split into steps.
// Undefined marks a module whose lookup or parse failed; it has no steps.
type ModuleDefinition struct {
	ID         string
	Name       string
	Definition string
	Steps      []Step
	Undefined  bool
	Reason     string
}

// Step is one top-level element of a module definition.
type Step struct {
	Raw string
	// Skipped steps ("--", an undefined step in KEGG notation) are not counted.
	Skipped bool
	// Steps that reference another module are counted but never satisfied.
	ModuleRef bool
	expr      stepExpr
}

func UndefinedModule(id, name, reason string) *ModuleDefinition {
	return &ModuleDefinition{ID: id, Name: name, Undefined: true, Reason: reason}
}

// ParseModuleDefinition splits a DEFINITION into top-level steps and compiles each.
func ParseModuleDefinition(id, name, definition string) (*ModuleDefinition, error) {
	raw, err := splitSteps(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: module %s: %v", ErrMalformedInput, id, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: module %s has an empty definition", ErrMalformedInput, id)
	}

	def := &ModuleDefinition{ID: id, Name: name, Definition: strings.TrimSpace(definition)}
	for _, r := range raw {
		step := Step{Raw: r}
		switch {
		case strings.Contains(r, "--"):
			step.Skipped = true
		case moduleRefRe.MatchString(r):
			step.ModuleRef = true
		default:
			expr, err := compileStep(r)
			if err != nil {
				return nil, fmt.Errorf("%w: module %s step %q: %v", ErrMalformedInput, id, r, err)
			}
			step.expr = expr
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

// splitSteps splits on whitespace outside parentheses.
func splitSteps(definition string) ([]string, error) {
	var (
		steps []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			steps = append(steps, cur.String())
			cur.Reset()
		}
	}
	for _, r := range definition {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')'")
			}
		case isSpace(r) && depth == 0:
			flush()
			continue
		}
		if isSpace(r) {
			r = ' '
		}
		cur.WriteRune(r)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '('")
	}
	flush()
	return steps, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// CountedSteps is the denominator of the completeness fraction.
func (d *ModuleDefinition) CountedSteps() int {
	n := 0
	for _, s := range d.Steps {
		if !s.Skipped {
			n++
		}
	}
	return n
}

// Satisfied reports whether the genome's KO set fulfils the step.
func (s Step) Satisfied(ko KOSet) bool {
	if s.Skipped || s.ModuleRef || s.expr == nil {
		return false
	}
	return s.expr.eval(ko)
}

// Score computes the completeness of one module in one genome. A module is complete
// when every step is satisfied, or when it has at least three steps and exactly one
// is missing.
func (d *ModuleDefinition) Score(genome string, ko KOSet) Completeness {
	c := Completeness{ModuleID: d.ID, Genome: genome, Defined: !d.Undefined}
	if d.Undefined {
		c.Fraction = math.NaN()
		return c
	}
	for _, s := range d.Steps {
		if s.Skipped {
			continue
		}
		c.Total++
		if s.Satisfied(ko) {
			c.Satisfied++
		}
	}
	c.Fraction, c.Complete = CompletenessDecision(c.Total, c.Satisfied)
	return c
}

// CompletenessDecision applies the single-missing-step leniency to modules with
// three or more steps. Zero counted steps is incomplete.
func CompletenessDecision(total, satisfied int) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	fraction := float64(satisfied) / float64(total)
	complete := satisfied == total || (total >= 3 && satisfied == total-1)
	return fraction, complete
}

// ParseKOSet collects every KO identifier in r. Plain lists, "gene<TAB>KO" files
// and eggNOG-mapper KEGG_ko columns ("ko:K00001,ko:K00002") all work.
func ParseKOSet(r io.Reader) (KOSet, error) {
	set := make(KOSet)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, ko := range koTermRe.FindAllString(line, -1) {
			set[ko] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

package request

import "fmt"

// LookupFailurePolicy decides what happens when a module definition cannot be
// fetched.
type LookupFailurePolicy int

const (
	LookupFailureMark LookupFailurePolicy = iota
	LookupFailureFail
)

func (p LookupFailurePolicy) String() string {
	switch p {
	case LookupFailureMark:
		return "mark"
	case LookupFailureFail:
		return "fail"
	default:
		return "mark"
	}
}

func NewLookupFailurePolicy(s string) (LookupFailurePolicy, error) {
	switch s {
	case "mark", "":
		return LookupFailureMark, nil
	case "fail":
		return LookupFailureFail, nil
	default:
		return LookupFailureMark, fmt.Errorf("unknown lookup failure policy %q (mark, fail)", s)
	}
}

// Set and Type let the policy be bound directly as a cobra flag.
func (p *LookupFailurePolicy) Set(s string) error {
	v, err := NewLookupFailurePolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p *LookupFailurePolicy) Type() string { return "policy" }

// TableHeader is the header row option of differential_go_terms: -1 means no
// header, 0 means the first row.
type TableHeader int

const (
	HeaderNone  TableHeader = -1
	HeaderFirst TableHeader = 0
)

func NewTableHeader(n int) (TableHeader, error) {
	switch TableHeader(n) {
	case HeaderNone, HeaderFirst:
		return TableHeader(n), nil
	default:
		return HeaderNone, fmt.Errorf("--header must be -1 (none) or 0 (first row), got %d", n)
	}
}

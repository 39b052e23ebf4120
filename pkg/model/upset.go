package model

import (
	"sort"
	"strings"

	"github.com/skarademir/naturalsort"
)

// Label joins the member genomes with '&'.
func (s Intersection) Label() string {
	return strings.Join(s.Members, "&")
}

func (s Intersection) Contains(genome string) bool {
	for _, m := range s.Members {
		if m == genome {
			return true
		}
	}
	return false
}

// Intersections counts families per exact member set: every family with at least
// one present genome belongs to exactly one intersection. Members keep the column
// order of the matrix. Sorted by count descending, then members.
func (m *PresenceMatrix) Intersections() []Intersection {
	counts := make(map[string]int)
	members := make(map[string][]string)
	for _, row := range m.Present {
		var set []string
		for j, present := range row {
			if present {
				set = append(set, m.Genomes[j])
			}
		}
		if len(set) == 0 {
			continue
		}
		key := strings.Join(set, "&")
		if _, ok := members[key]; !ok {
			members[key] = set
		}
		counts[key]++
	}

	out := make([]Intersection, 0, len(counts))
	for key, n := range counts {
		out = append(out, Intersection{Members: members[key], Count: n})
	}
	SortIntersections(out)
	return out
}

func SortIntersections(xs []Intersection) {
	sort.SliceStable(xs, func(i, j int) bool {
		if xs[i].Count != xs[j].Count {
			return xs[i].Count > xs[j].Count
		}
		return membersLess(xs[i].Members, xs[j].Members)
	})
}

func membersLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return naturalLess(a[i], b[i])
		}
	}
	return len(a) < len(b)
}

// naturalLess falls back to byte order where the natural comparison is not
// antisymmetric (one name a chunk-prefix of the other).
func naturalLess(a, b string) bool {
	if a == b {
		return false
	}
	pair := naturalsort.NaturalSort{a, b}
	ab, ba := pair.Less(0, 1), pair.Less(1, 0)
	if ab != ba {
		return ab
	}
	return a < b
}

// TopIntersections returns at most n of the sorted intersections.
func TopIntersections(xs []Intersection, n int) []Intersection {
	if n <= 0 || n >= len(xs) {
		return xs
	}
	return xs[:n]
}

// SortModuleIDs orders module identifiers naturally (M9 before M10).
func SortModuleIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return naturalLess(ids[i], ids[j]) })
}

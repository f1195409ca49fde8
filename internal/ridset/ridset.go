// Package ridset provides the rid-set algebra used by every index and by
// the query composer: union, intersection, difference, and the
// smallest-first multiunion merge. It is a thin façade over
// github.com/RoaringBitmap/roaring/v2; rids are dense 31-bit integers,
// which is exactly the shape roaring bitmaps handle well.
package ridset

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Set is a set of rids.
type Set = roaring.Bitmap

// New returns an empty set.
func New() *Set {
	return roaring.New()
}

// Of returns a set containing exactly the given rids.
func Of(rids ...int32) *Set {
	s := roaring.New()
	for _, r := range rids {
		s.Add(uint32(r))
	}
	return s
}

// Intersection returns a new set that is the intersection of a and b.
// Either may be nil, in which case a clone of the other is returned;
// callers seed a fold accumulator with nil and intersect term by term.
func Intersection(a, b *Set) *Set {
	if a == nil {
		return b.Clone()
	}
	if b == nil {
		return a.Clone()
	}
	return roaring.And(a, b)
}

// Difference returns a new set containing rids in a but not in b.
func Difference(a, b *Set) *Set {
	if a == nil {
		return New()
	}
	if b == nil {
		return a.Clone()
	}
	return roaring.AndNot(a, b)
}

// Union returns a new set containing rids in a or b.
func Union(a, b *Set) *Set {
	if a == nil {
		return b.Clone()
	}
	if b == nil {
		return a.Clone()
	}
	return roaring.Or(a, b)
}

// Multiunion merges sets smallest-first, which keeps the intermediate
// accumulator small when set sizes are skewed.
func Multiunion(sets []*Set) *Set {
	if len(sets) == 0 {
		return New()
	}
	ordered := make([]*Set, len(sets))
	copy(ordered, sets)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].GetCardinality() < ordered[j].GetCardinality()
	})
	return roaring.FastOr(ordered...)
}

// Contains reports whether rid is a member of s.
func Contains(s *Set, rid int32) bool {
	if s == nil {
		return false
	}
	return s.Contains(uint32(rid))
}

// Slice returns the sorted rids of s as int32.
func Slice(s *Set) []int32 {
	if s == nil {
		return nil
	}
	out := make([]int32, 0, s.GetCardinality())
	it := s.Iterator()
	for it.HasNext() {
		out = append(out, int32(it.Next()))
	}
	return out
}

// Len returns the cardinality of s (0 for nil).
func Len(s *Set) int {
	if s == nil {
		return 0
	}
	return int(s.GetCardinality())
}

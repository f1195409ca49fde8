// Package collection implements the DNF query composer that sits on top of
// a catalog's index family: groupings of AND/NOT terms folded left to
// right, OR-ed together, with optional sort and limit.
package collection

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"dewey/internal/catalog"
	"dewey/internal/errkind"
	"dewey/internal/ridset"
)

type op int

const (
	opStart op = iota // the first term of a grouping: OR, or the initial constraint
	opAnd
	opNot
)

type call func(arg string) (*ridset.Set, error)

type term struct {
	op    op
	query string // the constraint text this term was parsed from
	call  call
	arg   string
}

// Collection is a filtered, lazily-evaluated view over a catalog's
// resources. AND, NOT and OR bind exactly as they read:
//
//	(foo AND bar) OR (baz NOT buz)
//
// never
//
//	foo AND (bar OR baz) NOT buz
//
// Each call to AND/NOT/OR is validated immediately against the catalog's
// installed indices; evaluation against the catalog's current rid set is
// deferred until the collection is iterated or counted. The result is then
// cached until the next AND/NOT/OR/Clear.
type Collection struct {
	cat *catalog.Catalog

	constraints [][]term
	sortIndex   string
	limit       int // 0 means unlimited

	data *ridset.Set // nil until evaluated
	err  error
}

// New constructs a Collection. An empty constraint matches every resource
// currently in the catalog.
func New(cat *catalog.Catalog, constraint string) (*Collection, error) {
	c := &Collection{cat: cat}
	c.reset(constraint)
	return c, c.err
}

func (c *Collection) reset(constraint string) {
	c.constraints = nil
	c.data = nil
	c.err = nil
	t, err := c.start(constraint)
	if err != nil {
		c.err = err
		return
	}
	c.constraints = [][]term{{t}}
}

// Clear drops every constraint, reverting to "match everything".
func (c *Collection) Clear() {
	c.reset("")
}

func (c *Collection) start(constraint string) (term, error) {
	if constraint == "" {
		return term{op: opStart, call: c.everything()}, nil
	}
	call, arg, err := c.validate(constraint)
	if err != nil {
		return term{}, err
	}
	return term{op: opStart, query: constraint, call: call, arg: arg}, nil
}

func (c *Collection) everything() call {
	return func(string) (*ridset.Set, error) {
		return c.cat.Rids(), nil
	}
}

// AND excludes any resource not also satisfying constraint, narrowing the
// current (last) grouping.
func (c *Collection) AND(constraint string) error {
	callFn, arg, err := c.validate(constraint)
	if err != nil {
		return err
	}
	c.append(opAnd, constraint, callFn, arg)
	return nil
}

// NOT excludes any resource satisfying constraint, narrowing the current
// (last) grouping.
func (c *Collection) NOT(constraint string) error {
	callFn, arg, err := c.validate(constraint)
	if err != nil {
		return err
	}
	c.append(opNot, constraint, callFn, arg)
	return nil
}

// OR starts a new grouping, which is unioned into the result alongside
// every prior grouping. An empty constraint starts the new grouping with
// every resource, which is most useful for following immediately with a
// NOT.
func (c *Collection) OR(constraint string) error {
	t, err := c.start(constraint)
	if err != nil {
		return err
	}
	c.constraints = append(c.constraints, []term{t})
	c.data = nil
	return nil
}

func (c *Collection) append(o op, query string, callFn call, arg string) {
	last := len(c.constraints) - 1
	c.constraints[last] = append(c.constraints[last], term{op: o, query: query, call: callFn, arg: arg})
	c.data = nil
}

// validate parses "<index> [search [arg]]" and resolves it to a concrete
// search invocation against one of the catalog's installed indices.
func (c *Collection) validate(constraint string) (call, string, error) {
	indexName, search, arg, err := parse(constraint)
	if err != nil {
		return nil, "", err
	}
	if indexName == "" {
		return c.everything(), "", nil
	}
	idx, ok := c.cat.GetIndex(indexName)
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown index: %q", errkind.ErrBadQuery, indexName)
	}
	if search == "" {
		return nil, "", fmt.Errorf("%w: search type required for index %q", errkind.ErrBadQuery, indexName)
	}
	return func(a string) (*ridset.Set, error) {
		return idx.Search(search, a)
	}, arg, nil
}

// parse splits a constraint string of the form "<index> <search> <arg>"
// into its three (optional past the first) parts. At most two splits are
// performed, so arg may itself contain whitespace.
func parse(constraint string) (index, search, arg string, err error) {
	fields := splitN(constraint, 3)
	switch len(fields) {
	case 1:
		index = fields[0]
	case 2:
		index, search = fields[0], fields[1]
	case 3:
		index, search, arg = fields[0], fields[1], fields[2]
	default:
		return "", "", "", fmt.Errorf("%w: bad constraint: %q", errkind.ErrBadQuery, constraint)
	}
	switch search {
	case "is":
		search = "is_"
	case "in":
		search = "in_"
	}
	return index, search, arg, nil
}

func splitN(s string, n int) []string {
	fields := make([]string, 0, n)
	for i := 0; i < n-1; i++ {
		s = strings.TrimLeft(s, " \t\n\r")
		idx := strings.IndexAny(s, " \t\n\r")
		if idx < 0 {
			break
		}
		fields = append(fields, s[:idx])
		s = s[idx:]
	}
	s = strings.TrimLeft(s, " \t\n\r")
	if s != "" {
		fields = append(fields, s)
	}
	return fields
}

// SetSort configures the collection to walk resources in a given index's
// sorted order rather than arbitrary rid order. Passing "" clears it.
func (c *Collection) SetSort(indexName string) error {
	if indexName == "" {
		c.sortIndex = ""
		return nil
	}
	idx, ok := c.cat.GetIndex(indexName)
	if !ok {
		return fmt.Errorf("%w: no such index: %q", errkind.ErrBadSort, indexName)
	}
	if idx.Sorted() == nil {
		return fmt.Errorf("%w: index %q is not sortable", errkind.ErrBadSort, indexName)
	}
	c.sortIndex = indexName
	return nil
}

// SetLimit caps the number of resources Resources and All will yield. The
// limit must be positive; use Unlimit to clear it.
func (c *Collection) SetLimit(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: limit must be a positive integer: %d", errkind.ErrBadLimit, n)
	}
	c.limit = n
	return nil
}

// Unlimit removes any configured limit.
func (c *Collection) Unlimit() {
	c.limit = 0
}

// ParseLimit accepts the limit as a string, as the CLI does.
func ParseLimit(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer: %q", errkind.ErrBadLimit, s)
	}
	return n, nil
}

// evaluate runs every constraint against the catalog's current rid set,
// caching the result until the next mutation invalidates it.
func (c *Collection) evaluate() error {
	if c.data != nil || c.err != nil {
		return c.err
	}

	groupings := make([]*ridset.Set, 0, len(c.constraints))
	for _, grouping := range c.constraints {
		var result *ridset.Set
		for _, t := range grouping {
			set, err := t.call(t.arg)
			if err != nil {
				c.err = err
				return err
			}
			switch t.op {
			case opStart:
				result = set
			case opAnd:
				result = ridset.Intersection(result, set)
			case opNot:
				result = ridset.Difference(result, set)
			}
		}
		if result != nil {
			groupings = append(groupings, result)
		}
	}

	data := ridset.Multiunion(groupings)
	if data == nil {
		data = ridset.New()
	}
	c.data = data
	return nil
}

// Len returns the number of matching resources, capped by the configured
// limit if any.
func (c *Collection) Len() (int, error) {
	if err := c.evaluate(); err != nil {
		return 0, err
	}
	n := ridset.Len(c.data)
	if c.limit > 0 && n > c.limit {
		return c.limit, nil
	}
	return n, nil
}

// RawLen returns the number of matching resources before any limit is
// applied, for a prompt or status line that wants to show both figures.
func (c *Collection) RawLen() (int, error) {
	if err := c.evaluate(); err != nil {
		return 0, err
	}
	return ridset.Len(c.data), nil
}

// Limit returns the currently configured limit, or 0 if unlimited.
func (c *Collection) Limit() int { return c.limit }

// SortName returns the name of the index the collection currently sorts
// by, or "" if unsorted.
func (c *Collection) SortName() string { return c.sortIndex }

// Resources evaluates the collection and returns the matching resources in
// order (sorted-index order if a sort is configured, otherwise ascending
// rid order), truncated to the configured limit.
func (c *Collection) Resources() ([]catalog.Resource, error) {
	if err := c.evaluate(); err != nil {
		return nil, err
	}

	var out []catalog.Resource
	for res := range c.iterate() {
		out = append(out, res)
	}
	return out, c.err
}

// All ranges over the collection's matching resources. Any evaluation
// error is recorded and retrievable via Err; ranging stops early in that
// case.
func (c *Collection) All() iter.Seq[catalog.Resource] {
	return func(yield func(catalog.Resource) bool) {
		if err := c.evaluate(); err != nil {
			return
		}
		for res := range c.iterate() {
			if !yield(res) {
				return
			}
		}
	}
}

// Err returns the error from the most recent evaluation, if any.
func (c *Collection) Err() error { return c.err }

func (c *Collection) iterate() iter.Seq[catalog.Resource] {
	return func(yield func(catalog.Resource) bool) {
		i := 0
		withinLimit := func() bool { return c.limit == 0 || i < c.limit }

		if c.sortIndex == "" {
			for _, rid := range ridset.Slice(c.data) {
				if !withinLimit() {
					return
				}
				res, ok := c.cat.Resource(rid)
				if !ok {
					continue
				}
				if !yield(res) {
					return
				}
				i++
			}
			return
		}

		idx, ok := c.cat.GetIndex(c.sortIndex)
		if !ok {
			return
		}
		for set := range idx.Sorted() {
			for _, rid := range ridset.Slice(set) {
				if !withinLimit() {
					return
				}
				if !ridset.Contains(c.data, rid) {
					continue
				}
				res, ok := c.cat.Resource(rid)
				if !ok {
					continue
				}
				if !yield(res) {
					return
				}
				i++
			}
		}
	}
}

// Constraints renders the current constraint groupings back into their
// textual form, for the CLI's "constraints" command.
func (c *Collection) Constraints() [][]string {
	out := make([][]string, len(c.constraints))
	for i, grouping := range c.constraints {
		rendered := make([]string, len(grouping))
		for j, t := range grouping {
			prefix := ""
			switch t.op {
			case opAnd:
				prefix = "AND "
			case opNot:
				prefix = "NOT "
			case opStart:
				if i > 0 {
					prefix = "OR "
				}
			}
			rendered[j] = prefix + t.query
		}
		out[i] = rendered
	}
	return out
}

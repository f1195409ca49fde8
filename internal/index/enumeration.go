package index

import (
	"fmt"
	"sort"
	"strings"

	"dewey/internal/errkind"
	"dewey/internal/ridset"
)

// noDefault is a private sentinel distinguishing "no default configured"
// from a legitimate default value (including the empty string).
type noDefaultType struct{}

var noDefault = noDefaultType{}

// Enumeration is an index over a fixed, small set of permitted values. A
// missing value at learn time is replaced by the configured default, if
// any.
type Enumeration struct {
	name    string
	allowed []string
	allowedSet map[string]struct{}
	def     any // string default value, or noDefault

	values map[int32]string        // rid -> value, for Forget
	rids   map[string]*ridset.Set  // value -> rids (also the sorted view)
}

// NewEnumeration constructs an Enumeration index over allowed values with
// no default; use WithDefault to configure one.
func NewEnumeration(name string, allowed ...string) *Enumeration {
	e := &Enumeration{name: name, allowed: allowed, def: noDefault}
	e.allowedSet = make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		e.allowedSet[v] = struct{}{}
	}
	e.Reset()
	return e
}

// WithDefault sets the default value substituted for a missing value at
// learn time. It panics if the default is not itself a permitted value.
func (e *Enumeration) WithDefault(value string) *Enumeration {
	if _, ok := e.allowedSet[value]; !ok {
		panic(fmt.Sprintf("dewey: default %q not in allowed values", value))
	}
	e.def = value
	return e
}

func (e *Enumeration) Name() string { return "Enumeration" }

func (e *Enumeration) Reset() {
	e.values = make(map[int32]string)
	e.rids = make(map[string]*ridset.Set)
}

func (e *Enumeration) Learn(rid int32, value any) error {
	var v string
	switch val := value.(type) {
	case nil:
		if e.def == noDefault {
			return fmt.Errorf("%w: nil value with no default", errkind.ErrBadValue)
		}
		v = e.def.(string)
	case string:
		if _, ok := e.allowedSet[val]; !ok {
			return fmt.Errorf("%w: %q not in allowed values", errkind.ErrBadValue, val)
		}
		v = val
	default:
		return fmt.Errorf("%w: value is not a string: %v", errkind.ErrBadValue, value)
	}

	if old, known := e.values[rid]; known {
		removeRid(e.rids, old, rid)
	}
	insertRid(e.rids, v, rid)
	e.values[rid] = v
	return nil
}

func (e *Enumeration) Forget(rid int32) error {
	v, ok := e.values[rid]
	if !ok {
		return fmt.Errorf("%w: %d", errkind.ErrUnknownRid, rid)
	}
	removeRid(e.rids, v, rid)
	delete(e.values, rid)
	return nil
}

// Is returns the rids learned with exactly value.
func (e *Enumeration) Is(value string) *ridset.Set {
	if set, ok := e.rids[value]; ok {
		return set.Clone()
	}
	return ridset.New()
}

// In returns the union of Is(v) for each value named in arg. arg is either
// a bracketed/parenthesized, comma-separated, quoted literal list
// ("[a, b]" or "(a, b)"), or a bare comma-separated list.
func (e *Enumeration) In(arg string) (*ridset.Set, error) {
	if arg == "" {
		return nil, fmt.Errorf("%w: no arg given", errkind.ErrBadArg)
	}
	var values []string
	if strings.HasPrefix(arg, "[") || strings.HasPrefix(arg, "(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(arg), arg[:1]), closingFor(arg[0]))
		for _, tok := range strings.Split(inner, ",") {
			tok = strings.TrimSpace(tok)
			tok = strings.Trim(tok, `"'`)
			if tok != "" {
				values = append(values, tok)
			}
		}
	} else {
		if !strings.Contains(arg, ",") {
			return nil, fmt.Errorf("%w: malformed arg [no comma]: %q", errkind.ErrBadArg, arg)
		}
		for _, tok := range strings.Split(arg, ",") {
			values = append(values, strings.TrimSpace(tok))
		}
	}

	sets := make([]*ridset.Set, len(values))
	for i, v := range values {
		sets[i] = e.Is(v)
	}
	return ridset.Multiunion(sets), nil
}

func closingFor(open byte) string {
	if open == '[' {
		return "]"
	}
	return ")"
}

func (e *Enumeration) Search(name string, arg string) (*ridset.Set, error) {
	switch name {
	case "is_":
		return e.Is(arg), nil
	case "in_":
		return e.In(arg)
	default:
		return nil, fmt.Errorf("%w: unknown search %q for index %q", errkind.ErrBadQuery, name, e.name)
	}
}

func (e *Enumeration) Sorted() SortedIterator {
	return func(yield func(*ridset.Set) bool) {
		keys := make([]string, 0, len(e.rids))
		for k := range e.rids {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !yield(e.rids[k]) {
				return
			}
		}
	}
}

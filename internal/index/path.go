package index

import (
	"fmt"
	"strconv"
	"strings"

	"dewey/internal/errkind"
	"dewey/internal/ridset"
)

type levelPart struct {
	level int
	part  string
}

// Path specializes String for path-shaped values, adding level-aware
// below/above searches bounded by level windows. It delegates
// startswith/contains/endswith/in_ to the embedded String index, which
// indexes the full path string.
type Path struct {
	*String

	caseSensitive bool

	path2rid map[string]int32
	rid2path map[int32]string

	parts    map[levelPart]*ridset.Set // (level, segment) -> rids
	ridParts map[int32]map[levelPart]struct{}
	levels   map[int]*ridset.Set // level -> rids at that level (last segment)
	ridLevel map[int32]int
}

// NewPath constructs a Path index over POSIX-style absolute paths.
// Callers cataloging a case-insensitive filesystem pass caseSensitive
// false; there is no per-platform detection here.
func NewPath(name string, caseSensitive bool) *Path {
	p := &Path{
		String:        NewString(name, caseSensitive),
		caseSensitive: caseSensitive,
	}
	p.Reset()
	return p
}

func (p *Path) Name() string { return "Path" }

func (p *Path) Reset() {
	p.String.Reset()
	p.path2rid = make(map[string]int32)
	p.rid2path = make(map[int32]string)
	p.parts = make(map[levelPart]*ridset.Set)
	p.ridParts = make(map[int32]map[levelPart]struct{})
	p.levels = make(map[int]*ridset.Set)
	p.ridLevel = make(map[int32]int)
}

func (p *Path) normalizePath(path string) string {
	path = strings.TrimRight(path, "/")
	if !p.caseSensitive {
		path = strings.ToLower(path)
	}
	return path
}

// splitPath splits a normalized path ("" for root, "/a/b" otherwise) into
// its separator-delimited segments. strings.Split("", "/") already yields
// [""], so the root case needs no special handling.
func splitPath(path string) []string {
	return strings.Split(path, "/")
}

func addLevelRid(m map[levelPart]*ridset.Set, key levelPart, rid int32) {
	set, ok := m[key]
	if !ok {
		set = ridset.New()
		m[key] = set
	}
	set.Add(uint32(rid))
}

func delLevelRid(m map[levelPart]*ridset.Set, key levelPart, rid int32) {
	set, ok := m[key]
	if !ok {
		return
	}
	set.Remove(uint32(rid))
	if set.IsEmpty() {
		delete(m, key)
	}
}

func addLevel(m map[int]*ridset.Set, level int, rid int32) {
	set, ok := m[level]
	if !ok {
		set = ridset.New()
		m[level] = set
	}
	set.Add(uint32(rid))
}

func delLevel(m map[int]*ridset.Set, level int, rid int32) {
	set, ok := m[level]
	if !ok {
		return
	}
	set.Remove(uint32(rid))
	if set.IsEmpty() {
		delete(m, level)
	}
}

func (p *Path) Learn(rid int32, value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: value is not a string: %v", errkind.ErrBadValue, value)
	}
	if !strings.HasPrefix(str, "/") {
		return fmt.Errorf("%w: path not specified absolutely: %q", errkind.ErrBadValue, str)
	}

	// String.Learn replaces any prior value for rid; mirror that here for
	// the level-part state before indexing the new path.
	if _, known := p.ridParts[rid]; known {
		p.forgetParts(rid)
	}

	if err := p.String.Learn(rid, str); err != nil {
		return err
	}

	path := p.normalizePath(str)
	segs := splitPath(path)

	p.path2rid[path] = rid
	p.rid2path[rid] = path

	keys := make(map[levelPart]struct{}, len(segs))
	for level, seg := range segs {
		key := levelPart{level, seg}
		addLevelRid(p.parts, key, rid)
		keys[key] = struct{}{}
	}
	p.ridParts[rid] = keys

	lastLevel := len(segs) - 1
	addLevel(p.levels, lastLevel, rid)
	p.ridLevel[rid] = lastLevel

	return nil
}

func (p *Path) Forget(rid int32) error {
	if err := p.String.Forget(rid); err != nil {
		return err
	}
	if _, ok := p.ridParts[rid]; !ok {
		return fmt.Errorf("%w: %d", errkind.ErrUnknownRid, rid)
	}
	p.forgetParts(rid)
	return nil
}

func (p *Path) forgetParts(rid int32) {
	for key := range p.ridParts[rid] {
		delLevelRid(p.parts, key, rid)
	}
	delLevel(p.levels, p.ridLevel[rid], rid)
	delete(p.ridParts, rid)
	delete(p.ridLevel, rid)

	path := p.rid2path[rid]
	delete(p.path2rid, path)
	delete(p.rid2path, rid)
}

// Is returns the rid corresponding to a single path, as a (possibly empty)
// singleton set.
func (p *Path) Is(arg string) *ridset.Set {
	path := p.normalizePath(arg)
	if rid, ok := p.path2rid[path]; ok {
		return ridset.Of(rid)
	}
	return ridset.New()
}

// Below finds all resources at or below path, within the optional level
// window. Unknown paths and paths with no matching descendants both
// return the empty set.
func (p *Path) Below(arg string) (*ridset.Set, error) {
	path, upper, lower, err := parsePathAndLimits(arg, p.caseSensitive)
	if err != nil {
		return nil, err
	}
	return p.belowParsed(path, upper, lower)
}

func (p *Path) belowParsed(path string, upper, lower *int) (*ridset.Set, error) {
	if _, ok := p.path2rid[path]; !ok {
		return ridset.New(), nil
	}
	segs := splitPath(path)
	level := len(segs) - 1

	var rids *ridset.Set
	for l, seg := range segs {
		set, ok := p.parts[levelPart{l, seg}]
		if !ok {
			return ridset.New(), nil
		}
		rids = ridset.Intersection(rids, set)
	}
	if rids == nil {
		return ridset.New(), nil
	}

	if upper != nil {
		upperLevel := level + *upper
		for i := level; i < upperLevel; i++ {
			lv, ok := p.levels[i]
			if !ok {
				continue
			}
			rids = ridset.Difference(rids, lv)
		}
	}
	if lower != nil {
		lowerLevel := level + *lower
		var unionSets []*ridset.Set
		for i := level; i < lowerLevel; i++ {
			lv, ok := p.levels[i]
			if !ok {
				continue
			}
			unionSets = append(unionSets, lv)
		}
		rids = ridset.Intersection(rids, ridset.Multiunion(unionSets))
	}

	return rids, nil
}

// Above finds the resources at every ancestor of path (root down to and
// including path itself), within the level window, default "0:1"
// (breadcrumbs: the ancestor chain only, no subtrees). An explicit "0:"
// recovers the full-subtree-for-every-ancestor behavior.
func (p *Path) Above(arg string) (*ridset.Set, error) {
	path, upper, lower, err := parsePathAndLimits(arg, p.caseSensitive)
	if err != nil {
		return nil, err
	}
	if _, ok := p.path2rid[path]; !ok {
		return ridset.New(), nil
	}
	if upper == nil && lower == nil {
		z, o := 0, 1
		upper, lower = &z, &o
	}

	segs := splitPath(path)
	sets := make([]*ridset.Set, 0, len(segs))
	for level := range segs {
		ancestor := strings.Join(segs[:level+1], "/")
		set, err := p.belowParsed(ancestor, upper, lower)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return ridset.Multiunion(sets), nil
}

func (p *Path) Search(name string, arg string) (*ridset.Set, error) {
	switch name {
	case "is_":
		return p.Is(arg), nil
	case "below":
		return p.Below(arg)
	case "above":
		return p.Above(arg)
	default:
		return p.String.Search(name, arg)
	}
}

func (p *Path) Sorted() SortedIterator {
	return p.String.Sorted()
}

// parsePathAndLimits parses a Collection search argument of the form
// "/some/path upper:lower", where the limits window is optional and either
// side of the colon may be empty.
func parsePathAndLimits(arg string, caseSensitive bool) (path string, upper, lower *int, err error) {
	fields := strings.Fields(arg)
	if len(fields) < 1 || len(fields) > 2 {
		return "", nil, nil, fmt.Errorf("%w: either need path or path and limits: %q", errkind.ErrBadArg, arg)
	}
	rawPath := fields[0]

	if len(fields) == 2 {
		limits := fields[1]
		if strings.Count(limits, ":") != 1 {
			return "", nil, nil, fmt.Errorf("%w: malformed limits (no colon): %q", errkind.ErrBadArg, limits)
		}
		parts := strings.SplitN(limits, ":", 2)

		if parts[0] != "" {
			u, e := strconv.Atoi(parts[0])
			if e != nil || u < 0 {
				return "", nil, nil, fmt.Errorf("%w: bad upper limit: %q", errkind.ErrBadArg, parts[0])
			}
			upper = &u
		}
		if parts[1] != "" {
			l, e := strconv.Atoi(parts[1])
			if e != nil || l < 0 {
				return "", nil, nil, fmt.Errorf("%w: bad lower limit: %q", errkind.ErrBadArg, parts[1])
			}
			lower = &l
		}
		if upper != nil && lower != nil && *upper > *lower {
			return "", nil, nil, fmt.Errorf("%w: upper limit greater than lower: %d > %d", errkind.ErrBadArg, *upper, *lower)
		}
	}

	path = strings.TrimRight(rawPath, "/")
	if !caseSensitive {
		path = strings.ToLower(path)
	}
	return path, upper, lower, nil
}

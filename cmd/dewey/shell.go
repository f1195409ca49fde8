package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"dewey"
	"dewey/internal/catalog"
	"dewey/internal/collection"
	"dewey/internal/ridset"
)

// shell holds the interactive REPL state: one collection at a time.
// AND/NOT/OR narrow or extend the current collection, a bare line starts
// a fresh one, and "clear" drops it.
type shell struct {
	ctx context.Context
	d   *dewey.Dewey
	cat *catalog.Catalog

	coll       *collection.Collection
	fields     []string
	indexNames []string
}

func runShell(ctx context.Context, d *dewey.Dewey) {
	s := &shell{ctx: ctx, d: d, cat: d.Catalog()}
	s.refreshFields()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(s.prompt())
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.dispatch(line) {
			return
		}
	}
}

func (s *shell) refreshFields() {
	s.indexNames = append([]string(nil), s.cat.IndexNames()...)
	sort.Strings(s.indexNames)

	s.fields = nil
	if res, ok := anyResourceFields(s.cat); ok {
		s.fields = res
	}
}

// anyResourceFields asks the catalog for one resource that implements
// catalog.Fielder, to list the attribute names a report can show. Returns
// false if the catalog is empty or its Resource type doesn't expose one.
func anyResourceFields(cat *catalog.Catalog) ([]string, bool) {
	for _, rid := range ridset.Slice(cat.Rids()) {
		res, ok := cat.Resource(rid)
		if !ok {
			continue
		}
		fielder, ok := res.(catalog.Fielder)
		if !ok {
			return nil, false
		}
		fields := append([]string(nil), fielder.Fields()...)
		sort.Strings(fields)
		return fields, true
	}
	return nil, false
}

// prompt renders "dewey (N|M)> " style status: braces turn to brackets
// when a sort is active; with a limit set, the separator turns to '\' when
// the match count exceeds the limit and '/' when it doesn't, and it stays
// '|' when no limit is set.
func (s *shell) prompt() string {
	total := ridset.Len(s.cat.Rids())
	right := fmt.Sprintf("%d", total)

	if s.coll == nil {
		return fmt.Sprintf("dewey (%s%s)> ", strings.Repeat(" ", len(right)), "")
	}

	raw, err := s.coll.RawLen()
	if err != nil {
		raw = 0
	}
	left, sep := raw, "|"
	if limit := s.coll.Limit(); limit > 0 {
		if raw > limit {
			left, sep = limit, "\\"
		} else {
			sep = "/"
		}
	}

	lbrace, rbrace := "(", ")"
	if s.coll.SortName() != "" {
		lbrace, rbrace = "[", "]"
	}

	leftStr := fmt.Sprintf("%d", left)
	if pad := len(right) - len(leftStr); pad > 0 {
		leftStr = strings.Repeat(" ", pad) + leftStr
	}
	return fmt.Sprintf("dewey %s%s%s%s%s> ", lbrace, leftStr, sep, right, rbrace)
}

// dispatch runs a single shell line. It returns true when the shell
// should exit.
func (s *shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "and":
		s.ensureCollection()
		if err := s.coll.AND(rest); err != nil {
			fmt.Println(err)
		}
	case "not":
		s.ensureCollection()
		if err := s.coll.NOT(rest); err != nil {
			fmt.Println(err)
		}
	case "or":
		s.ensureCollection()
		if err := s.coll.OR(rest); err != nil {
			fmt.Println(err)
		}
	case "clear":
		s.clear(rest)
	case "constraints":
		s.printConstraints()
	case "crawl":
		s.crawlOnce()
	case "fields":
		s.printFields()
	case "indices":
		s.printIndices()
	case "limit":
		s.limit(rest)
	case "unlimit":
		s.unlimit()
	case "sort":
		s.sort(rest)
	case "unsort":
		s.unsort()
	case "ls":
		s.ls(rest)
	case "exit", "quit", "q":
		return true
	default:
		s.newCollection(line)
	}
	return false
}

func (s *shell) newCollection(constraint string) {
	coll, err := collection.New(s.cat, constraint)
	if err != nil {
		fmt.Println(err)
		return
	}
	s.coll = coll
}

func (s *shell) ensureCollection() {
	if s.coll == nil {
		s.newCollection("")
	}
}

func (s *shell) clear(arg string) {
	if arg == "catalog" {
		s.cat.Reset()
		s.refreshFields()
		s.coll = nil
		return
	}
	s.coll = nil
}

func (s *shell) printConstraints() {
	if s.coll == nil {
		return
	}
	for i, grouping := range s.coll.Constraints() {
		for j, text := range grouping {
			if j == 0 && i > 0 && !strings.HasPrefix(text, "OR") {
				text = "OR " + text
			}
			if j == 0 {
				fmt.Println(text)
			} else {
				fmt.Println(" " + text)
			}
		}
	}
}

func (s *shell) crawlOnce() {
	if err := s.cat.CrawlOnce(s.ctx); err != nil {
		fmt.Println(err)
		return
	}
	s.refreshFields()
}

func (s *shell) printFields() {
	for _, f := range s.fields {
		fmt.Println(" " + f)
	}
}

func (s *shell) printIndices() {
	longest := 0
	for _, name := range s.indexNames {
		if len(name) > longest {
			longest = len(name)
		}
	}
	for _, name := range s.indexNames {
		idx, _ := s.cat.GetIndex(name)
		fmt.Printf(" %-*s  %s\n", longest, name, idx.Name())
	}
}

func (s *shell) limit(arg string) {
	if s.coll == nil {
		fmt.Println("no collection to limit")
		return
	}
	if arg == "" {
		fmt.Println(s.coll.Limit())
		return
	}
	n, err := collection.ParseLimit(arg)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := s.coll.SetLimit(n); err != nil {
		fmt.Println(err)
	}
}

func (s *shell) unlimit() {
	if s.coll == nil {
		fmt.Println("no collection to unlimit")
		return
	}
	s.coll.Unlimit()
}

func (s *shell) sort(arg string) {
	if s.coll == nil {
		fmt.Println("no collection to sort")
		return
	}
	if arg == "" {
		fmt.Println(s.coll.SortName())
		return
	}
	if err := s.coll.SetSort(arg); err != nil {
		fmt.Println(err)
	}
}

func (s *shell) unsort() {
	if s.coll == nil {
		fmt.Println("no collection to unsort")
		return
	}
	s.coll.SetSort("")
}

func (s *shell) ls(arg string) {
	if s.coll == nil {
		return
	}
	fields := s.fields
	if arg != "" {
		fields = strings.Fields(arg)
	}
	if len(fields) == 0 {
		return
	}

	colwidth := 78/len(fields) - 1
	if colwidth < 1 {
		colwidth = 1
	}
	trim := func(v string) string {
		if len(v) > colwidth {
			v = v[:colwidth-1] + "~"
		}
		return v + strings.Repeat(" ", colwidth-len(v))
	}

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = trim(f)
	}
	fmt.Println()
	fmt.Println(" " + strings.Join(header, " "))
	fmt.Println(" " + strings.Repeat("=", 77))

	resources, err := s.coll.Resources()
	if err != nil {
		fmt.Println(err)
	}
	for _, res := range resources {
		row := make([]string, len(fields))
		for i, f := range fields {
			v, ok := res.Attr(f)
			if !ok {
				row[i] = trim("<n/a>")
				continue
			}
			row[i] = trim(fmt.Sprintf("%v", v))
		}
		fmt.Println(" " + strings.Join(row, " "))
	}
	fmt.Println()
}

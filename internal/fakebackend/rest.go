// ABOUTME: In-memory evaluation of the REST dialect the console client emits
// ABOUTME: Select with embeds, eq/ilike/in/or filters, ordering, and Range paging

package fakebackend

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// embedFK maps table -> embedded table -> foreign key column, describing the
// many-to-one relationships the console embeds.
var embedFK = map[string]map[string]string{
	"subscriptions": {"plans": "plan_id"},
	"follows":       {"live_accounts": "live_account_id"},
	"recordings":    {"live_accounts": "live_account_id"},
}

// selectItem is one entry of a select list: either a plain column or an
// embedded relation.
type selectItem struct {
	column string

	embed      bool
	alias      string
	embedTable string
	inner      bool
	embedCols  []string
}

// restFilter is one conjunctive predicate. An embedded filter carries the
// relation it addresses in embedTable.
type restFilter struct {
	column     string
	embedTable string
	op         string // eq, ilike, in
	value      string
	values     []string // for in
	or         []restFilter
}

// restQuery is one parsed REST read.
type restQuery struct {
	table   string
	sel     []selectItem
	filters []restFilter
	orderBy string
	desc    bool
	limit   int
}

func parseRestQuery(table string, params url.Values) (*restQuery, error) {
	q := &restQuery{table: table}

	if sel := params.Get("select"); sel != "" && sel != "*" {
		items, err := parseSelect(sel)
		if err != nil {
			return nil, err
		}
		q.sel = items
	}

	if order := params.Get("order"); order != "" {
		col, dir, ok := strings.Cut(order, ".")
		q.orderBy = col
		if ok {
			switch dir {
			case "asc":
			case "desc":
				q.desc = true
			default:
				return nil, fmt.Errorf("unsupported order direction %q", dir)
			}
		}
	}

	if limit := params.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return nil, fmt.Errorf("bad limit %q", limit)
		}
		q.limit = n
	}

	for key, vals := range params {
		switch key {
		case "select", "order", "limit":
			continue
		}
		for _, val := range vals {
			f, err := parseFilter(table, key, val)
			if err != nil {
				return nil, err
			}
			q.filters = append(q.filters, f)
		}
	}
	return q, nil
}

// parseSelect splits a select list at top-level commas and classifies each
// item as a column or an embed like "alias:table!inner(cols)".
func parseSelect(sel string) ([]selectItem, error) {
	var items []selectItem
	for _, part := range splitTopLevel(sel) {
		open := strings.IndexByte(part, '(')
		if open < 0 {
			items = append(items, selectItem{column: part})
			continue
		}
		if !strings.HasSuffix(part, ")") {
			return nil, fmt.Errorf("malformed embed %q", part)
		}

		head := part[:open]
		cols := part[open+1 : len(part)-1]

		item := selectItem{embed: true}
		if alias, rest, ok := strings.Cut(head, ":"); ok {
			item.alias = alias
			head = rest
		}
		if table, ok := strings.CutSuffix(head, "!inner"); ok {
			item.inner = true
			head = table
		}
		item.embedTable = head
		if item.alias == "" {
			item.alias = head
		}
		if cols != "" && cols != "*" {
			item.embedCols = strings.Split(cols, ",")
		}
		items = append(items, item)
	}
	return items, nil
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func parseFilter(table, key, val string) (restFilter, error) {
	if key == "or" {
		if !strings.HasPrefix(val, "(") || !strings.HasSuffix(val, ")") {
			return restFilter{}, fmt.Errorf("malformed or filter %q", val)
		}
		var disjuncts []restFilter
		for _, cond := range splitTopLevel(val[1 : len(val)-1]) {
			col, rest, ok := strings.Cut(cond, ".")
			if !ok {
				return restFilter{}, fmt.Errorf("malformed or condition %q", cond)
			}
			f, err := parseFilter(table, col, rest)
			if err != nil {
				return restFilter{}, err
			}
			disjuncts = append(disjuncts, f)
		}
		return restFilter{or: disjuncts}, nil
	}

	f := restFilter{column: key}
	if embedTable, col, ok := strings.Cut(key, "."); ok {
		if embedFK[table][embedTable] == "" {
			return restFilter{}, fmt.Errorf("unknown embedded relation %q", embedTable)
		}
		f.embedTable = embedTable
		f.column = col
	}

	op, operand, ok := strings.Cut(val, ".")
	if !ok {
		return restFilter{}, fmt.Errorf("malformed predicate %q=%q", key, val)
	}
	switch op {
	case "eq", "ilike":
		f.op = op
		f.value = operand
	case "in":
		if !strings.HasPrefix(operand, "(") || !strings.HasSuffix(operand, ")") {
			return restFilter{}, fmt.Errorf("malformed in list %q", operand)
		}
		f.op = op
		inner := operand[1 : len(operand)-1]
		if inner != "" {
			f.values = strings.Split(inner, ",")
		}
	default:
		return restFilter{}, fmt.Errorf("unsupported operator %q", op)
	}
	return f, nil
}

// run evaluates the query over the store: filter, order, project embeds,
// and return all matching rows before paging.
func (q *restQuery) run(s *Store) ([]map[string]any, error) {
	rows, err := s.loadTable(q.table)
	if err != nil {
		return nil, err
	}

	embeds := make(map[string]map[string]map[string]any) // embed table -> fk value -> row
	for _, item := range q.sel {
		if !item.embed {
			continue
		}
		fk := embedFK[q.table][item.embedTable]
		if fk == "" {
			return nil, fmt.Errorf("no relationship from %s to %s", q.table, item.embedTable)
		}
		related, err := s.loadTable(item.embedTable)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]map[string]any, len(related))
		for _, r := range related {
			if id, ok := r["id"].(string); ok {
				byID[id] = r
			}
		}
		embeds[item.embedTable] = byID
	}

	// embedded filters also need their relation resolved even when the
	// select list was not parsed (HEAD counts)
	for _, f := range q.filters {
		for _, ef := range append(f.or, f) {
			if ef.embedTable != "" && embeds[ef.embedTable] == nil {
				related, err := s.loadTable(ef.embedTable)
				if err != nil {
					return nil, err
				}
				byID := make(map[string]map[string]any, len(related))
				for _, r := range related {
					if id, ok := r["id"].(string); ok {
						byID[id] = r
					}
				}
				embeds[ef.embedTable] = byID
			}
		}
	}

	var matched []map[string]any
	for _, row := range rows {
		ok, err := q.matches(row, embeds)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// inner embeds drop rows whose relation is missing
		dropped := false
		for _, item := range q.sel {
			if item.embed && item.inner {
				if q.embedRow(row, item, embeds) == nil {
					dropped = true
					break
				}
			}
		}
		if dropped {
			continue
		}
		matched = append(matched, row)
	}

	if q.orderBy != "" {
		col, desc := q.orderBy, q.desc
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][col], matched[j][col])
			if desc {
				return less > 0
			}
			return less < 0
		})
	}

	projected := make([]map[string]any, len(matched))
	for i, row := range matched {
		projected[i] = q.project(row, embeds)
	}
	return projected, nil
}

func (q *restQuery) matches(row map[string]any, embeds map[string]map[string]map[string]any) (bool, error) {
	for _, f := range q.filters {
		ok, err := matchFilter(q.table, row, f, embeds)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchFilter(table string, row map[string]any, f restFilter, embeds map[string]map[string]map[string]any) (bool, error) {
	if len(f.or) > 0 {
		for _, d := range f.or {
			ok, err := matchFilter(table, row, d, embeds)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	target := row
	if f.embedTable != "" {
		fk := embedFK[table][f.embedTable]
		fkVal, _ := row[fk].(string)
		target = embeds[f.embedTable][fkVal]
		if target == nil {
			return false, nil
		}
	}

	cell := stringValue(target[f.column])
	switch f.op {
	case "eq":
		return cell == f.value, nil
	case "ilike":
		re, err := ilikeRegexp(f.value)
		if err != nil {
			return false, err
		}
		return re.MatchString(cell), nil
	case "in":
		for _, v := range f.values {
			if cell == v {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported operator %q", f.op)
}

// ilikeRegexp compiles an ilike pattern: % and _ are wildcards unless
// backslash-escaped, everything else matches literally and case-insensitively.
func ilikeRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '\\':
			if i+1 < len(pattern) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			}
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func (q *restQuery) embedRow(row map[string]any, item selectItem, embeds map[string]map[string]map[string]any) map[string]any {
	fk := embedFK[q.table][item.embedTable]
	fkVal, _ := row[fk].(string)
	related := embeds[item.embedTable][fkVal]
	if related == nil {
		return nil
	}
	if len(item.embedCols) == 0 {
		return related
	}
	out := make(map[string]any, len(item.embedCols))
	for _, col := range item.embedCols {
		out[col] = related[col]
	}
	return out
}

func (q *restQuery) project(row map[string]any, embeds map[string]map[string]map[string]any) map[string]any {
	if len(q.sel) == 0 {
		return row
	}
	out := make(map[string]any, len(q.sel))
	for _, item := range q.sel {
		if item.embed {
			if related := q.embedRow(row, item, embeds); related != nil {
				out[item.alias] = related
			} else {
				out[item.alias] = nil
			}
			continue
		}
		out[item.column] = row[item.column]
	}
	return out
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// compareValues orders two cell values: -1, 0, or 1. RFC 3339 timestamps
// compare correctly as strings.
func compareValues(a, b any) int {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(stringValue(a), stringValue(b))
}

// parseRangeHeader parses an inclusive "from-to" Range header value.
func parseRangeHeader(header string) (from, to int, ok bool) {
	header = strings.TrimPrefix(header, "items=")
	fromPart, toPart, found := strings.Cut(header, "-")
	if !found {
		return 0, 0, false
	}
	f, err1 := strconv.Atoi(fromPart)
	t, err2 := strconv.Atoi(toPart)
	if err1 != nil || err2 != nil || f < 0 || t < f {
		return 0, 0, false
	}
	return f, t, true
}

package tdenginetest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

type selectItem struct {
	last   bool
	column string
	alias  string
}

func (it selectItem) name() string {
	if it.alias != "" {
		return it.alias
	}
	if it.last {
		return "last(" + it.column + ")"
	}
	return it.column
}

type condition struct {
	column string
	like   bool
	value  any
}

type selectStmt struct {
	distinct bool
	items    []selectItem
	from     string
	where    []condition
	groupBy  string
	orderBy  string
	desc     bool
	limit    int
	offset   int
}

// record is one candidate row: tags merged with data columns.
type record map[string]any

func parseSelect(sc *scanner) (*selectStmt, error) {
	stmt := &selectStmt{limit: -1}
	stmt.distinct = sc.keyword("DISTINCT")
	for {
		var it selectItem
		if sc.keyword("LAST") {
			if err := sc.expectPunct('('); err != nil {
				return nil, err
			}
			col, err := sc.ident()
			if err != nil {
				return nil, err
			}
			if err := sc.expectPunct(')'); err != nil {
				return nil, err
			}
			it = selectItem{last: true, column: col}
		} else {
			col, err := sc.ident()
			if err != nil {
				return nil, err
			}
			it = selectItem{column: col}
		}
		if sc.keyword("AS") {
			alias, err := sc.ident()
			if err != nil {
				return nil, err
			}
			it.alias = alias
		}
		stmt.items = append(stmt.items, it)
		if !sc.punct(',') {
			break
		}
	}

	if err := sc.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := sc.ident()
	if err != nil {
		return nil, err
	}
	stmt.from = from

	if sc.keyword("WHERE") {
		for {
			col, err := sc.ident()
			if err != nil {
				return nil, err
			}
			cond := condition{column: col}
			switch {
			case sc.punct('='):
			case sc.keyword("LIKE"):
				cond.like = true
			default:
				return nil, fmt.Errorf("syntax error near %q: unsupported operator", sc.rest())
			}
			if cond.value, err = sc.literal(); err != nil {
				return nil, err
			}
			stmt.where = append(stmt.where, cond)
			if !sc.keyword("AND") {
				break
			}
		}
	}
	if sc.keywords("GROUP", "BY") {
		if stmt.groupBy, err = sc.ident(); err != nil {
			return nil, err
		}
	}
	if sc.keywords("ORDER", "BY") {
		if stmt.orderBy, err = sc.ident(); err != nil {
			return nil, err
		}
		if sc.keyword("DESC") {
			stmt.desc = true
		} else {
			sc.keyword("ASC")
		}
	}
	if sc.keyword("LIMIT") {
		if stmt.limit, err = sc.int(); err != nil {
			return nil, err
		}
		if sc.keyword("OFFSET") {
			if stmt.offset, err = sc.int(); err != nil {
				return nil, err
			}
		}
	}
	if !sc.done() {
		return nil, fmt.Errorf("syntax error near %q", sc.rest())
	}
	return stmt, nil
}

func (c condition) match(r record) bool {
	v, ok := r[c.column]
	if !ok || v == nil {
		return false
	}
	if c.like {
		return likeMatch(tdtypes.AsString(c.value), tdtypes.AsString(v))
	}
	return tdtypes.AsString(v) == tdtypes.AsString(c.value)
}

func selectRows(db *database, sc *scanner, format tdtypes.TimeFormat) (*response, error) {
	stmt, err := parseSelect(sc)
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}

	var st *stable
	var tables []*table
	if s, ok := db.stables[stmt.from]; ok {
		if stmt.orderBy != "" && stmt.orderBy != s.columns[0].Name && stmt.orderBy != stmt.groupBy {
			return nil, errorf(CodeSyntaxError, "order by column %q must be the timestamp or a group by column", stmt.orderBy)
		}
		st = s
		for _, name := range db.order {
			if t := db.tables[name]; t.stable == s {
				tables = append(tables, t)
			}
		}
	} else if t, ok := db.tables[stmt.from]; ok {
		st = t.stable
		tables = []*table{t}
	} else {
		return nil, errorf(CodeTableNotExist, "Table does not exist")
	}

	lookup := func(name string) (tdtypes.ColumnMeta, bool) {
		if c, ok := findColumn(st.columns, name); ok {
			return c, true
		}
		return findColumn(st.tags, name)
	}
	for _, it := range stmt.items {
		if _, ok := lookup(it.column); !ok {
			return nil, errorf(CodeInvalidColumn, "invalid column name %q", it.column)
		}
	}
	for _, c := range stmt.where {
		if _, ok := lookup(c.column); !ok {
			return nil, errorf(CodeInvalidColumn, "invalid column name %q", c.column)
		}
	}

	items := stmt.items
	aggregate := false
	for _, it := range items {
		aggregate = aggregate || it.last
	}
	if stmt.groupBy != "" {
		if _, ok := findColumn(st.tags, stmt.groupBy); !ok {
			return nil, errorf(CodeInvalidColumn, "group by column %q must be a tag", stmt.groupBy)
		}
		present := false
		for _, it := range items {
			present = present || (!it.last && it.name() == stmt.groupBy)
		}
		if !present {
			items = append(items, selectItem{column: stmt.groupBy})
		}
	}

	var rows [][]any
	switch {
	case stmt.distinct:
		for _, it := range items {
			if _, ok := findColumn(st.tags, it.column); !ok || it.last {
				return nil, errorf(CodeInvalidColumn, "only tag columns can be selected with DISTINCT")
			}
		}
		seen := map[string]bool{}
		for _, t := range tables {
			r := record(t.tags)
			if !matchAll(stmt.where, r) {
				continue
			}
			row := project(items, r)
			key := fmt.Sprint(row...)
			if !seen[key] {
				seen[key] = true
				rows = append(rows, row)
			}
		}
	case aggregate:
		groups, order := groupRecords(tables, stmt, st.columns[0].Name)
		for _, key := range order {
			rows = append(rows, aggregateRow(items, groups[key]))
		}
	default:
		for _, t := range tables {
			for _, r := range t.records() {
				if matchAll(stmt.where, r) {
					rows = append(rows, project(items, r))
				}
			}
		}
	}

	columns := make([]tdtypes.ColumnMeta, len(items))
	for i, it := range items {
		c, _ := lookup(it.column)
		c.Name = it.name()
		columns[i] = c
	}

	if stmt.orderBy != "" {
		idx := -1
		for i, c := range columns {
			if c.Name == stmt.orderBy {
				idx = i
			}
		}
		if idx >= 0 {
			sort.SliceStable(rows, func(i, j int) bool {
				c := compare(rows[i][idx], rows[j][idx])
				if stmt.desc {
					return c > 0
				}
				return c < 0
			})
		}
	}

	if stmt.offset > 0 {
		if stmt.offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[stmt.offset:]
		}
	}
	if stmt.limit >= 0 && stmt.limit < len(rows) {
		rows = rows[:stmt.limit]
	}

	res := &response{Status: "succ", Data: [][]any{}}
	for _, c := range columns {
		res.Head = append(res.Head, c.Name)
		res.ColumnMeta = append(res.ColumnMeta, []any{c.Name, int(c.Type), c.Length})
	}
	for _, row := range rows {
		out := make([]any, len(row))
		for i, v := range row {
			out[i] = formatCell(columns[i], v, format)
		}
		res.Data = append(res.Data, out)
	}
	res.Rows = len(res.Data)
	return res, nil
}

func (t *table) records() []record {
	out := make([]record, 0, len(t.rows))
	for _, row := range t.rows {
		r := make(record, len(row)+len(t.tags))
		for k, v := range t.tags {
			r[k] = v
		}
		for k, v := range row {
			r[k] = v
		}
		out = append(out, r)
	}
	return out
}

func matchAll(conds []condition, r record) bool {
	for _, c := range conds {
		if !c.match(r) {
			return false
		}
	}
	return true
}

func project(items []selectItem, r record) []any {
	row := make([]any, len(items))
	for i, it := range items {
		row[i] = r[it.column]
	}
	return row
}

func groupRecords(tables []*table, stmt *selectStmt, tsColumn string) (map[string][]record, []string) {
	groups := make(map[string][]record)
	var order []string
	for _, t := range tables {
		for _, r := range t.records() {
			if !matchAll(stmt.where, r) {
				continue
			}
			key := ""
			if stmt.groupBy != "" {
				key = tdtypes.AsString(r[stmt.groupBy])
			}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], r)
		}
	}
	for _, recs := range groups {
		sort.SliceStable(recs, func(i, j int) bool {
			return compare(recs[i][tsColumn], recs[j][tsColumn]) < 0
		})
	}
	return groups, order
}

// aggregateRow evaluates LAST over records in timestamp order. LAST skips NULLs.
func aggregateRow(items []selectItem, records []record) []any {
	row := make([]any, len(items))
	for i, it := range items {
		for _, r := range records {
			if v := r[it.column]; v != nil || !it.last {
				row[i] = v
			}
		}
	}
	return row
}

func compare(a, b any) int {
	x, errX := tdtypes.AsInt64(a)
	y, errY := tdtypes.AsInt64(b)
	if errX == nil && errY == nil && a != nil && b != nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(tdtypes.AsString(a), tdtypes.AsString(b))
}

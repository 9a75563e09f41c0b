package tdenginetest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// ServerVersion is reported by SELECT SERVER_VERSION().
const ServerVersion = "2.6.0.0-fake"

type response struct {
	Status     string   `json:"status"`
	Head       []string `json:"head"`
	ColumnMeta [][]any  `json:"column_meta"`
	Data       [][]any  `json:"data"`
	Rows       int      `json:"rows"`
}

func affected(n int) *response {
	return &response{
		Status:     "succ",
		Head:       []string{"affected_rows"},
		ColumnMeta: [][]any{{"affected_rows", int(tdtypes.TypeInt), 4}},
		Data:       [][]any{{n}},
		Rows:       1,
	}
}

func (s *Server) exec(dbName, command string, format tdtypes.TimeFormat) (*response, error) {
	sc := newScanner(command)
	switch {
	case sc.keyword("USE"):
		return s.use(sc)
	case sc.keywords("DROP", "DATABASE"):
		return s.dropDatabase(sc)
	case sc.keywords("CREATE", "DATABASE"):
		return s.createDatabase(sc)
	case sc.keywords("SHOW", "DATABASES"):
		return s.showDatabases(), nil
	}

	if sc.keywords("SELECT", "SERVER_VERSION") {
		return &response{
			Status:     "succ",
			Head:       []string{"server_version()"},
			ColumnMeta: [][]any{{"server_version()", int(tdtypes.TypeBinary), len(ServerVersion)}},
			Data:       [][]any{{ServerVersion}},
			Rows:       1,
		}, nil
	}

	db, ok := s.dbs[dbName]
	if dbName == "" || !ok {
		if dbName == "" {
			return nil, errorf(CodeDBNotSelected, "Database not specified or available")
		}
		return nil, errorf(CodeInvalidDB, "Invalid database name")
	}

	switch {
	case sc.keywords("CREATE", "STABLE"):
		return createStable(db, sc)
	case sc.keywords("DROP", "TABLE"):
		return dropTable(db, sc)
	case sc.keywords("INSERT", "INTO"):
		return insert(db, sc)
	case sc.keyword("SELECT"):
		return selectRows(db, sc, format)
	}
	return nil, errorf(CodeSyntaxError, "syntax error near %q", sc.rest())
}

func (s *Server) use(sc *scanner) (*response, error) {
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if _, ok := s.dbs[name]; !ok {
		return nil, errorf(CodeInvalidDB, "Invalid database name")
	}
	return affected(0), nil
}

func (s *Server) dropDatabase(sc *scanner) (*response, error) {
	ifExists := sc.keywords("IF", "EXISTS")
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if _, ok := s.dbs[name]; !ok && !ifExists {
		return nil, errorf(CodeInvalidDB, "Invalid database name")
	}
	delete(s.dbs, name)
	return affected(0), nil
}

func (s *Server) createDatabase(sc *scanner) (*response, error) {
	ifNotExists := sc.keywords("IF", "NOT", "EXISTS")
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if _, ok := s.dbs[name]; ok {
		if ifNotExists {
			return affected(0), nil
		}
		return nil, errorf(CodeDBExists, "Database already exists")
	}
	s.dbs[name] = &database{
		name:    name,
		options: sc.rest(),
		stables: make(map[string]*stable),
		tables:  make(map[string]*table),
	}
	return affected(0), nil
}

func (s *Server) showDatabases() *response {
	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	res := &response{
		Status:     "succ",
		Head:       []string{"name"},
		ColumnMeta: [][]any{{"name", int(tdtypes.TypeBinary), 32}},
		Data:       [][]any{},
		Rows:       len(names),
	}
	for _, n := range names {
		res.Data = append(res.Data, []any{n})
	}
	return res
}

func (sc *scanner) columnDefs() ([]tdtypes.ColumnMeta, error) {
	if err := sc.expectPunct('('); err != nil {
		return nil, err
	}
	var out []tdtypes.ColumnMeta
	for {
		name, err := sc.ident()
		if err != nil {
			return nil, err
		}
		typeName, err := sc.ident()
		if err != nil {
			return nil, err
		}
		dt, err := tdtypes.ParseDataType(typeName)
		if err != nil {
			return nil, err
		}
		col := tdtypes.ColumnMeta{Name: name, Type: dt, Length: dt.FixedWidth()}
		if sc.punct('(') {
			if col.Length, err = sc.int(); err != nil {
				return nil, err
			}
			if err := sc.expectPunct(')'); err != nil {
				return nil, err
			}
		}
		if err := col.Validate(); err != nil {
			return nil, err
		}
		out = append(out, col)
		if sc.punct(')') {
			return out, nil
		}
		if err := sc.expectPunct(','); err != nil {
			return nil, err
		}
	}
}

func createStable(db *database, sc *scanner) (*response, error) {
	ifNotExists := sc.keywords("IF", "NOT", "EXISTS")
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	cols, err := sc.columnDefs()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if err := sc.expectKeyword("TAGS"); err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	tags, err := sc.columnDefs()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if len(cols) == 0 || cols[0].Type != tdtypes.TypeTimestamp {
		return nil, errorf(CodeInvalidColumn, "first column must be timestamp")
	}
	if _, ok := db.stables[name]; ok {
		if ifNotExists {
			return affected(0), nil
		}
		return nil, errorf(CodeTableExists, "Table already exists")
	}
	db.stables[name] = &stable{name: name, columns: cols, tags: tags}
	return affected(0), nil
}

func dropTable(db *database, sc *scanner) (*response, error) {
	ifExists := sc.keywords("IF", "EXISTS")
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if _, ok := db.tables[name]; ok {
		delete(db.tables, name)
		for i, n := range db.order {
			if n == name {
				db.order = append(db.order[:i], db.order[i+1:]...)
				break
			}
		}
		return affected(0), nil
	}
	if _, ok := db.stables[name]; ok {
		delete(db.stables, name)
		return affected(0), nil
	}
	if ifExists {
		return affected(0), nil
	}
	return nil, errorf(CodeTableNotExist, "Table does not exist")
}

func insert(db *database, sc *scanner) (*response, error) {
	name, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if err := sc.expectKeyword("USING"); err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	stName, err := sc.ident()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	st, ok := db.stables[stName]
	if !ok {
		return nil, errorf(CodeTableNotExist, "Table does not exist")
	}

	tagNames := columnNames(st.tags)
	if !sc.keyword("TAGS") {
		if tagNames, err = sc.identList(); err != nil {
			return nil, errorf(CodeSyntaxError, "%v", err)
		}
		if err := sc.expectKeyword("TAGS"); err != nil {
			return nil, errorf(CodeSyntaxError, "%v", err)
		}
	}
	tagValues, err := sc.literalList()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}

	colNames := columnNames(st.columns)
	if !sc.keyword("VALUES") {
		if colNames, err = sc.identList(); err != nil {
			return nil, errorf(CodeSyntaxError, "%v", err)
		}
		if err := sc.expectKeyword("VALUES"); err != nil {
			return nil, errorf(CodeSyntaxError, "%v", err)
		}
	}
	values, err := sc.literalList()
	if err != nil {
		return nil, errorf(CodeSyntaxError, "%v", err)
	}
	if !sc.done() {
		return nil, errorf(CodeSyntaxError, "syntax error near %q", sc.rest())
	}

	tags, err := bind(st.tags, tagNames, tagValues)
	if err != nil {
		return nil, err
	}
	row, err := bind(st.columns, colNames, values)
	if err != nil {
		return nil, err
	}
	ts, ok := row[st.columns[0].Name].(int64)
	if !ok {
		return nil, errorf(CodeInvalidColumn, "timestamp must not be NULL")
	}

	t, exists := db.tables[name]
	if !exists {
		t = &table{name: name, stable: st, tags: tags}
		db.tables[name] = t
		db.order = append(db.order, name)
	} else if t.stable != st {
		return nil, errorf(CodeTableExists, "Table already exists under another super table")
	}

	for _, existing := range t.rows {
		if existing[st.columns[0].Name] == ts {
			for k, v := range row {
				if v != nil {
					existing[k] = v
				}
			}
			return affected(1), nil
		}
	}
	t.rows = append(t.rows, row)
	sort.SliceStable(t.rows, func(i, j int) bool {
		return t.rows[i][st.columns[0].Name].(int64) < t.rows[j][st.columns[0].Name].(int64)
	})
	return affected(1), nil
}

func columnNames(cols []tdtypes.ColumnMeta) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func findColumn(cols []tdtypes.ColumnMeta, name string) (tdtypes.ColumnMeta, bool) {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return tdtypes.ColumnMeta{}, false
}

func bind(cols []tdtypes.ColumnMeta, names []string, values []any) (map[string]any, error) {
	if len(names) != len(values) {
		return nil, errorf(CodeSyntaxError, "%d columns but %d values", len(names), len(values))
	}
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		out[c.Name] = nil
	}
	for i, n := range names {
		c, ok := findColumn(cols, n)
		if !ok {
			return nil, errorf(CodeInvalidColumn, "invalid column name %q", n)
		}
		v, err := coerce(c, values[i])
		if err != nil {
			return nil, errorf(CodeInvalidColumn, "column %q: %v", c.Name, err)
		}
		out[c.Name] = v
	}
	return out, nil
}

func coerce(c tdtypes.ColumnMeta, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, now := v.(nowLiteral); now {
		if c.Type != tdtypes.TypeTimestamp {
			return nil, fmt.Errorf("NOW is only valid for timestamps")
		}
		return nowMillis(), nil
	}
	switch c.Type {
	case tdtypes.TypeTimestamp:
		switch x := v.(type) {
		case int64:
			return x, nil
		case string:
			t, err := tdtypes.ParseTimestamp(x)
			if err != nil {
				return nil, err
			}
			return t.UnixMilli(), nil
		}
	case tdtypes.TypeTinyInt, tdtypes.TypeSmallInt, tdtypes.TypeInt, tdtypes.TypeBigInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case tdtypes.TypeFloat, tdtypes.TypeDouble:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case tdtypes.TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case tdtypes.TypeBinary, tdtypes.TypeNChar, tdtypes.TypeJSON:
		str := fmt.Sprint(v)
		size := len(str)
		if c.Type == tdtypes.TypeNChar {
			size = utf8.RuneCountInString(str)
		}
		if c.Type != tdtypes.TypeJSON && size > c.Length {
			return nil, fmt.Errorf("string data overflow (%d > %d)", size, c.Length)
		}
		return str, nil
	}
	return nil, fmt.Errorf("cannot store %T as %s", v, c.Type)
}

func formatCell(c tdtypes.ColumnMeta, v any, format tdtypes.TimeFormat) any {
	ms, ok := v.(int64)
	if c.Type != tdtypes.TypeTimestamp || !ok {
		return v
	}
	t := time.UnixMilli(ms).In(time.Local)
	switch format {
	case tdtypes.TimeLocal:
		return t.Format("2006-01-02 15:04:05.000")
	case tdtypes.TimeUTC:
		return t.Format("2006-01-02T15:04:05.000-0700")
	default:
		return ms
	}
}

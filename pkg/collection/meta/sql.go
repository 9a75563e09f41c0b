package meta

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Catalog layout.
const (
	DefaultDatabase = "sys_meta"

	StoreTable     = "sys_store"
	CollectorTable = "sys_collector"
	PointTable     = "sys_points_in_store"

	// DatabaseOptions are applied when the catalog database is created.
	DatabaseOptions = "KEEP 7200 DAYS 30 UPDATE 2"

	MaxNameLength        = 128
	MaxDescriptionLength = 200

	// Engine limit on table identifiers.
	maxTableNameLength = 192
)

// Catalog column names.
const (
	colCountingTime   = "counting_time"
	colTypeTag        = "type_tag"
	colDesc           = "desc"
	colStoreName      = "store_name"
	colCollectorName  = "collector_name"
	colPointName      = "point_name"
	colStore          = "store"
	colCollector      = "collector"
	colPointKey       = "point_key"
	colPointCount     = "point_count"
	colCollectorCount = "collector_count"
	colStoreCount     = "store_count"
	colDataCount      = "data_count"
	colDataSize       = "data_size"
	colRunningCount   = "running_count"
	colRecentlyRun    = "recently_running_time"
	colRecentlyData   = "recently_data_time"
)

var (
	nameTag    = func(name string) tdtypes.ColumnMeta { return tdtypes.Column(name, tdtypes.TypeBinary, MaxNameLength) }
	typeTagCol = tdtypes.Column(colTypeTag, tdtypes.TypeBinary, 200)
	descCol    = tdtypes.Column(colDesc, tdtypes.TypeNChar, MaxDescriptionLength)
	tsCol      = func(name string) tdtypes.ColumnMeta { return tdtypes.Column(name, tdtypes.TypeTimestamp, 0) }
)

// systemTable is the definition of one catalog super table.
type systemTable struct {
	name    string
	prefix  string
	columns []tdtypes.ColumnMeta
	tags    []tdtypes.ColumnMeta
}

var (
	storeTable = systemTable{
		name:   StoreTable,
		prefix: "store_",
		columns: []tdtypes.ColumnMeta{
			tsCol(colCountingTime),
			tdtypes.Column(colPointCount, tdtypes.TypeInt, 0),
			tdtypes.Column(colCollectorCount, tdtypes.TypeInt, 0),
			tdtypes.Column(colDataCount, tdtypes.TypeBigInt, 0),
			tdtypes.Column(colDataSize, tdtypes.TypeBigInt, 0),
		},
		tags: []tdtypes.ColumnMeta{nameTag(colStoreName), typeTagCol, descCol},
	}

	collectorTable = systemTable{
		name:   CollectorTable,
		prefix: "collector_",
		columns: []tdtypes.ColumnMeta{
			tsCol(colCountingTime),
			tdtypes.Column(colStoreCount, tdtypes.TypeInt, 0),
			tdtypes.Column(colPointCount, tdtypes.TypeInt, 0),
			tdtypes.Column(colRunningCount, tdtypes.TypeBigInt, 0),
			tsCol(colRecentlyRun),
		},
		tags: []tdtypes.ColumnMeta{nameTag(colCollectorName), typeTagCol, descCol},
	}

	pointTable = systemTable{
		name:   PointTable,
		prefix: "point_",
		columns: []tdtypes.ColumnMeta{
			tsCol(colCountingTime),
			tdtypes.Column(colDataCount, tdtypes.TypeBigInt, 0),
			tdtypes.Column(colDataSize, tdtypes.TypeBigInt, 0),
			tsCol(colRecentlyData),
		},
		tags: []tdtypes.ColumnMeta{
			nameTag(colPointName), nameTag(colStore), nameTag(colCollector), nameTag(colPointKey),
			typeTagCol, descCol,
		},
	}

	systemTables = []systemTable{storeTable, collectorTable, pointTable}
)

func (t systemTable) ddl() string {
	return fmt.Sprintf("CREATE STABLE IF NOT EXISTS %s (%s) TAGS (%s)",
		t.name, tdtypes.ColumnsSQL(t.columns), tdtypes.ColumnsSQL(t.tags))
}

// tagNames returns the identity tag names, in select order.
func (t systemTable) tagNames() []string {
	out := make([]string, len(t.tags))
	for i, c := range t.tags {
		out[i] = c.Name
	}
	return out
}

func (t systemTable) columnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

var plainIdentifier = regexp.MustCompile(`^[a-z0-9_]+$`)

// childTable names the per-object table under t. Plain lower case names are
// used as is. Anything else, including a multi-part name whose parts contain
// "_", is folded to [a-z0-9_] and suffixed with a hash of the exact parts so
// distinct names never share a table.
func (t systemTable) childTable(parts ...string) string {
	joined := strings.Join(parts, "_")
	if plainParts(parts) && len(t.prefix)+len(joined) <= maxTableNameLength {
		return t.prefix + joined
	}

	var b strings.Builder
	for _, r := range strings.ToLower(joined) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	digest := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "\x00"))).String(), "-", "")
	folded := b.String()
	if limit := maxTableNameLength - len(t.prefix) - len(digest) - 1; len(folded) > limit {
		folded = folded[:limit]
	}
	return t.prefix + folded + "_" + digest
}

func plainParts(parts []string) bool {
	for _, p := range parts {
		if !plainIdentifier.MatchString(p) || (len(parts) > 1 && strings.Contains(p, "_")) {
			return false
		}
	}
	return true
}

// quote renders s as a string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}

func identList(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = quoteIdent(n)
	}
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeSubstring renders a LIKE pattern matching s anywhere. Wildcards in s
// match themselves.
func likeSubstring(s string) string {
	return quote("%" + likeEscaper.Replace(s) + "%")
}

// insertSQL renders an auto-creating insert into the child table of t.
func insertSQL(t systemTable, child string, tags []string, values []string) string {
	return fmt.Sprintf("INSERT INTO %s USING %s (%s) TAGS (%s) (%s) VALUES (%s)",
		quoteIdent(child), t.name,
		identList(t.tagNames()), strings.Join(tags, ", "),
		identList(t.columnNames()), strings.Join(values, ", "))
}

// selectTagsSQL renders a DISTINCT tag query over t with optional filters.
func selectTagsSQL(t systemTable, where ...string) string {
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s", identList(t.tagNames()), t.name)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	return sql
}

func eq(column, value string) string {
	return quoteIdent(column) + " = " + quote(value)
}

func validateName(object, name string) error {
	switch {
	case name == "":
		return newValidationError(ErrEmptyName, object, name, "")
	case len(name) > MaxNameLength:
		return newValidationError(ErrNameTooLong, object, name, fmt.Sprintf("%d bytes, limit %d", len(name), MaxNameLength))
	case !utf8.ValidString(name):
		return newValidationError(ErrInvalidName, object, name, "not valid UTF-8")
	}
	for _, r := range name {
		if r == '`' || r == '\'' || r == '"' || r == '\\' || unicode.IsControl(r) {
			return newValidationError(ErrInvalidName, object, name, fmt.Sprintf("character %q", r))
		}
	}
	return nil
}

func validateDescription(object, name, desc string) error {
	if n := utf8.RuneCountInString(desc); n > MaxDescriptionLength {
		return newValidationError(ErrDescriptionTooLong, object, name, fmt.Sprintf("%d characters, limit %d", n, MaxDescriptionLength))
	}
	if !utf8.ValidString(desc) {
		return newValidationError(ErrInvalidName, object, name, "description is not valid UTF-8")
	}
	return nil
}

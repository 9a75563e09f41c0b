package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Status values carried by results.
const (
	StatusSucceeded = "succ"
	StatusFailed    = "failed"
)

// Result is the outcome of one command. It is always returned, never raised:
// callers inspect HasError.
type Result interface {
	HasError() bool
	// Status is "succ" on success, the engine's status or "failed" otherwise.
	Status() string
	// ErrorCode is 0 on success, positive when reported by the engine and
	// negative when produced locally.
	ErrorCode() int
	Description() string
	RowsAffected() int
	RawResult() string
}

// QueryResult is a Result carrying tabular data.
type QueryResult interface {
	Result
	Columns() []string
	ColumnMeta() []tdtypes.ColumnMeta
	// ColumnType returns TypeUnknown for unknown columns.
	ColumnType(name string) tdtypes.DataType
	// ColumnLength returns 0 for unknown columns.
	ColumnLength(name string) int
	// Row returns row i keyed by column name.
	Row(i int) (map[string]any, error)
	// Rows returns count raw rows starting at from. A count of 0 reads to the end.
	Rows(from, count int) ([][]any, error)
	Value(row int, column string) (any, error)
}

// Response implements both Result and QueryResult.
type Response struct {
	status  string
	code    int
	desc    string
	rows    int
	raw     string
	columns []tdtypes.ColumnMeta
	index   map[string]int
	data    [][]any
}

var (
	_ Result      = (*Response)(nil)
	_ QueryResult = (*Response)(nil)
)

type wireResponse struct {
	Status     string   `json:"status"`
	Code       int      `json:"code"`
	Desc       string   `json:"desc"`
	Head       []string `json:"head"`
	ColumnMeta [][]any  `json:"column_meta"`
	Data       [][]any  `json:"data"`
	Rows       *int     `json:"rows"`
}

// ParseResponse decodes an engine response body. It never fails: empty or
// malformed bodies yield a local CodeNullResult failure.
func ParseResponse(body []byte) *Response {
	raw := string(body)
	if len(bytes.TrimSpace(body)) == 0 {
		r := NewLocalFailure(CodeNullResult, ErrNullResult.Error())
		r.raw = raw
		return r
	}

	var w wireResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		r := NewLocalFailure(CodeNullResult, fmt.Sprintf("%s: %v", ErrNullResult, err))
		r.raw = raw
		return r
	}

	cols, err := decodeColumnMeta(w.ColumnMeta, w.Head)
	if err != nil {
		r := NewLocalFailure(CodeNullResult, fmt.Sprintf("%s: %v", ErrNullResult, err))
		r.raw = raw
		return r
	}

	r := &Response{
		status:  w.Status,
		code:    w.Code,
		desc:    w.Desc,
		raw:     raw,
		columns: cols,
		data:    w.Data,
	}
	if w.Rows != nil {
		r.rows = *w.Rows
	} else {
		r.rows = len(w.Data)
	}
	if r.status != StatusSucceeded && r.code == 0 {
		r.code = CodeExecFailed
		if r.status == "" {
			r.status = StatusFailed
		}
	}
	r.buildIndex()
	return r
}

func decodeColumnMeta(meta [][]any, head []string) ([]tdtypes.ColumnMeta, error) {
	if len(meta) == 0 {
		cols := make([]tdtypes.ColumnMeta, len(head))
		for i, h := range head {
			cols[i] = tdtypes.ColumnMeta{Name: h}
		}
		return cols, nil
	}
	cols := make([]tdtypes.ColumnMeta, len(meta))
	for i, triple := range meta {
		if len(triple) < 2 {
			return nil, fmt.Errorf("column_meta[%d] has %d entries", i, len(triple))
		}
		name, ok := triple[0].(string)
		if !ok {
			return nil, fmt.Errorf("column_meta[%d] name is %T", i, triple[0])
		}
		typ, err := tdtypes.AsInt64(triple[1])
		if err != nil {
			return nil, fmt.Errorf("column_meta[%d] type: %w", i, err)
		}
		var length int64
		if len(triple) > 2 {
			if length, err = tdtypes.AsInt64(triple[2]); err != nil {
				return nil, fmt.Errorf("column_meta[%d] length: %w", i, err)
			}
		}
		cols[i] = tdtypes.ColumnMeta{Name: name, Type: tdtypes.DataType(typ), Length: int(length)}
	}
	return cols, nil
}

func (r *Response) buildIndex() {
	r.index = make(map[string]int, len(r.columns))
	for i, c := range r.columns {
		if _, dup := r.index[c.Name]; !dup {
			r.index[c.Name] = i
		}
	}
}

// NewLocalFailure builds a failed result with a local negative code.
func NewLocalFailure(code int, desc string) *Response {
	return &Response{
		status: StatusFailed,
		code:   code,
		desc:   desc,
		index:  map[string]int{},
	}
}

// NewFailure builds a failed result from an error, using CodeOf for the code.
func NewFailure(err error) *Response {
	return NewLocalFailure(CodeOf(err), err.Error())
}

// NewQueryResponse builds a successful result from in-memory columns and rows.
func NewQueryResponse(columns []tdtypes.ColumnMeta, data [][]any) *Response {
	r := &Response{
		status:  StatusSucceeded,
		rows:    len(data),
		columns: columns,
		data:    data,
	}
	r.buildIndex()
	return r
}

func (r *Response) HasError() bool      { return r.status != StatusSucceeded }
func (r *Response) Status() string      { return r.status }
func (r *Response) ErrorCode() int      { return r.code }
func (r *Response) Description() string { return r.desc }
func (r *Response) RowsAffected() int   { return r.rows }
func (r *Response) RawResult() string   { return r.raw }

// Columns returns the ordered column names.
func (r *Response) Columns() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnMeta returns a copy of the column descriptions.
func (r *Response) ColumnMeta() []tdtypes.ColumnMeta {
	out := make([]tdtypes.ColumnMeta, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Response) column(name string) (tdtypes.ColumnMeta, bool) {
	i, ok := r.index[name]
	if !ok {
		return tdtypes.ColumnMeta{}, false
	}
	return r.columns[i], true
}

func (r *Response) ColumnType(name string) tdtypes.DataType {
	c, _ := r.column(name)
	return c.Type
}

func (r *Response) ColumnLength(name string) int {
	c, _ := r.column(name)
	return c.Length
}

func (r *Response) checkRow(i int) error {
	if i < 0 || i >= len(r.data) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRowOutOfRange, i, len(r.data))
	}
	return nil
}

func (r *Response) Row(i int) (map[string]any, error) {
	if err := r.checkRow(i); err != nil {
		return nil, err
	}
	row := r.data[i]
	out := make(map[string]any, len(r.columns))
	for j, c := range r.columns {
		if j < len(row) {
			out[c.Name] = row[j]
		} else {
			out[c.Name] = nil
		}
	}
	return out, nil
}

func (r *Response) Rows(from, count int) ([][]any, error) {
	if from == len(r.data) && count == 0 {
		return [][]any{}, nil
	}
	if err := r.checkRow(from); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrRowOutOfRange, count)
	}
	end := len(r.data)
	if count > 0 && count < end-from {
		end = from + count
	}
	out := make([][]any, end-from)
	copy(out, r.data[from:end])
	return out, nil
}

func (r *Response) Value(row int, column string) (any, error) {
	if err := r.checkRow(row); err != nil {
		return nil, err
	}
	j, ok := r.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if j >= len(r.data[row]) {
		return nil, nil
	}
	return r.data[row][j], nil
}

func (r *Response) String() string {
	if r.HasError() {
		return fmt.Sprintf("%s (code %d): %s", r.status, r.code, strings.TrimSpace(r.desc))
	}
	return fmt.Sprintf("%s (%d rows)", r.status, r.rows)
}

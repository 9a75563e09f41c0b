package connector

import (
	"context"
	"sort"
	"strings"
)

// OptionResultTimeFormat selects the timestamp encoding of query responses.
// Values are the tdtypes.TimeFormat names.
const OptionResultTimeFormat = "RESULT_TIME_FORMAT"

// Options are connector-specific settings keyed by upper-case option name.
type Options map[string]string

// Merge returns a copy of o overlaid with other.
func (o Options) Merge(other Options) Options {
	out := make(Options, len(o)+len(other))
	for k, v := range o {
		out[strings.ToUpper(k)] = v
	}
	for k, v := range other {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Connection is a live, authenticated session with the engine.
//
// Execute and Query never return Go errors: every outcome, including
// transport failures, is a Result. A db of "" targets the default database.
//
// WithDefaultDB and WithOptions return views sharing the same session; they do
// not log in again and do not modify the receiver. Closing any view closes the
// session for all of them.
type Connection interface {
	ID() string
	Type() ConnectorType
	IsConnected() bool
	DefaultDB() string
	Options() Options
	WithDefaultDB(name string) Connection
	WithOptions(opts Options) Connection
	Execute(ctx context.Context, db, command string) Result
	Query(ctx context.Context, db, command string) QueryResult
	Close() error
}

// CheckCommand reports the local failure for a command that must not be sent,
// or nil when it may go out.
func CheckCommand(conn Connection, command string) *Response {
	if !conn.IsConnected() {
		return NewLocalFailure(CodeClosed, ErrConnectionClosed.Error())
	}
	if strings.TrimSpace(command) == "" {
		return NewLocalFailure(CodeEmptyCommand, ErrEmptyCommand.Error())
	}
	return nil
}

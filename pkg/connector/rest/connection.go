package rest

import (
	"context"
	"sync/atomic"

	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/logger"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// session is the authenticated state shared by every view of one login.
type session struct {
	id     string
	client *Client
	token  string
	closed atomic.Bool
	logger *logger.Logger
}

// Connection implements connector.Connection over the REST protocol.
// Values are cheap views over a shared session.
type Connection struct {
	s       *session
	db      string
	options connector.Options
	format  tdtypes.TimeFormat
}

var _ connector.Connection = (*Connection)(nil)

func (c *Connection) ID() string                    { return c.s.id }
func (c *Connection) Type() connector.ConnectorType { return connector.REST }
func (c *Connection) IsConnected() bool             { return !c.s.closed.Load() }
func (c *Connection) DefaultDB() string             { return c.db }

// Options returns a copy of the effective options.
func (c *Connection) Options() connector.Options {
	return connector.Options{}.Merge(c.options)
}

// TimeFormat returns the response time encoding in effect.
func (c *Connection) TimeFormat() tdtypes.TimeFormat {
	return c.format
}

// WithDefaultDB returns a view targeting name when no db is passed.
func (c *Connection) WithDefaultDB(name string) connector.Connection {
	view := *c
	view.db = name
	return &view
}

// WithOptions returns a view with opts merged over the current options.
func (c *Connection) WithOptions(opts connector.Options) connector.Connection {
	view := *c
	view.options = c.options.Merge(opts)
	view.format = resolveFormat(view.options, c.s.logger)
	return &view
}

func resolveFormat(opts connector.Options, l *logger.Logger) tdtypes.TimeFormat {
	format, err := tdtypes.ParseTimeFormat(opts[connector.OptionResultTimeFormat])
	if err != nil {
		l.Warn("Ignoring %s option: %v", connector.OptionResultTimeFormat, err)
	}
	return format
}

// Execute sends a command whose result rows are not needed.
func (c *Connection) Execute(ctx context.Context, db, command string) connector.Result {
	return c.send(ctx, db, command)
}

// Query sends a command and returns its tabular result.
func (c *Connection) Query(ctx context.Context, db, command string) connector.QueryResult {
	return c.send(ctx, db, command)
}

func (c *Connection) send(ctx context.Context, db, command string) *connector.Response {
	if failure := connector.CheckCommand(c, command); failure != nil {
		return failure
	}
	if db == "" {
		db = c.db
	}

	endpoint := c.s.client.CommandURL(c.format, db)
	result := c.s.client.Send(ctx, c.s.token, endpoint, command)
	if result.ErrorCode() == connector.CodeNetwork {
		c.s.logger.Warn("Command on connection %s failed: %s", c.s.id, result.Description())
	}
	return result
}

// Close ends the session for this and every derived view.
func (c *Connection) Close() error {
	if c.s.closed.CompareAndSwap(false, true) {
		c.s.logger.Debug("Closed connection %s", c.s.id)
	}
	return nil
}

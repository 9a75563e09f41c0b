// Package rest implements the connector contract over the engine's
// SQL-over-HTTP interface. Importing it registers the adapter globally.
package rest

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/redbco/tdmeta/pkg/connector"
)

func init() {
	connector.Register(NewAdapter())
}

// Adapter implements connector.Adapter for the REST interface.
type Adapter struct{}

// NewAdapter creates a new REST adapter instance.
func NewAdapter() connector.Adapter {
	return &Adapter{}
}

// Type returns the connector type identifier.
func (a *Adapter) Type() connector.ConnectorType {
	return connector.REST
}

// Capability returns the capability metadata.
func (a *Adapter) Capability() connector.Capability {
	c, _ := connector.GetCapability(connector.REST)
	return c
}

// Connect logs in and returns a live connection.
func (a *Adapter) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	conn, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect logs in with cfg and returns a live connection bound to cfg.Database.
// A transport or decoding failure is a *connector.ConnectionError; a rejected
// login is a *connector.LoginError.
func Connect(ctx context.Context, cfg connector.Config) (*Connection, error) {
	cfg = cfg.WithDefaults()
	cfg.Type = connector.REST
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := NewClient(cfg)
	token, err := client.Login(ctx, cfg.User, cfg.Password)
	if err != nil {
		var rejected *connector.LoginError
		if errors.As(err, &rejected) {
			cfg.Logger.Warn("Login to %s as %s rejected: %v", client.BaseURL(), cfg.User, err)
			return nil, err
		}
		cfg.Logger.Warn("Login to %s failed: %v", client.BaseURL(), err)
		return nil, connector.NewConnectionError(connector.REST, cfg.Host, cfg.Port, err)
	}

	s := &session{
		id:     uuid.NewString(),
		client: client,
		token:  token,
		logger: cfg.Logger,
	}
	cfg.Logger.Info("Logged in to %s as %s (connection %s)", client.BaseURL(), cfg.User, s.id)

	return &Connection{
		s:       s,
		db:      cfg.Database,
		options: cfg.Options,
		format:  resolveFormat(cfg.Options, cfg.Logger),
	}, nil
}

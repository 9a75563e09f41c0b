// Package session holds what every tdmeta command needs: the configuration
// file, the resolved connection settings, the keyring, metrics and the
// catalog over one lazily opened connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/collection/meta"
	"github.com/redbco/tdmeta/pkg/config"
	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/health"
	"github.com/redbco/tdmeta/pkg/keyring"
	"github.com/redbco/tdmeta/pkg/logger"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// DefaultConfigFile is used when --config is not given.
const DefaultConfigFile = "$HOME/.tdmeta/config.yaml"

// File is the layout of a freshly written configuration file.
type File struct {
	Connector      ConnectorSection                `yaml:"connector"`
	Catalog        CatalogSection                  `yaml:"catalog"`
	Log            LogSection                      `yaml:"log"`
	CollectorTypes map[string]CollectorTypeSection `yaml:"collector_types,omitempty"`
}

type ConnectorSection struct {
	Type     string            `yaml:"type"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Database string            `yaml:"database"`
	Timeout  TimeoutSection    `yaml:"timeout"`
	Options  map[string]string `yaml:"options"`
}

type TimeoutSection struct {
	Connect string `yaml:"connect"`
	Request string `yaml:"request"`
}

type CatalogSection struct {
	Database string `yaml:"database"`
}

type LogSection struct {
	Level string `yaml:"level"`
}

// CollectorTypeSection declares a fixed-schema collector type. Columns are
// written as "name TYPE" or "name TYPE(length)".
type CollectorTypeSection struct {
	Tags   []string `yaml:"tags"`
	Fields []string `yaml:"fields"`
}

// DefaultFile returns the configuration written on first use.
func DefaultFile() File {
	return File{
		Connector: ConnectorSection{
			Type:     string(connector.DefaultType),
			Host:     connector.DefaultHost,
			Port:     connector.DefaultPort,
			User:     connector.DefaultUser,
			Database: connector.DefaultDatabase,
			Timeout: TimeoutSection{
				Connect: connector.DefaultConnectTimeout.String(),
				Request: connector.DefaultRequestTimeout.String(),
			},
			Options: map[string]string{connector.OptionResultTimeFormat: "ts"},
		},
		Catalog: CatalogSection{Database: meta.DefaultDatabase},
		Log:     LogSection{Level: "info"},
	}
}

// Options are the global command line settings.
type Options struct {
	ConfigFile  string
	DSN         string
	MetricsFile string
	Verbose     bool

	// Keyring overrides the default keyring, mainly for tests.
	Keyring *keyring.Manager
	// LogOutput overrides stderr.
	LogOutput io.Writer
}

// Session is the per-invocation state shared by commands.
type Session struct {
	Config    *config.Config
	Connector connector.Config
	Logger    *logger.Logger
	Keyring   *keyring.Manager
	Metrics   *prometheus.Registry
	Types     *collection.TypeRegistry

	metricsFile string
	manager     *connector.Manager
	conn        connector.Connection
	catalog     *meta.Catalog
}

// Open loads the configuration file, writing the defaults when it does not
// exist, and resolves the connection settings. It does not connect.
func Open(opts Options) (*Session, error) {
	path := opts.ConfigFile
	if path == "" {
		path = DefaultConfigFile
	}
	path = os.ExpandEnv(path)
	if err := ensureFile(path); err != nil {
		return nil, err
	}
	cfg, doc, err := config.LoadDocument(path)
	if err != nil {
		return nil, err
	}

	log := logger.New("tdmeta")
	if opts.LogOutput != nil {
		log = logger.NewWithWriter("tdmeta", opts.LogOutput)
	}
	log.SetLevel(logger.ParseLevel(cfg.GetDefault("log.level", "info")))
	if opts.Verbose {
		log.SetLevel(logger.LevelDebug)
	}

	types, err := loadTypes(doc)
	if err != nil {
		return nil, err
	}

	connCfg, err := connector.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.DSN != "" {
		if connCfg, err = overrideDSN(connCfg, opts.DSN); err != nil {
			return nil, err
		}
	}

	ring := opts.Keyring
	if ring == nil {
		ring = keyring.NewManager(keyring.DefaultPath(), keyring.MasterPasswordFromEnv())
	}
	if connCfg.Password == "" {
		resolved := connCfg.WithDefaults()
		secret, err := ring.Get(keyring.PasswordKey(resolved.Host, resolved.Port, resolved.User))
		switch {
		case err == nil:
			connCfg.Password = secret
		case errors.Is(err, keyring.ErrNotFound):
		default:
			log.Warn("Keyring lookup failed, using the default password: %v", err)
		}
	}
	connCfg.Logger = log.Named("connector")

	registry := prometheus.NewRegistry()
	s := &Session{
		Config:      cfg,
		Connector:   connCfg,
		Logger:      log,
		Keyring:     ring,
		Metrics:     registry,
		Types:       types,
		metricsFile: opts.MetricsFile,
	}
	s.manager = connector.NewManager(connCfg,
		connector.WithMetrics(connector.NewMetrics(registry)),
		connector.WithLogger(log.Named("manager")),
	)
	return s, nil
}

// overrideDSN applies the parts set in dsn on top of base.
func overrideDSN(base connector.Config, dsn string) (connector.Config, error) {
	d, err := connector.ParseDSN(dsn)
	if err != nil {
		return connector.Config{}, err
	}
	base.Type = d.Type
	if d.Host != "" {
		base.Host = d.Host
	}
	if d.Port != 0 {
		base.Port = d.Port
	}
	if d.User != "" {
		base.User = d.User
		base.Password = ""
	}
	if d.Password != "" {
		base.Password = d.Password
	}
	if d.Database != "" {
		base.Database = d.Database
	}
	if d.ConnectTimeout > 0 {
		base.ConnectTimeout = d.ConnectTimeout
	}
	if d.RequestTimeout > 0 {
		base.RequestTimeout = d.RequestTimeout
	}
	base.Options = base.Options.Merge(d.Options)
	return base, nil
}

// loadTypes builds the type registry: the base types plus the collector
// types declared in the configuration file.
func loadTypes(doc *yaml.Node) (*collection.TypeRegistry, error) {
	var f File
	if doc.Kind != 0 {
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to read collector types: %v", err)
		}
	}

	reg := collection.NewTypeRegistry()
	collection.RegisterBaseTypes(reg)
	for tag, section := range f.CollectorTypes {
		tags, err := ParseColumns(section.Tags)
		if err != nil {
			return nil, fmt.Errorf("collector type %s: %w", tag, err)
		}
		fields, err := ParseColumns(section.Fields)
		if err != nil {
			return nil, fmt.Errorf("collector type %s: %w", tag, err)
		}
		if err := collection.DefineCollectorType(reg, tag, tags, fields); err != nil {
			return nil, fmt.Errorf("collector type %s: %w", tag, err)
		}
	}
	return reg, nil
}

var columnPattern = regexp.MustCompile(`^(\S+)\s+([A-Za-z ]+?)(?:\((\d+)\))?$`)

// ParseColumns reads column declarations such as "site NCHAR(64)".
func ParseColumns(decls []string) ([]tdtypes.ColumnMeta, error) {
	var cols []tdtypes.ColumnMeta
	for _, decl := range decls {
		m := columnPattern.FindStringSubmatch(strings.TrimSpace(decl))
		if m == nil {
			return nil, fmt.Errorf("invalid column declaration %q", decl)
		}
		t, err := tdtypes.ParseDataType(m[2])
		if err != nil {
			return nil, err
		}
		length := 0
		if m[3] != "" {
			if length, err = strconv.Atoi(m[3]); err != nil {
				return nil, fmt.Errorf("invalid column length in %q", decl)
			}
		}
		cols = append(cols, tdtypes.Column(m[1], t, length))
	}
	return cols, nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	data, err := yaml.Marshal(DefaultFile())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write default config file: %v", err)
	}
	return nil
}

// Connection opens the connection on first use.
func (s *Session) Connection(ctx context.Context) (connector.Connection, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := s.manager.GetConnection(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// Catalog returns the catalog over the session connection.
func (s *Session) Catalog(ctx context.Context) (*meta.Catalog, error) {
	if s.catalog != nil {
		return s.catalog, nil
	}
	conn, err := s.Connection(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog = meta.New(conn,
		meta.WithDatabase(s.Config.GetDefault("catalog.database", meta.DefaultDatabase)),
		meta.WithTypeRegistry(s.Types),
		meta.WithLogger(s.Logger.Named("catalog")),
	)
	return s.catalog, nil
}

// Health returns a checker for engine login and catalog presence.
func (s *Session) Health() *health.Checker {
	checker := health.NewChecker()
	checker.Add("engine", func(ctx context.Context) error {
		_, err := s.Connection(ctx)
		return err
	})
	checker.Add("catalog", func(ctx context.Context) error {
		c, err := s.Catalog(ctx)
		if err != nil {
			return err
		}
		ok, err := c.Exists(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("catalog database %s not found, run tdmeta init", c.Database())
		}
		return nil
	})
	return checker
}

// Login checks password against the engine and stores it in the keyring.
func (s *Session) Login(ctx context.Context, password string) error {
	cfg := s.Connector
	cfg.Password = password
	conn, err := connector.NewManager(cfg, connector.WithLogger(s.Logger.Named("login"))).GetConnection(ctx, nil)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return s.SavePassword(password)
}

// SavePassword stores password for the configured account.
func (s *Session) SavePassword(password string) error {
	resolved := s.Connector.WithDefaults()
	return s.Keyring.Set(keyring.PasswordKey(resolved.Host, resolved.Port, resolved.User), password)
}

// SavePointOption stores a private option of a registered point.
func (s *Session) SavePointOption(pointKey, option, value string) error {
	return s.Keyring.Set(keyring.PointOptionKey(pointKey, option), value)
}

// Close closes the connection and writes the metrics file when one was requested.
func (s *Session) Close() error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	if s.metricsFile != "" {
		if err := prometheus.WriteToTextfile(s.metricsFile, s.Metrics); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}

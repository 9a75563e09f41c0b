// Package tdenginetest provides an in-memory engine that speaks the REST
// wire protocol, for tests of code built on the connector packages.
//
// It implements the statements the catalog issues: database and super
// table DDL, INSERT ... USING ... TAGS, DROP TABLE, and SELECT over super
// tables with DISTINCT, LAST(...), WHERE (= and LIKE joined by AND),
// GROUP BY, LIMIT and OFFSET.
package tdenginetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Engine error codes returned by the fake.
const (
	CodeAuthFailure    = 3
	CodeSyntaxError    = 0x0216
	CodeDBNotSelected  = 0x0383
	CodeDBExists       = 0x0385
	CodeInvalidDB      = 0x0388
	CodeTableNotExist  = 0x0362
	CodeTableExists    = 0x0360
	CodeInvalidColumn  = 0x0219
	CodeInjectedFailed = 0x0999
)

// Request is a recorded command request.
type Request struct {
	Path          string
	Database      string
	Authorization string
	Body          string
}

type failure struct {
	pattern *regexp.Regexp
	code    int
	desc    string
	times   int
}

// Server is a fake engine behind an httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string
	tokens   map[string]string
	dbs      map[string]*database
	requests []Request
	logins   int
	failures []*failure
}

type database struct {
	name    string
	options string
	stables map[string]*stable
	tables  map[string]*table
	order   []string
}

type stable struct {
	name    string
	columns []tdtypes.ColumnMeta
	tags    []tdtypes.ColumnMeta
}

type table struct {
	name   string
	stable *stable
	tags   map[string]any
	rows   []map[string]any
}

type engineError struct {
	code int
	desc string
}

func (e *engineError) Error() string { return e.desc }

func errorf(code int, format string, args ...any) *engineError {
	return &engineError{code: code, desc: fmt.Sprintf(format, args...)}
}

// NewServer starts a fake engine accepting root/taosdata.
func NewServer() *Server {
	s := &Server{
		users:  map[string]string{"root": "taosdata"},
		tokens: make(map[string]string),
		dbs:    make(map[string]*database),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Host returns "http://127.0.0.1" style host without port.
func (s *Server) Host() string {
	u, _ := url.Parse(s.URL)
	return u.Scheme + "://" + u.Hostname()
}

// Port returns the listening port.
func (s *Server) Port() int {
	u, _ := url.Parse(s.URL)
	p, _ := strconv.Atoi(u.Port())
	return p
}

// AddUser allows another login.
func (s *Server) AddUser(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = password
}

// FailNext makes the next times commands matching pattern fail with an engine
// error. A times of 0 fails every match.
func (s *Server) FailNext(pattern string, times int, desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{
		pattern: regexp.MustCompile("(?is)" + pattern),
		code:    CodeInjectedFailed,
		desc:    desc,
		times:   times,
	})
}

// Requests returns the recorded command requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Logins returns the number of successful login handshakes.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// HasDatabase reports whether a database exists.
func (s *Server) HasDatabase(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dbs[name]
	return ok
}

// DatabaseOptions returns the option text a database was created with.
func (s *Server) DatabaseOptions(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[name]; ok {
		return db.options
	}
	return ""
}

// Tables returns child table names of db in creation order.
func (s *Server) Tables(db string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[db]
	if !ok {
		return nil
	}
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// RowCount returns the number of rows stored in a child table.
func (s *Server) RowCount(db, tableName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dbs[db]; ok {
		if t, ok := d.tables[tableName]; ok {
			return len(t.rows)
		}
	}
	return 0
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/rest/login/"):
		s.handleLogin(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/rest/sql"):
		s.handleCommand(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/rest/login/"), "/", 2)
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, errorf(CodeAuthFailure, "invalid login path"))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pass, ok := s.users[parts[0]]; !ok || pass != parts[1] {
		writeError(w, http.StatusUnauthorized, errorf(CodeAuthFailure, "Authentication failure"))
		return
	}
	token := uuid.NewString()
	s.tokens[token] = parts[0]
	s.logins++
	writeJSON(w, http.StatusOK, map[string]any{"status": "succ", "code": 0, "desc": token})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/rest/")
	endpoint, dbName, _ := strings.Cut(rest, "/")
	format := map[string]tdtypes.TimeFormat{
		"sql":    tdtypes.TimeLocal,
		"sqlutc": tdtypes.TimeUTC,
		"sqlt":   tdtypes.TimeEpoch,
	}[endpoint]
	if format == "" {
		http.NotFound(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)
	auth := r.Header.Get("Authorization")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Path: r.URL.Path, Database: dbName, Authorization: auth, Body: string(body)})

	token := strings.TrimPrefix(auth, "Taosd ")
	if _, ok := s.tokens[token]; !ok || !strings.HasPrefix(auth, "Taosd ") {
		writeError(w, http.StatusUnauthorized, errorf(CodeAuthFailure, "Authentication failure"))
		return
	}

	command := string(body)
	if err := s.injected(command); err != nil {
		writeError(w, http.StatusOK, err)
		return
	}

	res, err := s.exec(dbName, command, format)
	if err != nil {
		writeError(w, http.StatusOK, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) injected(command string) *engineError {
	for i, f := range s.failures {
		if !f.pattern.MatchString(command) {
			continue
		}
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
			}
		}
		return errorf(f.code, "%s", f.desc)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := CodeSyntaxError
	if ee, ok := err.(*engineError); ok {
		code = ee.code
	}
	writeJSON(w, status, map[string]any{"status": "error", "code": code, "desc": err.Error()})
}

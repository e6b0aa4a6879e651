// SPDX-License-Identifier: Apache-2.0

// Package connstr parses the semicolon-separated DACPAC-style connection
// string used by publish profiles (host=...;database=...;userid=...) into
// a postgres:// URL, and offers a helper for layering a search_path option
// onto an existing URL-form connection string.
package connstr

import (
	"strconv"
	"strings"

	"github.com/psqlpack/psqlpack/internal/pserrors"
)

// Connection is a parsed DACPAC-style connection string: a database name
// kept separate from the rest so callers can address the host (for
// CREATE/DROP DATABASE) independently of the target database itself.
type Connection struct {
	Database string
	uri      string
}

// HostURL returns the postgres:// URL without a database path component,
// suitable for operations that must run before the target database
// exists (CREATE DATABASE, existence probes against pg_database).
func (c Connection) HostURL() string { return c.uri }

// DatabaseURL returns the postgres:// URL addressing Database directly.
func (c Connection) DatabaseURL() string { return c.uri + "/" + c.Database }

// Builder assembles a Connection from its individual parts, validating
// as it goes so Parse can report exactly which required part is absent.
type Builder struct {
	database string
	host     string
	user     string
	password string
	hasPort  bool
	port     uint16
	tlsMode  bool
}

func NewBuilder(database, host, user string) *Builder {
	return &Builder{database: database, host: host, user: user}
}

func (b *Builder) WithPassword(password string) *Builder {
	b.password = password
	return b
}

func (b *Builder) WithPort(port uint16) *Builder {
	b.hasPort = true
	b.port = port
	return b
}

func (b *Builder) WithTLSMode(value string) *Builder {
	b.tlsMode = strings.EqualFold(value, "true")
	return b
}

func (b *Builder) Build() (Connection, error) {
	if b.tlsMode {
		return Connection{}, &pserrors.ConnectionError{Kind: pserrors.TlsNotSupported}
	}

	fqHost := b.host
	if b.hasPort {
		fqHost = b.host + ":" + strconv.Itoa(int(b.port))
	}

	var uri string
	if b.password != "" {
		uri = "postgres://" + b.user + ":" + b.password + "@" + fqHost
	} else {
		uri = "postgres://" + b.user + "@" + fqHost
	}

	return Connection{Database: b.database, uri: uri}, nil
}

// Parse decodes a semicolon-separated key=value connection string
// ("host=localhost;database=db1;userid=user;password=secret;port=5432")
// into a Connection. Recognized keys: host, database, userid (all
// required), password, port, tlsmode (optional; tlsmode=true is
// rejected, since TLS connections are not supported).
func Parse(input string) (Connection, error) {
	parts := make(map[string]string)
	for _, section := range strings.Split(input, ";") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		pair := strings.SplitN(section, "=", 2)
		if len(pair) != 2 {
			return Connection{}, &pserrors.ConnectionError{Kind: pserrors.MalformedConnectionString, Detail: section}
		}
		parts[pair[0]] = pair[1]
	}

	host, ok := parts["host"]
	if !ok {
		return Connection{}, &pserrors.ConnectionError{Kind: pserrors.RequiredPartMissing, Detail: "host"}
	}
	database, ok := parts["database"]
	if !ok {
		return Connection{}, &pserrors.ConnectionError{Kind: pserrors.RequiredPartMissing, Detail: "database"}
	}
	user, ok := parts["userid"]
	if !ok {
		return Connection{}, &pserrors.ConnectionError{Kind: pserrors.RequiredPartMissing, Detail: "userid"}
	}

	builder := NewBuilder(database, host, user)

	if password, ok := parts["password"]; ok {
		builder.WithPassword(password)
	}
	if port, ok := parts["port"]; ok {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return Connection{}, &pserrors.ConnectionError{Kind: pserrors.MalformedConnectionString, Detail: "port"}
		}
		builder.WithPort(uint16(n))
	}
	if tlsMode, ok := parts["tlsmode"]; ok {
		builder.WithTLSMode(tlsMode)
	}

	return builder.Build()
}

package ldap

import (
	"context"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// dialConnector opens one bound go-ldap connection per call.
type dialConnector struct {
	config *Config
}

// NewConnector returns a Connector that dials the configured directory and
// binds with the configured principal, or not at all when anonymous.
func NewConnector(config *Config) Connector {
	return &dialConnector{config: config}
}

func (c *dialConnector) Connect(ctx context.Context) (Directory, error) {
	url := c.config.URL()
	fields := map[string]any{
		"url":       url,
		"anonymous": c.config.Anonymous,
	}

	LogConnectionEvent(ctx, "connection_attempt", fields)
	start := time.Now()

	dialer := &net.Dialer{Timeout: c.config.Timeout}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if c.config.UseSSL {
		opts = append(opts, ldap.DialWithTLSConfig(c.config.TLSConfig()))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		fields["error"] = err.Error()
		LogConnectionEvent(ctx, "connection_failed", fields)
		return nil, newConnectionError("connect", err)
	}

	conn.SetTimeout(c.config.Timeout)

	if !c.config.Anonymous {
		fields["principal"] = c.config.Principal
		if err := conn.Bind(c.config.Principal, c.config.Credentials); err != nil {
			_ = conn.Close()
			fields["error"] = err.Error()
			LogConnectionEvent(ctx, "authentication_failed", fields)
			return nil, newConnectionError("bind", err)
		}
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()
	LogConnectionEvent(ctx, "connection_established", fields)

	return &directory{
		conn:      conn,
		timeLimit: int(c.config.Timeout / time.Second),
	}, nil
}

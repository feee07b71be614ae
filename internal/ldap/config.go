package ldap

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// Config holds the connection parameters and search limits of a bridge.
type Config struct {
	Server         string        `default:"127.0.0.1"` // Directory host name or address
	Port           int           `default:"389"`       // Directory port
	UseSSL         bool          // Dial ldaps:// instead of ldap://
	Anonymous      bool          // Skip the bind entirely
	Principal      string        // Bind DN for simple authentication
	Credentials    string        // Bind password
	SearchBase     string        // Configured base every search descends from
	PageSize       int           `default:"50"`  // Entries requested per page
	MaximumPages   int           `default:"20"`  // Upper bound on pages fetched per search
	Timeout        time.Duration `default:"30s"` // Dial and request timeout
	SkipTLSVerify  bool          // Accept any server certificate (testing only)
	MultiValueJSON bool          // Render multi-valued attributes as a JSON array string
}

// DefaultConfig returns a configuration populated with the bridge defaults.
func DefaultConfig() *Config {
	config := &Config{}
	if err := config.ApplyDefaults(); err != nil {
		// Struct tags are static, so this only trips on a programming error.
		panic(err)
	}
	return config
}

// ApplyDefaults fills every zero-valued field that has a default.
func (c *Config) ApplyDefaults() error {
	return defaults.Set(c)
}

// Validate checks that the configuration is usable. Errors carry the
// configuration kind.
func (c *Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.Server) == "" {
		problems = append(problems, errors.New("server must not be blank"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Errorf("port %d out of range", c.Port))
	}

	if !c.Anonymous && (strings.TrimSpace(c.Principal) == "" || c.Credentials == "") {
		problems = append(problems, errors.New(msgBlankCredentials))
	}

	if c.PageSize <= 0 {
		problems = append(problems, errors.New("page size must be positive"))
	}

	if c.MaximumPages <= 0 {
		problems = append(problems, errors.New("maximum pages must be positive"))
	}

	if c.Timeout <= 0 {
		problems = append(problems, errors.New("timeout must be positive"))
	}

	if len(problems) == 0 {
		return nil
	}

	err := errors.Join(problems...)
	return NewLDAPError("configure", KindConfiguration, err.Error(), err)
}

// URL returns the directory URL derived from server, port and SSL flag.
func (c *Config) URL() string {
	scheme := "ldap"
	if c.UseSSL {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(c.Server, strconv.Itoa(c.Port)))
}

// TLSConfig returns the TLS settings used for ldaps:// connections.
func (c *Config) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.Server,
		InsecureSkipVerify: c.SkipTLSVerify, // #nosec G402 -- opt-in for test directories
	}
}

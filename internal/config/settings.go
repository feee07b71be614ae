// Package config loads settings for the standalone bridge binary.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kineticdata/peripherals-ldap/internal/ldap"
)

// EnvPrefix prefixes every environment variable the binary reads.
const EnvPrefix = "LDAPBRIDGE"

// Output format constants
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// LDAPSettings configuration for the directory connection
type LDAPSettings struct {
	Server         string        `mapstructure:"server"`
	Port           int           `mapstructure:"port"`
	UseSSL         bool          `mapstructure:"use_ssl"`
	Anonymous      bool          `mapstructure:"anonymous"`
	Principal      string        `mapstructure:"principal"`
	Credentials    string        `mapstructure:"credentials"`
	SearchBase     string        `mapstructure:"search_base"`
	PageSize       int           `mapstructure:"page_size"`
	MaximumPages   int           `mapstructure:"maximum_pages"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SkipTLSVerify  bool          `mapstructure:"skip_tls_verify"`
	MultiValueJSON bool          `mapstructure:"multi_value_json"`
}

// HTTPSettings configuration for the serve command
type HTTPSettings struct {
	Listen    string `mapstructure:"listen"`
	RateLimit int    `mapstructure:"rate_limit"` // requests per minute per client
	RateBurst int    `mapstructure:"rate_burst"`
}

// Settings application settings
type Settings struct {
	LDAP   LDAPSettings `mapstructure:"ldap"`
	HTTP   HTTPSettings `mapstructure:"http"`
	Output string       `mapstructure:"output"`
}

// settingKeys maps each setting to its environment variable suffix and
// CLI flag. Connection settings drop the section name from the variable
// so LDAPBRIDGE_SERVER serves both the binary and the provider.
var settingKeys = []struct {
	key  string
	env  string
	flag string
}{
	{"ldap.server", "SERVER", "server"},
	{"ldap.port", "PORT", "port"},
	{"ldap.use_ssl", "USE_SSL", "use-ssl"},
	{"ldap.anonymous", "ANONYMOUS", "anonymous"},
	{"ldap.principal", "PRINCIPAL", "principal"},
	{"ldap.credentials", "CREDENTIALS", "credentials"},
	{"ldap.search_base", "SEARCH_BASE", "search-base"},
	{"ldap.page_size", "PAGE_SIZE", "page-size"},
	{"ldap.maximum_pages", "MAXIMUM_PAGES", "maximum-pages"},
	{"ldap.timeout", "TIMEOUT", "timeout"},
	{"ldap.skip_tls_verify", "SKIP_TLS_VERIFY", "skip-tls-verify"},
	{"ldap.multi_value_json", "MULTI_VALUE_JSON", "multi-value-json"},
	{"http.listen", "HTTP_LISTEN", "listen"},
	{"http.rate_limit", "HTTP_RATE_LIMIT", "rate-limit"},
	{"http.rate_burst", "HTTP_RATE_BURST", "rate-burst"},
	{"output", "OUTPUT", "output"},
}

// LoadSettings loads settings from environment variables and an optional
// ldapbridge.yaml in the working directory.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil, "")
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > config file > defaults.
// An explicit configFile must exist; otherwise ldapbridge.yaml is read
// from the working directory when present.
func LoadSettingsWithFlags(flags *pflag.FlagSet, configFile string) (*Settings, error) {
	v := viper.New()

	// Defaults come from the core configuration so there is one source.
	d := ldap.DefaultConfig()
	v.SetDefault("ldap.server", d.Server)
	v.SetDefault("ldap.port", d.Port)
	v.SetDefault("ldap.use_ssl", d.UseSSL)
	v.SetDefault("ldap.anonymous", d.Anonymous)
	v.SetDefault("ldap.principal", "")
	v.SetDefault("ldap.credentials", "")
	v.SetDefault("ldap.search_base", "")
	v.SetDefault("ldap.page_size", d.PageSize)
	v.SetDefault("ldap.maximum_pages", d.MaximumPages)
	v.SetDefault("ldap.timeout", d.Timeout)
	v.SetDefault("ldap.skip_tls_verify", false)
	v.SetDefault("ldap.multi_value_json", false)

	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.rate_limit", 600)
	v.SetDefault("http.rate_burst", 50)
	v.SetDefault("output", OutputJSON)

	for _, s := range settingKeys {
		_ = v.BindEnv(s.key, EnvPrefix+"_"+s.env)
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for _, s := range settingKeys {
			if f := flags.Lookup(s.flag); f != nil {
				_ = v.BindPFlag(s.key, f)
			}
		}
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("ldapbridge")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Output = strings.ToLower(strings.TrimSpace(settings.Output))
	settings.LDAP.Server = strings.TrimSpace(settings.LDAP.Server)
	settings.LDAP.SearchBase = strings.TrimSpace(settings.LDAP.SearchBase)

	return &settings, nil
}

// RegisterFlags declares the flags LoadSettingsWithFlags binds. Defaults
// live in the loader, so flag defaults only document the value.
func RegisterFlags(flags *pflag.FlagSet) {
	d := ldap.DefaultConfig()

	flags.String("server", d.Server, "LDAP server host name or address")
	flags.Int("port", d.Port, "LDAP server port")
	flags.Bool("use-ssl", false, "Connect with ldaps://")
	flags.Bool("anonymous", false, "Skip the bind")
	flags.String("principal", "", "Bind DN")
	flags.String("credentials", "", "Bind password")
	flags.String("search-base", "", "Base DN every search descends from")
	flags.Int("page-size", d.PageSize, "Entries requested per page")
	flags.Int("maximum-pages", d.MaximumPages, "Maximum pages fetched per search")
	flags.Duration("timeout", d.Timeout, "Dial and request timeout")
	flags.Bool("skip-tls-verify", false, "Accept any server certificate")
	flags.Bool("multi-value-json", false, "Render multi-valued attributes as a JSON array")
	flags.StringP("output", "o", OutputJSON, "Output format (json or yaml)")
}

// RegisterServeFlags declares the flags specific to the serve command.
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.String("listen", ":8080", "Address the HTTP bridge listens on")
	flags.Int("rate-limit", 600, "Requests per minute allowed per client")
	flags.Int("rate-burst", 50, "Burst size for the per-client rate limit")
}

// LDAPConfig converts the connection settings to a core configuration.
func (s *Settings) LDAPConfig() *ldap.Config {
	return &ldap.Config{
		Server:         s.LDAP.Server,
		Port:           s.LDAP.Port,
		UseSSL:         s.LDAP.UseSSL,
		Anonymous:      s.LDAP.Anonymous,
		Principal:      s.LDAP.Principal,
		Credentials:    s.LDAP.Credentials,
		SearchBase:     s.LDAP.SearchBase,
		PageSize:       s.LDAP.PageSize,
		MaximumPages:   s.LDAP.MaximumPages,
		Timeout:        s.LDAP.Timeout,
		SkipTLSVerify:  s.LDAP.SkipTLSVerify,
		MultiValueJSON: s.LDAP.MultiValueJSON,
	}
}

// ValidateSettings checks the settings the binary needs beyond the
// connection configuration, which the adapter validates itself.
func ValidateSettings(s *Settings) error {
	switch s.Output {
	case OutputJSON, OutputYAML:
		// valid
	default:
		return errors.New("output must be 'json' or 'yaml', got: " + s.Output)
	}

	if s.HTTP.Listen == "" {
		return errors.New("listen address cannot be empty")
	}

	if s.HTTP.RateLimit <= 0 {
		return errors.New("rate-limit must be positive")
	}

	if s.HTTP.RateBurst <= 0 {
		return errors.New("rate-burst must be positive")
	}

	return nil
}

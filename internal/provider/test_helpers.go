package provider

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestServer      = "LDAPBRIDGE_TEST_SERVER"
	EnvTestPort        = "LDAPBRIDGE_TEST_PORT"
	EnvTestUseSSL      = "LDAPBRIDGE_TEST_USE_SSL"
	EnvTestPrincipal   = "LDAPBRIDGE_TEST_PRINCIPAL"
	EnvTestCredentials = "LDAPBRIDGE_TEST_CREDENTIALS"
	EnvTestSearchBase  = "LDAPBRIDGE_TEST_SEARCH_BASE"
	EnvTestStructure   = "LDAPBRIDGE_TEST_STRUCTURE"
	EnvTestQuery       = "LDAPBRIDGE_TEST_QUERY"

	// Default values for testing.
	DefaultTestPort      = 389
	DefaultTestStructure = "inetOrgPerson"
)

// TestConfig holds the directory the acceptance tests run against.
type TestConfig struct {
	Server      string
	Port        int
	UseSSL      bool
	Principal   string
	Credentials string
	SearchBase  string

	// Structure and Query select entries known to exist. Query must match
	// exactly one entry.
	Structure string
	Query     string
}

// Anonymous reports whether the tests bind anonymously.
func (c *TestConfig) Anonymous() bool {
	return c.Principal == ""
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	config := &TestConfig{
		Server:      os.Getenv(EnvTestServer),
		Port:        DefaultTestPort,
		Principal:   os.Getenv(EnvTestPrincipal),
		Credentials: os.Getenv(EnvTestCredentials),
		SearchBase:  os.Getenv(EnvTestSearchBase),
		Structure:   getEnvWithDefault(EnvTestStructure, DefaultTestStructure),
		Query:       os.Getenv(EnvTestQuery),
	}

	if port, err := strconv.Atoi(os.Getenv(EnvTestPort)); err == nil {
		config.Port = port
	}
	if useSSL, err := strconv.ParseBool(os.Getenv(EnvTestUseSSL)); err == nil {
		config.UseSSL = useSSL
	}

	return config
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig skips the test unless a test directory is configured.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.Server == "" {
		t.Skipf("Skipping test: %s must be set to a reachable directory", EnvTestServer)
	}

	if config.Principal != "" && config.Credentials == "" {
		t.Skipf("Skipping test: %s must be set with %s", EnvTestCredentials, EnvTestPrincipal)
	}

	if config.Query == "" {
		t.Skipf("Skipping test: %s must select exactly one %s entry", EnvTestQuery, config.Structure)
	}

	return config
}

// TestProviderConfig generates provider configuration for tests.
func TestProviderConfig() string {
	config := GetTestConfig()

	var providerConfig strings.Builder
	providerConfig.WriteString("provider \"ldapbridge\" {\n")
	providerConfig.WriteString(fmt.Sprintf("  server = %q\n", config.Server))
	providerConfig.WriteString(fmt.Sprintf("  port   = %d\n", config.Port))

	if config.UseSSL {
		providerConfig.WriteString("  use_ssl         = true\n")
		providerConfig.WriteString("  skip_tls_verify = true\n")
	}

	if config.Anonymous() {
		providerConfig.WriteString("  anonymous = true\n")
	} else {
		providerConfig.WriteString(fmt.Sprintf("  principal   = %q\n", config.Principal))
		providerConfig.WriteString(fmt.Sprintf("  credentials = %q\n", config.Credentials))
	}

	if config.SearchBase != "" {
		providerConfig.WriteString(fmt.Sprintf("  search_base = %q\n", config.SearchBase))
	}

	providerConfig.WriteString("}\n")
	return providerConfig.String()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
